package main

import (
	"context"
	"time"

	"redistrict/internal/boundary"
	"redistrict/internal/logger"
	"redistrict/internal/snapshot"
)

type catalog interface {
	Has(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, id, name string, savedAt time.Time, c boundary.Collection) error
}

type result struct {
	added, skipped, failed int
	dryRun                 bool
}

// backfill：逐个快照补录；单个快照失败只计数，继续处理其余
func backfill(ctx context.Context, mgr *snapshot.Manager, cat catalog, dryRun bool) (result, error) {
	l := logger.L()
	res := result{dryRun: dryRun}
	ids, err := mgr.List(ctx)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		ok, err := cat.Has(ctx, string(id))
		if err != nil {
			return res, err
		}
		if ok {
			res.skipped++
			continue
		}
		c, err := mgr.Load(ctx, id)
		if err != nil {
			l.Warn("backfill_load_error", "id", id, "err", err)
			res.failed++
			continue
		}
		if dryRun {
			l.Info("backfill_would_add", "id", id, "boundaries", len(c))
			res.added++
			continue
		}
		// 时间戳无法解析的文件按零值时间入库，排在历史末尾
		savedAt, _ := snapshot.ParseTimestamp(string(id))
		if err := cat.Record(ctx, string(id), snapshot.DisplayName(id), savedAt, c); err != nil {
			l.Warn("backfill_record_error", "id", id, "err", err)
			res.failed++
			continue
		}
		l.Debug("backfill_added", "id", id, "boundaries", len(c))
		res.added++
	}
	return res, nil
}
