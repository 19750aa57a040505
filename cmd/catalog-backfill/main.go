package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"redistrict/internal/logger"
	"redistrict/internal/migrate"
	"redistrict/internal/snapshot"
	"redistrict/internal/store"
	"redistrict/internal/utils"
)

// 文档注释：把存储中已有但目录缺失的快照补录进目录
// 背景：目录写入在保存后尽力而为，数据库故障期间保存的快照不会进入目录；本工具按快照文件重放。
// 约束：快照文件是事实来源；已在目录中的 ID 跳过；BACKFILL_DRY_RUN=true 只统计不写入。
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	ctx := context.Background()

	st, err := snapshot.OpenFromEnv(ctx)
	if err != nil {
		l.Error("snapshot_store_error", "err", err)
		os.Exit(1)
	}
	db, dialect, err := utils.OpenCatalogFromEnv()
	if err != nil || db == nil {
		l.Error("catalog_open_error", "err", err, "driver", os.Getenv("CATALOG_DRIVER"))
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db, dialect); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	res, err := backfill(ctx, snapshot.NewManager(st), store.AttachDB(db, dialect), os.Getenv("BACKFILL_DRY_RUN") == "true")
	if err != nil {
		l.Error("backfill_error", "err", err)
		os.Exit(1)
	}
	l.Info("backfill_done", "added", res.added, "skipped", res.skipped, "failed", res.failed, "dry_run", res.dryRun)
	if res.failed > 0 {
		os.Exit(2)
	}
}
