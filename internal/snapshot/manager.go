package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"redistrict/internal/boundary"
	"redistrict/internal/logger"
	"redistrict/internal/metrics"
)

// PersistError：序列化或写入失败；调用方据此保留待提交形状
type PersistError struct {
	ID  ID
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist snapshot %s: %v", e.ID, e.Err) }

func (e *PersistError) Unwrap() error { return e.Err }

// Manager：快照的保存、枚举与加载入口
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager { return &Manager{store: store} }

func (m *Manager) Store() Store { return m.store }

// 文档注释：保存不可变快照
// 背景：写入完整（未过滤）集合；文件名由清洗后的名称与保存时刻组成，同名同秒覆盖。
// 约束：名称清洗后为空返回 ErrEmptyName；序列化或写入失败返回 *PersistError；不做重试。
func (m *Manager) Save(ctx context.Context, c boundary.Collection, name string, at time.Time) (ID, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	id := FileName(clean, at)
	body, err := boundary.Encode(c)
	if err != nil {
		metrics.SnapshotSavesTotal.WithLabelValues("fail").Inc()
		return "", &PersistError{ID: id, Err: err}
	}
	if err := m.store.Put(ctx, string(id), body); err != nil {
		metrics.SnapshotSavesTotal.WithLabelValues("fail").Inc()
		logger.L().Error("snapshot_put_error", "id", id, "driver", m.store.Driver(), "err", err)
		return "", &PersistError{ID: id, Err: err}
	}
	metrics.SnapshotSavesTotal.WithLabelValues("ok").Inc()
	logger.L().Info("snapshot_save_ok", "id", id, "boundaries", len(c), "bytes", len(body))
	return id, nil
}

// 文档注释：枚举快照（最新在前）
// 背景：每次调用重新扫描存储，不跨调用缓存；按文件名末尾时间戳降序。
// 约束：无法解析时间戳的文件视为最小时间排在末尾；同一时间戳按名称升序。
func (m *Manager) List(ctx context.Context) ([]ID, error) {
	t0 := time.Now()
	keys, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	type item struct {
		id ID
		ts time.Time
	}
	items := make([]item, 0, len(keys))
	for _, k := range keys {
		ts, _ := ParseTimestamp(k)
		items = append(items, item{id: ID(k), ts: ts})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].ts.Equal(items[j].ts) {
			return items[i].ts.After(items[j].ts)
		}
		return items[i].id < items[j].id
	})
	out := make([]ID, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	metrics.SnapshotListDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	return out, nil
}

// Load：读取快照，复用底图解析规则（缺色补主色、区域补零）
func (m *Manager) Load(ctx context.Context, id ID) (boundary.Collection, error) {
	body, err := m.Raw(ctx, id)
	if err != nil {
		return boundary.Collection{}, err
	}
	c, err := boundary.Decode(body)
	if err != nil {
		var le *boundary.LoadError
		if errors.As(err, &le) {
			le.Path = string(id)
		}
		return boundary.Collection{}, err
	}
	return c, nil
}

// Raw：快照原始字节，供缓存层直接转发
func (m *Manager) Raw(ctx context.Context, id ID) ([]byte, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	body, err := m.store.Get(ctx, string(id))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return body, err
}
