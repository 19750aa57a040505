// 包 api：集中注册 HTTP API 路由以解耦主入口，便于主入口挂载到 API_BASE 前缀
package api

import (
	"context"
	"net/http"
	"time"

	"redistrict/internal/boundary"
	"redistrict/internal/cache"
	"redistrict/internal/metrics"
	"redistrict/internal/notify"
	"redistrict/internal/session"
	"redistrict/internal/snapshot"
	"redistrict/internal/store"
)

// Catalog：快照目录（可选）；*store.Store 实现
type Catalog interface {
	Record(ctx context.Context, id, name string, savedAt time.Time, c boundary.Collection) error
	History(ctx context.Context, limit int) ([]store.Entry, error)
	Boundaries(ctx context.Context, id string) ([]store.Row, error)
}

// Notifier：保存后的外部通知（可选）；*notify.Notifier 实现
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// 文档注释：路由依赖
// 背景：底图与区域表在启动时加载一次；会话、快照、目录与通知均显式注入，便于测试替换。
// 约束：Catalog/Cache/Notifier 可为 nil（对应功能关闭）；注意不要把 nil 指针装进接口。
type Deps struct {
	Base           boundary.Collection
	Regions        boundary.Regions
	Snapshots      *snapshot.Manager
	Sessions       *session.Registry
	Catalog        Catalog
	Cache          *cache.Snapshots
	Notifier       Notifier
	UploadMaxBytes int64
	Now            func() time.Time
}

const defaultUploadMaxBytes = 10 << 20

// BuildRoutes：构建独立 ServeMux，主入口挂载到 API_BASE 前缀下
func BuildRoutes(d Deps) *http.ServeMux {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.UploadMaxBytes <= 0 {
		d.UploadMaxBytes = defaultUploadMaxBytes
	}
	if d.Sessions == nil {
		d.Sessions = session.NewRegistry()
	}
	h := &handlers{d: d}
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			t0 := time.Now()
			metrics.RequestsTotal.WithLabelValues(pattern).Inc()
			fn(w, r)
			metrics.RequestDurationMs.WithLabelValues(pattern).Observe(float64(time.Since(t0).Milliseconds()))
		})
	}

	handle("GET /regions", h.regions)
	handle("GET /boundaries", h.boundaries)
	handle("GET /subregions", h.subregions)
	handle("GET /locate", h.locate)

	handle("POST /sessions", h.createSession)
	handle("GET /sessions/{id}", h.getSession)
	handle("POST /sessions/{id}/select", h.selectRegion)
	handle("POST /sessions/{id}/shapes", h.drawShape)
	handle("POST /sessions/{id}/save", h.saveSession)
	handle("DELETE /sessions/{id}/pending", h.abandon)
	handle("POST /sessions/{id}/assignments", h.attachAssignments)

	handle("GET /snapshots", h.listSnapshots)
	handle("GET /snapshots/{id}", h.getSnapshot)
	handle("GET /catalog", h.catalogHistory)
	handle("GET /catalog/{id}", h.catalogBoundaries)

	handle("POST /uploads", h.previewUpload)
	return mux
}

type handlers struct {
	d Deps
}
