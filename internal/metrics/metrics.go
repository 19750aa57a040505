package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_requests_total",
		Help: "Total API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redistrict_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	ShapesDrawnTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_shapes_drawn_total",
		Help: "Draw events by outcome (added, repeat, rejected)",
	}, []string{"outcome"})
	MergesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redistrict_merges_total",
		Help: "Total proposed-shape merges",
	})
	SnapshotSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_snapshot_saves_total",
		Help: "Snapshot saves by result",
	}, []string{"result"})
	SnapshotListDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redistrict_snapshot_list_duration_ms",
		Help:    "Snapshot listing duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_snapshot_cache_hits_total",
		Help: "Snapshot body cache hits by layer",
	}, []string{"layer"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redistrict_snapshot_cache_misses_total",
		Help: "Snapshot body cache misses",
	})
	UploadRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_upload_rows_total",
		Help: "Parsed assignment rows by file format",
	}, []string{"format"})
	CatalogWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_catalog_writes_total",
		Help: "Catalog record attempts by result",
	}, []string{"result"})
	NotifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redistrict_notify_total",
		Help: "Save webhook deliveries by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ShapesDrawnTotal)
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(SnapshotSavesTotal)
	prometheus.MustRegister(SnapshotListDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(UploadRowsTotal)
	prometheus.MustRegister(CatalogWritesTotal)
	prometheus.MustRegister(NotifyTotal)
}

// 文档注释：返回 Prometheus 指标处理器，由主入口挂载到 <API_BASE>/metrics
func Handler() http.Handler { return promhttp.Handler() }
