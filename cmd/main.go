// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"redistrict/internal/api"
	"redistrict/internal/boundary"
	"redistrict/internal/cache"
	"redistrict/internal/logger"
	"redistrict/internal/metrics"
	"redistrict/internal/middleware"
	"redistrict/internal/migrate"
	"redistrict/internal/notify"
	"redistrict/internal/session"
	"redistrict/internal/snapshot"
	"redistrict/internal/store"
	"redistrict/internal/utils"
	"redistrict/internal/version"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)
	apiBase := strings.TrimRight(envOr("API_BASE", "/api"), "/")
	l.Debug("config_api_base", "base", apiBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 底图与区域表缺失时降级为空图，服务照常启动
	basePath := envOr("BASE_GEOJSON", filepath.Join("data", "input", "counties_0.geojson"))
	base, err := boundary.LoadBase(basePath)
	if err != nil {
		l.Error("base_load_error", "path", basePath, "err", err)
	} else {
		l.Info("base_load_ok", "path", basePath, "boundaries", len(base))
	}
	regionsPath := envOr("REGION_CODES", filepath.Join("data", "input", "state_code_to_name_0.json"))
	regions, err := boundary.LoadRegions(regionsPath)
	if err != nil {
		l.Warn("regions_load_error", "path", regionsPath, "err", err)
	}

	snapStore, err := snapshot.OpenFromEnv(ctx)
	if err != nil {
		l.Error("snapshot_store_error", "err", err)
		os.Exit(1)
	}
	l.Info("snapshot_store_ok", "driver", snapStore.Driver())

	var catalog api.Catalog
	if db, dialect := openCatalog(); db != nil {
		defer db.Close()
		catalog = store.AttachDB(db, dialect)
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	var notifier api.Notifier
	if n := notify.NewFromEnv(); n != nil {
		notifier = n
		l.Info("notify_enabled")
	}

	uploadMax := int64(10 << 20)
	if n, e := strconv.ParseInt(os.Getenv("UPLOAD_MAX_BYTES"), 10, 64); e == nil && n > 0 {
		uploadMax = n
	}

	sessions := session.NewRegistry()
	sessions.StartSweeper(ctx)

	apiMux := api.BuildRoutes(api.Deps{
		Base:           base,
		Regions:        regions,
		Snapshots:      snapshot.NewManager(snapStore),
		Sessions:       sessions,
		Catalog:        catalog,
		Cache:          cache.NewSnapshotsFromEnv(rc),
		Notifier:       notifier,
		UploadMaxBytes: uploadMax,
	})
	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok " + version.Commit + "\n"))
	})

	addr := envOr("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := envOr("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := envOr("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "redistrict.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		serve(l, s.ListenAndServeTLS(certPath, keyPath))
		return
	}
	l.Info("listening", "addr", addr)
	serve(l, s.ListenAndServe())
}

// openCatalog：目录不可用时关闭该功能，不影响快照保存
func openCatalog() (*sql.DB, string) {
	l := logger.L()
	db, dialect, err := utils.OpenCatalogFromEnv()
	if err != nil {
		l.Error("catalog_open_error", "err", err)
		return nil, ""
	}
	if db == nil {
		l.Info("catalog_disabled")
		return nil, ""
	}
	if err := db.Ping(); err != nil {
		l.Error("catalog_ping_error", "dialect", dialect, "err", err)
		_ = db.Close()
		return nil, ""
	}
	if err := migrate.EnsureSchema(db, dialect); err != nil {
		l.Error("schema_error", "dialect", dialect, "err", err)
		_ = db.Close()
		return nil, ""
	}
	l.Info("catalog_ok", "dialect", dialect)
	return db, dialect
}

func serve(l *slog.Logger, err error) {
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
