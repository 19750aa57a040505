package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"redistrict/internal/boundary"
	"redistrict/internal/logger"
	"redistrict/internal/session"
	"redistrict/internal/snapshot"
	"redistrict/internal/upload"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// 文档注释：错误到状态码的映射
// 约束：5xx 记录 warn 日志；4xx 直接返回错误文本，供界面展示。
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.L().Warn("api_error", "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	var (
		pe *upload.ParseError
		me *http.MaxBytesError
	)
	switch {
	case errors.Is(err, boundary.ErrNotFound), errors.Is(err, snapshot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, snapshot.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, boundary.ErrNoPendingShapes), errors.Is(err, session.ErrPendingWouldBeDiscarded):
		return http.StatusConflict
	case errors.Is(err, upload.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &me):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, boundary.ErrUnsupportedGeometry), errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody：JSON 请求体，上限 1MiB，拒绝未知字段
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
