package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"redistrict/internal/boundary"
	"redistrict/internal/logger"
	"redistrict/internal/notify"
	"redistrict/internal/session"
	"redistrict/internal/snapshot"
)

const maxShapeBytes = 8 << 20

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.d.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return s, ok
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.d.Sessions.Create()
	logger.L().Debug("session_created", "id", s.ID)
	h.writeStatus(w, http.StatusCreated, s)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.writeStatus(w, http.StatusOK, s)
	}
}

func (h *handlers) writeStatus(w http.ResponseWriter, code int, s *session.Session) {
	st := s.Status()
	layer, err := pendingLayer(st.Pending, st.Subregion)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, code, sessionResponse{Status: st, PendingCount: len(st.Pending), Pending: layer})
}

func (h *handlers) selectRegion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	region := strings.TrimSpace(req.Region)
	if region == "" {
		region = boundary.AllRegions
	}
	if err := s.Select(region, strings.TrimSpace(req.Subregion), req.ConfirmDiscard); err != nil {
		writeErr(w, r, err)
		return
	}
	h.writeStatus(w, http.StatusOK, s)
}

// 文档注释：接收一次绘制事件
// 背景：地图组件回传 GeoJSON 几何或 Feature；与上次绘制完全相同的形状视为组件重复回调，不追加。
// 约束：仅接受 Polygon/MultiPolygon，其他类型返回 422。
func (h *handlers) drawShape(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxShapeBytes))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	g, err := parseDrawn(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geojson: "+err.Error())
		return
	}
	p, added, err := s.Draw(g)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	writeJSON(w, code, drawResponse{Added: added, Color: p.Color, Pending: len(s.Status().Pending)})
}

func parseDrawn(raw []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.Type == "Feature" {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, err
		}
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

// 文档注释：合并并保存当前批次
// 背景：快照写入成功即视为保存成功；随后写目录与发送通知，二者失败只记日志，不影响响应。
// 约束：无待提交形状 409；名称清洗后为空 400；写入失败 500 且待提交形状保留。
func (h *handlers) saveSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	at := h.d.Now()
	id, merged, err := s.Save(r.Context(), h.d.Snapshots, h.d.Base, req.Name, at)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	resp := saveResponse{ID: string(id), Name: snapshot.DisplayName(id), Boundaries: len(merged)}
	for _, b := range merged {
		if b.Proposed() {
			resp.Proposed++
		}
	}
	h.afterSave(context.WithoutCancel(r.Context()), resp, at, merged)
	writeJSON(w, http.StatusCreated, resp)
}

// afterSave：目录与通知都是尽力而为
// 同名同秒保存会覆盖文件，缓存正文随之替换
func (h *handlers) afterSave(ctx context.Context, resp saveResponse, at time.Time, merged boundary.Collection) {
	if h.d.Cache != nil {
		if body, err := boundary.Encode(merged); err == nil {
			h.d.Cache.Set(ctx, resp.ID, body)
		}
	}
	if h.d.Catalog != nil {
		if err := h.d.Catalog.Record(ctx, resp.ID, resp.Name, at, merged); err != nil {
			logger.L().Warn("catalog_record_error", "id", resp.ID, "err", err)
		}
	}
	if h.d.Notifier != nil {
		ev := notify.Event{ID: resp.ID, Name: resp.Name, SavedAt: at, Boundaries: resp.Boundaries, Proposed: resp.Proposed}
		if err := h.d.Notifier.Notify(ctx, ev); err != nil {
			logger.L().Warn("notify_error", "id", resp.ID, "err", err)
		}
	}
}

func (h *handlers) abandon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Abandon()
	h.writeStatus(w, http.StatusOK, s)
}
