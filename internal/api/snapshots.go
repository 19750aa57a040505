package api

import (
	"errors"
	"net/http"
	"strconv"

	"redistrict/internal/boundary"
	"redistrict/internal/snapshot"
)

// listSnapshots：每次请求重新扫描存储，最新在前
func (h *handlers) listSnapshots(w http.ResponseWriter, r *http.Request) {
	ids, err := h.d.Snapshots.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]snapshotItem, 0, len(ids))
	for _, id := range ids {
		it := snapshotItem{ID: string(id), Name: snapshot.DisplayName(id)}
		if ts, ok := snapshot.ParseTimestamp(string(id)); ok {
			it.SavedAt = &ts
		}
		out = append(out, it)
	}
	writeJSON(w, http.StatusOK, out)
}

// 文档注释：历史版本预览
// 背景：快照写入后不再修改，正文按 ID 缓存；渲染使用版本样式，已编辑边界（颜色偏离主色）更醒目。
// 约束：文件损坏返回 500 且不写缓存。
func (h *handlers) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id := snapshot.ID(r.PathValue("id"))
	body, hit := h.d.Cache.Get(r.Context(), string(id))
	if !hit {
		var err error
		body, err = h.d.Snapshots.Raw(r.Context(), id)
		if err != nil {
			writeErr(w, r, err)
			return
		}
	}
	c, err := boundary.Decode(body)
	if err != nil {
		var le *boundary.LoadError
		if errors.As(err, &le) {
			le.Path = string(id)
		}
		writeErr(w, r, err)
		return
	}
	if !hit {
		h.d.Cache.Set(r.Context(), string(id), body)
	}
	layer, err := styled(c, boundary.VersionStyle)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	edited := 0
	for _, b := range c {
		if b.Edited() {
			edited++
		}
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		ID:         string(id),
		Name:       snapshot.DisplayName(id),
		View:       boundary.ViewCenter(c),
		Count:      len(c),
		Edited:     edited,
		Collection: layer,
	})
}

func (h *handlers) catalogHistory(w http.ResponseWriter, r *http.Request) {
	if h.d.Catalog == nil {
		writeError(w, http.StatusNotFound, "catalog disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.d.Catalog.History(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) catalogBoundaries(w http.ResponseWriter, r *http.Request) {
	if h.d.Catalog == nil {
		writeError(w, http.StatusNotFound, "catalog disabled")
		return
	}
	rows, err := h.d.Catalog.Boundaries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "snapshot not in catalog")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
