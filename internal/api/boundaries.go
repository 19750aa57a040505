package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"redistrict/internal/boundary"
)

func (h *handlers) regions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Regions.Options(h.d.Base))
}

// 文档注释：当前底图（按区域过滤）与实时样式
// 背景：带 session 参数时使用该会话的区域与上传属性；否则按 region 参数过滤，缺省为 "All"。
// 约束：highlight 为要高亮的边界名称，仅影响样式。
func (h *handlers) boundaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	region := boundary.NormalizeRegion(q.Get("region"))
	var c boundary.Collection
	if sid := q.Get("session"); sid != "" {
		s, ok := h.d.Sessions.Get(sid)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		c = s.View(h.d.Base)
		region = s.Status().Region
	} else {
		if region == "" {
			region = boundary.AllRegions
		}
		c = boundary.FilterByRegion(h.d.Base, region)
	}
	if region == "" {
		region = boundary.AllRegions
	}
	highlight := q.Get("highlight")
	body, err := styled(c, func(b boundary.Boundary) boundary.Style { return boundary.StyleFor(b, highlight) })
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boundariesResponse{
		Region:     region,
		RegionName: h.d.Regions.Name(region),
		View:       viewFor(c, region),
		Count:      len(c),
		Collection: body,
	})
}

// viewFor：未选区域时固定全国视图
func viewFor(c boundary.Collection, region string) boundary.View {
	if region == boundary.AllRegions {
		return boundary.View{Lat: boundary.DefaultLat, Lon: boundary.DefaultLon, Zoom: boundary.DefaultZoom}
	}
	return boundary.ViewCenter(c)
}

func (h *handlers) subregions(w http.ResponseWriter, r *http.Request) {
	region := boundary.NormalizeRegion(r.URL.Query().Get("region"))
	if region == "" {
		region = boundary.AllRegions
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"region":     region,
		"subregions": boundary.Subregions(boundary.FilterByRegion(h.d.Base, region)),
	})
}

func (h *handlers) locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(q.Get("lon")), 64)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be numbers")
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lat/lon out of range")
		return
	}
	region := boundary.NormalizeRegion(q.Get("region"))
	if region == "" {
		region = boundary.AllRegions
	}
	b, ok := boundary.Locate(boundary.FilterByRegion(h.d.Base, region), lat, lon)
	if !ok {
		writeError(w, http.StatusNotFound, "no boundary at point")
		return
	}
	writeJSON(w, http.StatusOK, locateResponse{Name: b.Name, Region: b.Region, SalesRep: b.SalesRep, Product: b.Product})
}
