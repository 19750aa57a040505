package boundary

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 默认视图：本土中心点，全国缩放级别
const (
	DefaultLat  = 39.833
	DefaultLon  = -98.5795
	DefaultZoom = 4
	RegionZoom  = 6
)

type View struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// 文档注释：计算集合的地图视图中心
// 背景：以面积加权质心近似整体并集的质心，用于切换区域后居中地图。
// 约束：空集合或总面积为零时返回默认全国视图。
func ViewCenter(c Collection) View {
	var sx, sy, total float64
	for _, b := range c {
		if b.Geometry == nil {
			continue
		}
		p, a := planar.CentroidArea(b.Geometry)
		if a <= 0 {
			continue
		}
		sx += p[0] * a
		sy += p[1] * a
		total += a
	}
	if total == 0 {
		return View{Lat: DefaultLat, Lon: DefaultLon, Zoom: DefaultZoom}
	}
	return View{Lat: sy / total, Lon: sx / total, Zoom: RegionZoom}
}

// 文档注释：点定位到所在边界
// 背景：地图点击时返回所在边界名称；先用包围盒过滤候选，再做点入多边形判定（含洞）。
// 约束：坐标为 WGS84；多个边界重叠时返回集合中的首个命中。
func Locate(c Collection, lat, lon float64) (Boundary, bool) {
	pt := orb.Point{lon, lat}
	for _, b := range c {
		if b.Geometry == nil || !b.Geometry.Bound().Contains(pt) {
			continue
		}
		if contains(b.Geometry, pt) {
			return b, true
		}
	}
	return Boundary{}, false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	}
	return false
}
