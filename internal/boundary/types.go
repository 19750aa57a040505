package boundary

import (
	"strings"

	"github.com/paulmach/orb"
)

// 文档注释：边界集合的最小数据结构
// 背景：统一承载底图边界、会话内提议边界与快照中的边界；属性为显式可选字段，不保留任意扩展键。
// 约束：几何仅支持 Polygon/MultiPolygon；几何一经赋值不再修改，集合复制时共享几何底层切片。
const (
	PrimaryColor   = "#B58264"
	HighlightColor = "#3A052E"
	// AllRegions 为区域选择器的哨兵值，表示不按区域过滤
	AllRegions     = "All"
	ProposedSuffix = "(Proposed)"
	regionWidth    = 2
)

type Boundary struct {
	Region   *string // nil 表示未归属任何区域，对所有区域过滤均可见
	Name     string
	Color    string
	SalesRep *string
	Product  *string
	Geometry orb.Geometry
}

// RegionCode：未归属时返回空串
func (b Boundary) RegionCode() string {
	if b.Region == nil {
		return ""
	}
	return *b.Region
}

// Proposed：是否为保存时由提议形状转成的边界
func (b Boundary) Proposed() bool { return strings.HasSuffix(b.Name, ProposedSuffix) }

// Edited：颜色偏离主色即视为已编辑（历史视图用于突出显示）
func (b Boundary) Edited() bool { return b.Color != "" && b.Color != PrimaryColor }

type Collection []Boundary

// Clone：浅复制边界列表，调用方可安全地增删元素或改色
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// ProposedShape：会话内绘制、尚未保存的形状，附带随机颜色
type ProposedShape struct {
	Geometry orb.Geometry
	Color    string
}

// Style：前端图层样式（字段名与地图组件约定一致）
type Style struct {
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
}

// StrPtr：构造可选字符串字段
func StrPtr(s string) *string { return &s }
