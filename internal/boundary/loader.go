package boundary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON 属性键：沿用人口普查县界文件的列名
const (
	propName     = "NAME"
	propRegion   = "STATEFP"
	propColor    = "color"
	propSalesRep = "SalesRep"
	propProduct  = "Product"
)

// 文档注释：从磁盘加载底图边界集合
// 背景：底图为县级 FeatureCollection；缺色补主色，STATEFP 统一补零到两位，保证 "1" 与 "01" 视为同一区域。
// 约束：失败时返回空集合与错误，调用方可继续渲染空图；文件缺失返回 ErrNotFound，解析失败返回 *LoadError。
func LoadBase(path string) (Collection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Collection{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Collection{}, &LoadError{Path: path, Err: err}
	}
	c, err := Decode(b)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return Collection{}, err
	}
	return c, nil
}

// Decode：解析 GeoJSON FeatureCollection 字节流
func Decode(b []byte) (Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return Collection{}, &LoadError{Err: err}
	}
	out := make(Collection, 0, len(fc.Features))
	for i, f := range fc.Features {
		bd, err := fromFeature(f)
		if err != nil {
			return Collection{}, &LoadError{Err: fmt.Errorf("feature %d: %w", i, err)}
		}
		out = append(out, bd)
	}
	return out, nil
}

func fromFeature(f *geojson.Feature) (Boundary, error) {
	var b Boundary
	switch f.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		b.Geometry = f.Geometry
	default:
		return b, ErrUnsupportedGeometry
	}
	p := f.Properties
	b.Name = propString(p, propName)
	if code := propString(p, propRegion); code != "" {
		b.Region = StrPtr(NormalizeRegion(code))
	}
	b.Color = propString(p, propColor)
	if b.Color == "" {
		b.Color = PrimaryColor
	}
	if v := propString(p, propSalesRep); v != "" {
		b.SalesRep = StrPtr(v)
	}
	if v := propString(p, propProduct); v != "" {
		b.Product = StrPtr(v)
	}
	return b, nil
}

// Encode：序列化为 GeoJSON FeatureCollection；未归属区域与缺省属性写为 null
func Encode(c Collection) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, b := range c {
		f, err := ToFeature(b)
		if err != nil {
			return nil, err
		}
		fc.Append(f)
	}
	return json.Marshal(fc)
}

// ToFeature：单个边界转为 GeoJSON 要素，属性键与底图文件一致
func ToFeature(b Boundary) (*geojson.Feature, error) {
	if b.Geometry == nil {
		return nil, fmt.Errorf("boundary %q has no geometry", b.Name)
	}
	f := geojson.NewFeature(b.Geometry)
	f.Properties[propName] = b.Name
	f.Properties[propRegion] = optional(b.Region)
	color := b.Color
	if color == "" {
		color = PrimaryColor
	}
	f.Properties[propColor] = color
	f.Properties[propSalesRep] = optional(b.SalesRep)
	f.Properties[propProduct] = optional(b.Product)
	return f, nil
}

// NormalizeRegion：区域代码去空白后左侧补零到固定宽度
func NormalizeRegion(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || code == AllRegions {
		return code
	}
	if n := regionWidth - len(code); n > 0 {
		code = strings.Repeat("0", n) + code
	}
	return code
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// propString：属性值统一转字符串；数值型区域代码（如 6）按整数格式输出
func propString(p geojson.Properties, k string) string {
	switch v := p[k].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
