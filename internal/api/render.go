package api

import (
	"encoding/json"
	"strings"

	"github.com/paulmach/orb/geojson"

	"redistrict/internal/boundary"
)

const propStyle = "style"

// styled：集合转 FeatureCollection，每个要素附带 style 属性
func styled(c boundary.Collection, style func(boundary.Boundary) boundary.Style) (json.RawMessage, error) {
	fc := geojson.NewFeatureCollection()
	for _, b := range c {
		f, err := boundary.ToFeature(b)
		if err != nil {
			return nil, err
		}
		f.Properties[propStyle] = style(b)
		fc.Append(f)
	}
	return json.Marshal(fc)
}

// pendingLayer：待提交形状按各自随机色渲染
func pendingLayer(shapes []boundary.ProposedShape, subregion string) (json.RawMessage, error) {
	c := make(boundary.Collection, 0, len(shapes))
	for _, p := range shapes {
		c = append(c, boundary.Boundary{Name: strings.TrimSpace(subregion + " " + boundary.ProposedSuffix), Color: p.Color, Geometry: p.Geometry})
	}
	return styled(c, func(b boundary.Boundary) boundary.Style { return boundary.StyleFor(b, "") })
}
