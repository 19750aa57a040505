package boundary

import (
	"fmt"
	"math/rand/v2"
)

// StyleFor：实时编辑视图样式；名称与高亮名一致时使用高亮样式，忽略边界自身颜色
func StyleFor(b Boundary, highlighted string) Style {
	if highlighted != "" && b.Name == highlighted {
		return Style{FillColor: HighlightColor, Color: HighlightColor, Weight: 2, FillOpacity: 0.6}
	}
	c := colorOf(b)
	return Style{FillColor: c, Color: c, Weight: 1, FillOpacity: 0.4}
}

// VersionStyle：历史快照视图样式，已编辑（非主色）边界提高不透明度
func VersionStyle(b Boundary) Style {
	c := colorOf(b)
	op := 0.4
	if c != PrimaryColor {
		op = 0.6
	}
	return Style{FillColor: c, Color: c, Weight: 1, FillOpacity: op}
}

func colorOf(b Boundary) string {
	if b.Color == "" {
		return PrimaryColor
	}
	return b.Color
}

// RandomColor：提议形状的随机颜色，避开主色以保证与未编辑边界可区分
func RandomColor() string {
	for {
		c := fmt.Sprintf("#%06x", rand.IntN(0x1000000))
		if c != "#b58264" {
			return c
		}
	}
}
