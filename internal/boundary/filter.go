package boundary

import "sort"

// FilterByRegion：按区域代码过滤；"All" 返回整体副本，输入不被修改
// 未归属区域的边界（Region 为 nil）在任何区域下都保留
func FilterByRegion(c Collection, code string) Collection {
	if code == AllRegions {
		return c.Clone()
	}
	code = NormalizeRegion(code)
	out := Collection{}
	for _, b := range c {
		if b.Region == nil || *b.Region == code {
			out = append(out, b)
		}
	}
	return out
}

// Subregions：集合内去重后的边界名称（升序），供子区域选择器使用
func Subregions(c Collection) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, b := range c {
		if _, ok := seen[b.Name]; ok {
			continue
		}
		seen[b.Name] = struct{}{}
		out = append(out, b.Name)
	}
	sort.Strings(out)
	return out
}
