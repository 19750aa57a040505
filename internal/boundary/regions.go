package boundary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Regions：区域代码到显示名的静态映射，启动时加载一次
type Regions map[string]string

// LoadRegions：读取 {"06": "California", ...} 形式的 JSON 对象；键按区域代码规则补零
func LoadRegions(path string) (Regions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Regions{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Regions{}, &LoadError{Path: path, Err: err}
	}
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return Regions{}, &LoadError{Path: path, Err: err}
	}
	out := make(Regions, len(raw))
	for k, v := range raw {
		out[NormalizeRegion(k)] = v
	}
	return out, nil
}

// Name：未知代码渲染为 "Unknown (<code>)"
func (r Regions) Name(code string) string {
	if code == AllRegions {
		return AllRegions
	}
	if n, ok := r[code]; ok {
		return n
	}
	return fmt.Sprintf("Unknown (%s)", code)
}

type RegionOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Options：区域选择器条目，"All" 置首，其后为数据与映射表共有的代码（升序）
func (r Regions) Options(c Collection) []RegionOption {
	seen := map[string]struct{}{}
	var codes []string
	for _, b := range c {
		code := b.RegionCode()
		if code == "" {
			continue
		}
		if _, ok := r[code]; !ok {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := []RegionOption{{Code: AllRegions, Name: AllRegions}}
	for _, code := range codes {
		out = append(out, RegionOption{Code: code, Name: r[code]})
	}
	return out
}
