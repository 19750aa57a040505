package boundary

import (
	"sort"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
)

// MergeInput：一次保存所需的全部输入
type MergeInput struct {
	Filtered  Collection      // 当前视图（已按区域过滤）
	Full      Collection      // 完整底图
	Pending   []ProposedShape // 待提交形状
	Region    string          // 选中区域代码；"All" 或空串表示未选
	Subregion string          // 选中子区域名，用于提议边界命名
	Touched   []string        // 本会话内收到过提议形状的区域
}

// 文档注释：合并提议形状生成新的边界集合
// 背景：一个区域只要被编辑过，其所有既有边界都要出现在结果中并统一改回主色，标记“此区域已被触碰”；
// 提议形状按随机色追加，名称为 "<子区域> (Proposed)"。
// 约束：Pending 为空返回 ErrNoPendingShapes；结果按 (区域, 名称, 几何) 去重；输入集合不被修改。
func MergeProposed(in MergeInput) (Collection, error) {
	if len(in.Pending) == 0 {
		return nil, ErrNoPendingShapes
	}
	out := in.Filtered.Clone()

	affected := affectedRegions(in.Region, in.Touched)
	if len(affected) > 0 {
		codes := make([]string, 0, len(affected))
		for code := range affected {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			out = append(out, FilterByRegion(in.Full, code)...)
		}
		out = Dedup(out)
		for i := range out {
			if _, ok := affected[out[i].RegionCode()]; ok && !out[i].Proposed() {
				out[i].Color = PrimaryColor
			}
		}
	}

	var region *string
	if selected(in.Region) {
		region = StrPtr(NormalizeRegion(in.Region))
	}
	name := strings.TrimSpace(in.Subregion + " " + ProposedSuffix)
	for _, p := range in.Pending {
		out = append(out, Boundary{Region: region, Name: name, Color: p.Color, Geometry: p.Geometry})
	}
	return Dedup(out), nil
}

// Dedup：按 (区域, 名称, 几何) 去重，保留首次出现的元素与顺序
func Dedup(c Collection) Collection {
	seen := make(map[dedupKey]struct{}, len(c))
	out := make(Collection, 0, len(c))
	for _, b := range c {
		k := keyOf(b)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	return out
}

type dedupKey struct {
	assigned bool
	region   string
	name     string
	geom     string
}

// 几何以 WKT 文本比较，坐标逐位相等才视为同一几何
func keyOf(b Boundary) dedupKey {
	k := dedupKey{name: b.Name}
	if b.Region != nil {
		k.assigned = true
		k.region = *b.Region
	}
	if b.Geometry != nil {
		k.geom = wkt.MarshalString(b.Geometry)
	}
	return k
}

func affectedRegions(region string, touched []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range touched {
		if selected(t) {
			out[NormalizeRegion(t)] = struct{}{}
		}
	}
	if selected(region) {
		out[NormalizeRegion(region)] = struct{}{}
	}
	return out
}

func selected(region string) bool {
	region = strings.TrimSpace(region)
	return region != "" && region != AllRegions
}
