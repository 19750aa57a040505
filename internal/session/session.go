// 包 session：单个编辑会话的显式上下文与状态机
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"redistrict/internal/boundary"
	"redistrict/internal/metrics"
	"redistrict/internal/snapshot"
	"redistrict/internal/upload"
)

// State：保存成功是瞬时转移，会话随即回到 Idle，结果由 Status.LastSaved 给出
type State int

const (
	Idle State = iota
	Drawing
	PendingReview
)

func (s State) String() string {
	switch s {
	case Drawing:
		return "drawing"
	case PendingReview:
		return "pending_review"
	default:
		return "idle"
	}
}

var ErrPendingWouldBeDiscarded = errors.New("switching region discards pending shapes; confirm to continue")

// Saver：快照写入方；成功返回后才清空待提交形状
type Saver interface {
	Save(ctx context.Context, c boundary.Collection, name string, at time.Time) (snapshot.ID, error)
}

type pendingShape struct {
	shape  boundary.ProposedShape
	region string
}

// 文档注释：编辑会话
// 背景：替代全局会话状态；待提交形状、上次绘制形状与已触碰区域都挂在会话对象上，每个操作显式传入。
// 约束：同一会话的操作串行执行（互斥锁）；已触碰区域在会话内累积，保存后不清空，放弃待提交形状不影响已提交批次。
type Session struct {
	mu sync.Mutex

	ID        string
	region    string
	subregion string
	state     State
	pending   []pendingShape
	last      orb.Geometry
	committed map[string]struct{}
	assign    []upload.Assignment
	lastSaved snapshot.ID
	colors    func() string
}

func New() *Session {
	return &Session{ID: uuid.NewString(), committed: map[string]struct{}{}, colors: boundary.RandomColor}
}

// WithColors：替换颜色生成器（测试用）
func (s *Session) WithColors(f func() string) *Session {
	s.colors = f
	return s
}

// 文档注释：选择区域与子区域
// 背景：区域变化且存在待提交形状时需显式确认，确认后丢弃待提交形状；同一区域内切换子区域保留待提交形状。
// 约束：选择 "All" 同样进入 Drawing；未确认时会话保持原样并返回 ErrPendingWouldBeDiscarded；
// 区域变化后重复判定从头开始。
func (s *Session) Select(region, subregion string, confirmDiscard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	region = boundary.NormalizeRegion(region)
	if region != s.region {
		if len(s.pending) > 0 {
			if !confirmDiscard {
				return ErrPendingWouldBeDiscarded
			}
			s.pending = nil
		}
		s.last = nil
	}
	s.region = region
	s.subregion = subregion
	if len(s.pending) > 0 {
		s.state = PendingReview
	} else {
		s.state = Drawing
	}
	return nil
}

// Draw：记录一次绘制事件；与上次绘制完全相同的形状视为重复事件，不追加
func (s *Session) Draw(g orb.Geometry) (boundary.ProposedShape, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		metrics.ShapesDrawnTotal.WithLabelValues("rejected").Inc()
		return boundary.ProposedShape{}, false, boundary.ErrUnsupportedGeometry
	}
	if s.last != nil && orb.Equal(s.last, g) {
		metrics.ShapesDrawnTotal.WithLabelValues("repeat").Inc()
		return boundary.ProposedShape{}, false, nil
	}
	s.last = g
	p := boundary.ProposedShape{Geometry: g, Color: s.colors()}
	s.pending = append(s.pending, pendingShape{shape: p, region: s.region})
	s.state = PendingReview
	metrics.ShapesDrawnTotal.WithLabelValues("added").Inc()
	return p, true, nil
}

// SetAssignments：挂载上传的负责人/产品表，保存与视图渲染时合并到边界属性
func (s *Session) SetAssignments(rows []upload.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign = rows
}

// View：按当前会话的区域与上传属性渲染底图
func (s *Session) View(full boundary.Collection) boundary.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return boundary.FilterByRegion(upload.Apply(full, s.assign), s.filterRegion())
}

// 文档注释：合并并保存当前批次
// 背景：待提交形状与底图合并后整体写入快照；写入确认成功才清空待提交形状，失败时用户工作不丢失。
// 约束：无待提交形状返回 ErrNoPendingShapes；名称非法返回 snapshot.ErrEmptyName 且不触发合并；
// 成功后回到 Idle，新批次的第一笔绘制不会被当作重复。
func (s *Session) Save(ctx context.Context, saver Saver, full boundary.Collection, name string, at time.Time) (snapshot.ID, boundary.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", nil, boundary.ErrNoPendingShapes
	}
	if _, err := snapshot.SanitizeName(name); err != nil {
		return "", nil, err
	}
	base := upload.Apply(full, s.assign)
	shapes := make([]boundary.ProposedShape, len(s.pending))
	for i, p := range s.pending {
		shapes[i] = p.shape
	}
	merged, err := boundary.MergeProposed(boundary.MergeInput{
		Filtered:  boundary.FilterByRegion(base, s.filterRegion()),
		Full:      base,
		Pending:   shapes,
		Region:    s.region,
		Subregion: s.subregion,
		Touched:   s.touchedLocked(),
	})
	if err != nil {
		return "", nil, err
	}
	metrics.MergesTotal.Inc()
	id, err := saver.Save(ctx, merged, name, at)
	if err != nil {
		return "", nil, err
	}
	for _, p := range s.pending {
		if p.region != "" && p.region != boundary.AllRegions {
			s.committed[p.region] = struct{}{}
		}
	}
	s.pending = nil
	s.last = nil
	s.lastSaved = id
	s.state = Idle
	return id, merged, nil
}

// Abandon：丢弃待提交形状并回到 Idle
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.last = nil
	s.state = Idle
}

type Status struct {
	ID        string                   `json:"id"`
	State     string                   `json:"state"`
	Region    string                   `json:"region"`
	Subregion string                   `json:"subregion"`
	Pending   []boundary.ProposedShape `json:"-"`
	Touched   []string                 `json:"touched_regions"`
	LastSaved string                   `json:"last_saved,omitempty"`
}

// Status：会话状态的只读副本
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Status{
		ID:        s.ID,
		State:     s.state.String(),
		Region:    s.region,
		Subregion: s.subregion,
		Touched:   s.touchedLocked(),
		LastSaved: string(s.lastSaved),
	}
	for _, p := range s.pending {
		out.Pending = append(out.Pending, p.shape)
	}
	return out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) filterRegion() string {
	if s.region == "" {
		return boundary.AllRegions
	}
	return s.region
}

func (s *Session) touchedLocked() []string {
	set := map[string]struct{}{}
	for r := range s.committed {
		set[r] = struct{}{}
	}
	for _, p := range s.pending {
		if p.region != "" && p.region != boundary.AllRegions {
			set[p.region] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
