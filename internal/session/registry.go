package session

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"redistrict/internal/logger"
)

// Registry：HTTP 层按 ID 持有会话，记录最近访问时间供过期清理
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

type entry struct {
	s    *Session
	seen time.Time
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*entry{}, now: time.Now}
}

func (r *Registry) Create() *Session {
	s := New()
	r.mu.Lock()
	r.sessions[s.ID] = &entry{s: s, seen: r.now()}
	r.mu.Unlock()
	return s
}

// Get：命中时刷新最近访问时间
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.seen = r.now()
	return e.s, true
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep：移除空闲超过 ttl 的会话，返回移除数量
// 约束：待提交形状随会话一起丢弃；已保存的快照不受影响
func (r *Registry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-ttl)
	n := 0
	for id, e := range r.sessions {
		if e.seen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// 文档注释：后台定期清理空闲会话
// 背景：浏览器关闭不会通知服务端，会话只能按空闲时间回收；清理结果仅记日志。
// 约束：SESSION_IDLE_TTL_MIN 覆盖空闲时长（默认 720 分钟）；扫描间隔取 ttl/4，最短 1 分钟；ctx 结束即退出。
func (r *Registry) StartSweeper(ctx context.Context) {
	l := logger.L()
	ttl := 720 * time.Minute
	if n, err := strconv.Atoi(os.Getenv("SESSION_IDLE_TTL_MIN")); err == nil && n > 0 {
		ttl = time.Duration(n) * time.Minute
	}
	every := max(ttl/4, time.Minute)
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := r.Sweep(ttl); n > 0 {
					l.Info("session_sweep", "removed", n, "remaining", r.Len())
				}
			}
		}
	}()
}
