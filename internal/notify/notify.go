// 包 notify：快照保存后的 Webhook 通知
package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"redistrict/internal/logger"
	"redistrict/internal/metrics"
)

// Event：一次成功保存的摘要
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SavedAt    time.Time `json:"saved_at"`
	Boundaries int       `json:"boundaries"`
	Proposed   int       `json:"proposed"`
}

type Notifier struct {
	client *resty.Client
	url    string
}

// NewFromEnv：未配置 NOTIFY_WEBHOOK_URL 时返回 nil（通知关闭）
func NewFromEnv() *Notifier {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	if url == "" {
		return nil
	}
	timeout := 3 * time.Second
	if v, err := strconv.Atoi(os.Getenv("NOTIFY_TIMEOUT_MS")); err == nil && v > 0 {
		timeout = time.Duration(v) * time.Millisecond
	}
	return New(url, timeout)
}

// 文档注释：构造 Webhook 客户端
// 约束：不重试；保存结果已落盘，通知失败只记录日志，不回滚也不重放。
func New(url string, timeout time.Duration) *Notifier {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "redistrict-notify")
	return &Notifier{client: c, url: url}
}

// Notify：投递事件；非 2xx 视为失败，失败由调用方记录日志
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(ev).
		Post(n.url)
	if err != nil {
		metrics.NotifyTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("notify %s: %w", ev.ID, err)
	}
	if resp.IsError() {
		metrics.NotifyTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("notify %s: webhook returned %d", ev.ID, resp.StatusCode())
	}
	metrics.NotifyTotal.WithLabelValues("ok").Inc()
	logger.L().Debug("notify_ok", "id", ev.ID, "status", resp.StatusCode())
	return nil
}
