package middleware

import (
	"net/http"
	"strings"
)

// ClientIP：访问来源 IP，仅用于日志
// 约束：依次取 X-Forwarded-For 首段、X-Real-IP、Forwarded for=，最后回退远端地址；代理头可被伪造，不得用于鉴权
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("X-Forwarded-For"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("X-Real-IP"); x != "" {
		return x
	}
	if x := h.Get("Forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"")
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		return host[:i]
	}
	return host
}
