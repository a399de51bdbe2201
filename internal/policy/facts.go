package policy

import (
	"net/http"
	"strings"
)

// Request 汇总决策链需要的请求事实。
type Request struct {
	Method   string
	Path     string
	RawQuery string
	// OptOut 由路由层设置，表示该路由显式关闭缓存。
	OptOut bool
}

// Response 汇总决策链需要的响应事实。
type Response struct {
	StatusCode   int
	Body         []byte
	ContentType  string
	CacheControl string
}

// Successful 判断状态码是否位于 2xx。
func (r Response) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Empty 判断响应是否没有可缓存的正文。
func (r Response) Empty() bool {
	return r.StatusCode == http.StatusNoContent || r.StatusCode == http.StatusNotModified || len(r.Body) == 0
}

// HasDirective 判断 Cache-Control 中是否出现指定指令，忽略大小写与参数值。
func (r Response) HasDirective(name string) bool {
	for _, part := range strings.Split(r.CacheControl, ",") {
		directive := strings.TrimSpace(part)
		if idx := strings.IndexByte(directive, '='); idx >= 0 {
			directive = strings.TrimSpace(directive[:idx])
		}
		if strings.EqualFold(directive, name) {
			return true
		}
	}
	return false
}
