package server

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/supercache/supercache/internal/config"
)

const defaultUpstreamTimeout = 30 * time.Second

// 所有源站请求共享同一个 Transport，复用长连接。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回访问源站的共享 http.Client。重定向原样交还给客户端，
// 不在代理内部跟随。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	timeout := defaultUpstreamTimeout
	if cfg != nil && cfg.Global.UpstreamTimeout.DurationValue() > 0 {
		timeout = cfg.Global.UpstreamTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// hopByHopHeaders 定义 RFC 7230 中禁止代理转发的头部。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {},
}

// CopyHeaders 将 src 中允许透传的头复制到 dst，忽略 hop-by-hop 字段以及
// Connection 头中点名的字段。
func CopyHeaders(dst, src http.Header) {
	listed := connectionTokens(src)
	for key, values := range src {
		if IsHopByHopHeader(key) {
			continue
		}
		if _, ok := listed[textproto.CanonicalMIMEHeaderKey(key)]; ok {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// IsHopByHopHeader reports whether the header should be stripped by proxies.
func IsHopByHopHeader(key string) bool {
	_, ok := hopByHopHeaders[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

// SetForwardedHeaders 追加 X-Forwarded-* 头，已有的 X-Forwarded-For 会被延长而不是覆盖。
func SetForwardedHeaders(h http.Header, clientIP, host, proto string) {
	if clientIP != "" {
		if prior := h.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		h.Set("X-Forwarded-For", clientIP)
	}
	if host != "" {
		h.Set("X-Forwarded-Host", host)
	}
	if proto != "" {
		h.Set("X-Forwarded-Proto", proto)
	}
}

func connectionTokens(h http.Header) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, value := range h.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens[textproto.CanonicalMIMEHeaderKey(token)] = struct{}{}
			}
		}
	}
	return tokens
}
