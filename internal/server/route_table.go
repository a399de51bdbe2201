package server

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/supercache/supercache/internal/config"
)

// Route 是一条路径前缀规则与源站地址的组合，代理层据此决定是否跳过缓存。
type Route struct {
	Prefix string
	// NoCache 为 true 时该前缀下的响应一律不写入缓存，也不会从缓存读取。
	NoCache bool
	// UpstreamURL 在构造 RouteTable 时解析完成，所有路由共享同一源站。
	UpstreamURL *url.URL
}

// RouteTable 提供请求路径到 Route 的查询能力，最长前缀优先。
type RouteTable struct {
	// ordered 按前缀长度降序排列，Lookup 时第一个命中即为最长前缀。
	ordered []*Route
}

// NewRouteTable 根据配置构建路由表。未声明 "/" 时自动补一条默认可缓存路由。
func NewRouteTable(cfg *config.Config) (*RouteTable, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	upstreamURL, err := url.Parse(cfg.Global.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream: %w", err)
	}
	if upstreamURL.Scheme == "" || upstreamURL.Host == "" {
		return nil, fmt.Errorf("invalid upstream: %s", cfg.Global.Upstream)
	}

	table := &RouteTable{}
	seen := make(map[string]struct{}, len(cfg.Routes)+1)
	for _, rc := range cfg.Routes {
		prefix := normalizePrefix(rc.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("invalid route prefix %q", rc.Prefix)
		}
		if _, exists := seen[prefix]; exists {
			return nil, fmt.Errorf("duplicate route prefix detected for %s", prefix)
		}
		seen[prefix] = struct{}{}
		table.ordered = append(table.ordered, &Route{
			Prefix:      prefix,
			NoCache:     rc.NoCache,
			UpstreamURL: upstreamURL,
		})
	}
	if _, exists := seen["/"]; !exists {
		table.ordered = append(table.ordered, &Route{Prefix: "/", UpstreamURL: upstreamURL})
	}

	sort.SliceStable(table.ordered, func(i, j int) bool {
		return len(table.ordered[i].Prefix) > len(table.ordered[j].Prefix)
	})
	return table, nil
}

// Lookup 返回匹配 path 的最长前缀路由。前缀按路径段匹配：/admin 命中
// /admin 与 /admin/users，但不命中 /administrator。
func (t *RouteTable) Lookup(path string) (*Route, bool) {
	if t == nil {
		return nil, false
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for _, route := range t.ordered {
		if matchPrefix(route.Prefix, path) {
			return route, true
		}
	}
	return nil, false
}

// List 返回路由副本（按匹配优先级排序），用于启动日志与诊断输出。
func (t *RouteTable) List() []Route {
	if t == nil || len(t.ordered) == 0 {
		return nil
	}
	result := make([]Route, len(t.ordered))
	for i, route := range t.ordered {
		result[i] = *route
	}
	return result
}

func matchPrefix(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func normalizePrefix(raw string) string {
	prefix := strings.TrimSpace(raw)
	if prefix == "" || !strings.HasPrefix(prefix, "/") {
		return ""
	}
	if prefix != "/" {
		prefix = strings.TrimRight(prefix, "/")
		if prefix == "" {
			prefix = "/"
		}
	}
	return prefix
}
