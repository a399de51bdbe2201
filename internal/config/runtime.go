package config

import "github.com/supercache/supercache/internal/policy"

// EngineOptions 将 [Cache] 段转换为决策引擎的只读配置。
func (c *Config) EngineOptions() policy.Options {
	return policy.Options{
		Environment:  c.Cache.Environment,
		EnableProd:   c.Cache.EnableProd,
		EnableDev:    c.Cache.EnableDev,
		StatusHeader: c.Cache.StatusHeader,
	}
}

// NoCachePrefixes 返回所有关闭缓存的路由前缀，供启动日志输出。
func (c *Config) NoCachePrefixes() []string {
	var prefixes []string
	for _, route := range c.Routes {
		if route.NoCache {
			prefixes = append(prefixes, route.Prefix)
		}
	}
	return prefixes
}
