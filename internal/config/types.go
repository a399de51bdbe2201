package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级参数：监听端口、日志、缓存目录与源站。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	StoragePath     string   `mapstructure:"StoragePath"`
	Upstream        string   `mapstructure:"Upstream"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
}

// CacheConfig 对应 [Cache] 段，决定哪些运行环境允许写入缓存。
type CacheConfig struct {
	Environment  string `mapstructure:"Environment"`
	EnableProd   bool   `mapstructure:"EnableProd"`
	EnableDev    bool   `mapstructure:"EnableDev"`
	StatusHeader bool   `mapstructure:"StatusHeader"`
	// AdminRoutes 控制是否在代理端口暴露 /-/entries 与 /-/routes，默认关闭。
	AdminRoutes bool `mapstructure:"AdminRoutes"`
}

// RouteConfig 对应 [[Route]]，按路径前缀显式关闭缓存。
type RouteConfig struct {
	Prefix  string `mapstructure:"Prefix"`
	NoCache bool   `mapstructure:"NoCache"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig  `mapstructure:",squash"`
	Cache  CacheConfig   `mapstructure:"Cache"`
	Routes []RouteConfig `mapstructure:"Route"`
}
