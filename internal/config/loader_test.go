package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFailsWithMissingFields(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
}

func TestLoadFailsWithMissingFile(t *testing.T) {
	if _, err := Load(testConfigPath(t, "absent.toml")); err == nil {
		t.Fatalf("配置文件不存在时应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
StoragePath = "./data"
Upstream = "http://origin.local"
UpstreamTimeout = "boom"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadParsesNumericDuration(t *testing.T) {
	cfg := `
StoragePath = "./data"
Upstream = "http://origin.local"
UpstreamTimeout = 5
`
	path := writeTempConfig(t, cfg)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.UpstreamTimeout.DurationValue() != 5*time.Second {
		t.Fatalf("纯数字应按秒解析, got %s", loaded.Global.UpstreamTimeout.DurationValue())
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	cfg := `
StoragePath = "./data"
Upstream = "http://origin.local"

[Cache]
Environment = "prod"
`
	t.Setenv("SUPERCACHE_CACHE_ENVIRONMENT", "dev")
	t.Setenv("SUPERCACHE_LISTENPORT", "6100")

	path := writeTempConfig(t, cfg)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Cache.Environment != "dev" {
		t.Fatalf("环境变量应覆盖 Cache.Environment, got %s", loaded.Cache.Environment)
	}
	if loaded.Global.ListenPort != 6100 {
		t.Fatalf("环境变量应覆盖 ListenPort, got %d", loaded.Global.ListenPort)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90")); err != nil || d.DurationValue() != 90*time.Second {
		t.Fatalf("纯秒值解析失败: %v %s", err, d.DurationValue())
	}
	if err := d.UnmarshalText([]byte("2m")); err != nil || d.DurationValue() != 2*time.Minute {
		t.Fatalf("Duration 字符串解析失败: %v", err)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatalf("非法值应报错")
	}
}

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}
