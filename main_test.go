package main

import (
	"strings"
	"testing"
)

func TestConfigPathPriority(t *testing.T) {
	t.Setenv(configEnvKey, "/tmp/env.toml")

	opts := &cliOptions{}
	if got := opts.configPath(); got != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", got)
	}

	opts.configFlag = "/tmp/flag.toml"
	if got := opts.configPath(); got != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", got)
	}

	t.Setenv(configEnvKey, "")
	if got := (&cliOptions{}).configPath(); got != "config.toml" {
		t.Fatalf("默认应使用 config.toml，得到 %s", got)
	}
}

func TestCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := execute([]string{"check-config", "--config", configFixture(t, "valid.toml")})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestCheckConfigFailure(t *testing.T) {
	_, errBuf := useBufferWriters(t)
	code := execute([]string{"check-config", "--config", configFixture(t, "missing.toml")})
	if code != 1 {
		t.Fatalf("无效配置应返回退出码 1，得到 %d", code)
	}
	if !strings.Contains(errBuf.String(), "加载配置失败") {
		t.Fatalf("stderr 应包含失败原因: %s", errBuf.String())
	}
}

func TestServeFailsFastOnBadConfig(t *testing.T) {
	useBufferWriters(t)
	if code := execute([]string{"serve", "--config", configFixture(t, "missing.toml")}); code != 1 {
		t.Fatalf("serve 在配置无效时应返回 1，得到 %d", code)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	useBufferWriters(t)
	if code := execute([]string{"--no-such-flag"}); code != 2 {
		t.Fatalf("未知参数应返回 2，得到 %d", code)
	}
	if code := execute([]string{"entries", "exists"}); code != 2 {
		t.Fatalf("缺少参数应返回 2，得到 %d", code)
	}
}

func TestVersionOutput(t *testing.T) {
	outBuf, _ := useBufferWriters(t)
	if code := execute([]string{"version"}); code != 0 {
		t.Fatalf("version 应成功退出，得到 %d", code)
	}
	if !strings.Contains(outBuf.String(), "supercache") {
		t.Fatalf("version 输出应包含 supercache 标识: %s", outBuf.String())
	}
}
