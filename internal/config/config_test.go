package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv 屏蔽宿主机上可能存在的 PUZZLE_* 变量。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADDR", "BASE_URL", "USER_AGENT", "TIMEOUT_SECONDS", "PROXY_URL", "CINEMETA_URL",
		"TMDB_API_KEY", "TMDB_BASE_URL", "LOG_LEVEL", "LOG_FORMAT", "LOG_PATH", "COOKIE",
	} {
		t.Setenv(envPrefix+k, "")
	}
}

func TestLoadEffective_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("期望未读取配置文件，实际=%q", eff.ConfigPath)
	}
	if eff.Addr != DefaultAddr {
		t.Fatalf("期望 addr=%q，实际=%q", DefaultAddr, eff.Addr)
	}
	if eff.Timeout != DefaultTimeoutSeconds*time.Second {
		t.Fatalf("期望 timeout=%ds，实际=%v", DefaultTimeoutSeconds, eff.Timeout)
	}
	if eff.Log.Level != DefaultLogLevel || eff.Log.Format != DefaultLogFormat || eff.Log.Path != "" {
		t.Fatalf("log 默认值不符合预期：%+v", eff.Log)
	}
	if Code(eff.RequireCookie()) != ErrCodeMissingCookie {
		t.Fatalf("期望 %q，实际 %v", ErrCodeMissingCookie, eff.RequireCookie())
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_FileValues(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
		"addr": ":8080",
		"base_url": "https://mirror.puzzle.test/",
		"timeout_seconds": 30,
		"proxy": {"url": "http://127.0.0.1:8888"},
		"tmdb_api_key": "k",
		"log": {"level": "DEBUG", "format": "json", "path": "logs"},
		"cookie": "session=abc"
	}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, FileName) {
		t.Fatalf("期望读取 %q，实际=%q", filepath.Join(cwd, FileName), eff.ConfigPath)
	}
	if eff.Addr != ":8080" || eff.BaseURL != "https://mirror.puzzle.test" || eff.Timeout != 30*time.Second {
		t.Fatalf("字段不符合预期：%+v", eff)
	}
	if eff.ProxyURL != "http://127.0.0.1:8888" || eff.TMDBAPIKey != "k" {
		t.Fatalf("字段不符合预期：%+v", eff)
	}
	if eff.Log.Level != "debug" || eff.Log.Format != "json" || eff.Log.Path != filepath.Join(cwd, "logs") {
		t.Fatalf("log 不符合预期：%+v", eff.Log)
	}
	if err := eff.RequireCookie(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
}

func TestLoadEffective_MergeOrder(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"addr":":1","cookie":"from-file","log":{"level":"warn"}}`))

	// 文件 < 环境变量
	t.Setenv("PUZZLE_ADDR", ":2")
	t.Setenv("PUZZLE_COOKIE", "from-env")
	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != ":2" || eff.Cookie != "from-env" || eff.Log.Level != "warn" {
		t.Fatalf("环境变量应覆盖文件：%+v", eff)
	}

	// 环境变量 < CLI
	eff, err = LoadEffective(cwd, CLIArgs{Addr: ":3", Cookie: "from-cli", LogLevel: "error"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != ":3" || eff.Cookie != "from-cli" || eff.Log.Level != "error" {
		t.Fatalf("CLI 应覆盖环境变量：%+v", eff)
	}
}

func TestLoadEffective_InvalidConfig(t *testing.T) {
	cases := map[string]string{
		"json":         `{`,
		"timeout":      `{"timeout_seconds": 999}`,
		"base_url":     `{"base_url": "ftp://puzzle.test"}`,
		"cinemeta_url": `{"cinemeta_url": "not a url"}`,
		"proxy":        `{"proxy":{"url":"http://[::1"}}`,
		"log_level":    `{"log":{"level":"verbose"}}`,
		"log_format":   `{"log":{"format":"xml"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(body))

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestLoadEffective_InvalidTimeoutEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUZZLE_TIMEOUT_SECONDS", "soon")

	_, err := LoadEffective(t.TempDir(), CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_ExplicitConfigPath(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	dir := filepath.Join(cwd, "etc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeFile(t, filepath.Join(dir, "custom.json"), []byte(`{"user_agent":"test-agent"}`))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: "etc/custom.json"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.UserAgent != "test-agent" {
		t.Fatalf("期望 user_agent=test-agent，实际=%q", eff.UserAgent)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
