package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/puzzlestream/internal/logger"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingCookie 表示需要站点凭据的命令没有拿到 cookie。
	ErrCodeMissingCookie = "config_missing_cookie"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名（可选）。
	FileName = "puzzlestream.json"

	DefaultAddr           = ":7000"
	DefaultTimeoutSeconds = 15
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"

	maxTimeoutSeconds = 120
	envPrefix         = "PUZZLE_"
)

// CLIArgs 只包含 CLI 暴露的入口；空串表示“未显式指定”。
type CLIArgs struct {
	ConfigPath string

	Addr     string
	BaseURL  string
	Cookie   string
	LogLevel string
}

// FileConfig 对应 puzzlestream.json 的解析结构。
type FileConfig struct {
	Addr           string       `json:"addr"`
	BaseURL        string       `json:"base_url"`
	UserAgent      string       `json:"user_agent"`
	TimeoutSeconds int          `json:"timeout_seconds"`
	Proxy          *ProxyConfig `json:"proxy"`
	CinemetaURL    string       `json:"cinemeta_url"`
	TMDBAPIKey     string       `json:"tmdb_api_key"`
	TMDBBaseURL    string       `json:"tmdb_base_url"`
	Log            *LogConfig   `json:"log"`
	Cookie         string       `json:"cookie"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；没有读到时为空。
	ConfigPath string

	Addr string

	// BaseURL 为空表示使用站点默认域名。
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	ProxyURL  string

	CinemetaURL string
	TMDBAPIKey  string
	TMDBBaseURL string

	Log LogConfig

	// Cookie 只供 resolve 命令作为默认凭据；serve 的凭据来自每个请求的 token。
	Cookie string
}

// LoggerConfig 转成 logger.Config。
func (e EffectiveConfig) LoggerConfig() logger.Config {
	return logger.Config{Level: e.Log.Level, Format: e.Log.Format, Path: e.Log.Path}
}

// RequireCookie 在需要站点凭据的命令里调用。
func (e EffectiveConfig) RequireCookie() error {
	if strings.TrimSpace(e.Cookie) == "" {
		return &Error{Code: ErrCodeMissingCookie, Path: e.ConfigPath}
	}
	return nil
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingCookie:
		return fmt.Sprintf("%s：缺少站点 cookie（--cookie / %sCOOKIE / 配置文件 cookie）", e.Code, envPrefix)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/puzzlestream.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 PUZZLE_* > 配置文件 > 内置默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	required := strings.TrimSpace(cli.ConfigPath) != ""
	cfgPath := filepath.Join(cwdAbs, FileName)
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	applyEnv(&fc, os.Getenv)
	return merge(cwdAbs, cli, fc, cfgPath)
}

// applyEnv 用非空环境变量覆盖文件值。
func applyEnv(fc *FileConfig, getenv func(string) string) {
	str := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	str(&fc.Addr, "ADDR")
	str(&fc.BaseURL, "BASE_URL")
	str(&fc.UserAgent, "USER_AGENT")
	str(&fc.CinemetaURL, "CINEMETA_URL")
	str(&fc.TMDBAPIKey, "TMDB_API_KEY")
	str(&fc.TMDBBaseURL, "TMDB_BASE_URL")
	str(&fc.Cookie, "COOKIE")

	if v := strings.TrimSpace(getenv(envPrefix + "TIMEOUT_SECONDS")); v != "" {
		// 无法解析时保留一个非法值，交给 merge 统一报错。
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		fc.TimeoutSeconds = n
	}
	if v := strings.TrimSpace(getenv(envPrefix + "PROXY_URL")); v != "" {
		fc.Proxy = &ProxyConfig{URL: v}
	}

	if fc.Log == nil {
		fc.Log = &LogConfig{}
	}
	str(&fc.Log.Level, "LOG_LEVEL")
	str(&fc.Log.Format, "LOG_FORMAT")
	str(&fc.Log.Path, "LOG_PATH")
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff := EffectiveConfig{
		ConfigPath:  cfgPath,
		Addr:        firstNonEmpty(cli.Addr, fc.Addr, DefaultAddr),
		BaseURL:     strings.TrimRight(firstNonEmpty(cli.BaseURL, fc.BaseURL), "/"),
		UserAgent:   strings.TrimSpace(fc.UserAgent),
		CinemetaURL: strings.TrimRight(strings.TrimSpace(fc.CinemetaURL), "/"),
		TMDBAPIKey:  strings.TrimSpace(fc.TMDBAPIKey),
		TMDBBaseURL: strings.TrimRight(strings.TrimSpace(fc.TMDBBaseURL), "/"),
		Cookie:      firstNonEmpty(cli.Cookie, fc.Cookie),
	}

	timeout := fc.TimeoutSeconds
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	if timeout < 1 || timeout > maxTimeoutSeconds {
		return invalid(fmt.Errorf("timeout_seconds 必须在 [1, %d] 范围内，实际 %d", maxTimeoutSeconds, fc.TimeoutSeconds))
	}
	eff.Timeout = time.Duration(timeout) * time.Second

	for _, f := range []struct{ name, val string }{
		{"base_url", eff.BaseURL},
		{"cinemeta_url", eff.CinemetaURL},
		{"tmdb_base_url", eff.TMDBBaseURL},
	} {
		if err := validateHTTPURL(f.name, f.val); err != nil {
			return invalid(err)
		}
	}

	if fc.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", eff.ProxyURL))
		}
	}

	lc := LogConfig{}
	if fc.Log != nil {
		lc = *fc.Log
	}
	eff.Log = LogConfig{
		Level:  strings.ToLower(firstNonEmpty(cli.LogLevel, lc.Level, DefaultLogLevel)),
		Format: strings.ToLower(firstNonEmpty(lc.Format, DefaultLogFormat)),
		Path:   absCleanFrom(cwdAbs, lc.Path),
	}
	if !logger.ValidLevel(eff.Log.Level) {
		return invalid(fmt.Errorf("log.level 无效：%q", eff.Log.Level))
	}
	if eff.Log.Format != "console" && eff.Log.Format != "json" {
		return invalid(fmt.Errorf("log.format 只能是 console 或 json，实际是 %q", eff.Log.Format))
	}
	return eff, nil
}

func validateHTTPURL(name, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", name, raw)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；p 为空时返回空串。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
