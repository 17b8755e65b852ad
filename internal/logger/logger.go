// Package logger 构造进程级 zerolog 日志器。
//
// 日志一律写 stderr（以及可选的滚动文件）；stdout 留给 resolve 命令的 JSON 输出。
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "puzzlestream.log"

// Logger 包装 zerolog.Logger，并持有可选的滚动文件句柄。
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

// Config 对应配置文件的 log 段。
type Config struct {
	Level  string
	Format string // "console" 或 "json"
	Path   string // 日志目录；为空表示不落盘

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Out 为空时使用 os.Stderr（测试注入）。
	Out io.Writer
}

func New(cfg Config) *Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	var console io.Writer = out
	if strings.ToLower(strings.TrimSpace(cfg.Format)) != "json" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	output := console
	var rotator *lumberjack.Logger
	if dir := strings.TrimSpace(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			rotator = &lumberjack.Logger{
				Filename:   filepath.Join(dir, fileName),
				MaxSize:    orDefault(cfg.MaxSizeMB, 10),
				MaxBackups: orDefault(cfg.MaxBackups, 5),
				MaxAge:     orDefault(cfg.MaxAgeDays, 30),
				Compress:   true,
				LocalTime:  true,
			}
			output = io.MultiWriter(console, rotator)
		}
	}

	l := zerolog.New(output).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{Logger: l, rotator: rotator}
}

// Nop 返回丢弃一切输出的 Logger。
func Nop() *Logger { return &Logger{Logger: zerolog.Nop()} }

func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// WithComponent 返回带 component 字段的子 Logger（共享同一个文件句柄，不负责关闭）。
func (l *Logger) WithComponent(component string) zerolog.Logger {
	return l.Logger.With().Str("component", component).Logger()
}

// WithContext 把 Logger 挂到 ctx 上，供 zerolog.Ctx(ctx) 取用。
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// ParseLevel 把配置字符串转成 zerolog.Level；无法识别时为 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel 判断 level 是否是可识别的取值（配置校验使用）。
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
		return true
	}
	return false
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
