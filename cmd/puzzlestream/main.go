package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/John-Robertt/puzzlestream/internal/addon"
	"github.com/John-Robertt/puzzlestream/internal/config"
	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/infra/fsx"
	"github.com/John-Robertt/puzzlestream/internal/infra/httpx"
	"github.com/John-Robertt/puzzlestream/internal/logger"
	"github.com/John-Robertt/puzzlestream/internal/metabridge"
	"github.com/John-Robertt/puzzlestream/internal/provider/puzzle"
	"github.com/John-Robertt/puzzlestream/internal/resolve"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

const (
	errCodeSiteInit = "site_init_failed"
	shutdownTimeout = 10 * time.Second
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "serve":
		code = serveCmd(args[1:])
	case "resolve":
		code = resolveCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

func serveCmd(args []string) int {
	if wantsHelp(args) {
		printServeUsage()
		return 0
	}
	ca, err := parseArgs("serve", args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printServeUsage()
		return 2
	}

	eff, err := loadConfig(ca)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.Code(err), err)
		return 1
	}

	log := logger.New(eff.LoggerConfig())
	defer log.Close()

	bridge, err := newBridge(eff, log)
	if err != nil {
		log.Error().Err(err).Msg("初始化元数据客户端失败")
		return 1
	}

	svc := addon.NewService(addon.PuzzleDialer(siteConfig(eff)), bridge)
	srv := &http.Server{
		Addr:              eff.Addr,
		Handler:           addon.NewRouter(svc, log.WithComponent("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().
		Str("addr", eff.Addr).
		Str("base_url", siteConfig(eff).WithDefaults().BaseURL).
		Str("config", eff.ConfigPath).
		Msg("服务已启动")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("监听失败")
			return 1
		}
	case <-ctx.Done():
		log.Info().Msg("收到退出信号，开始关闭")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("关闭服务失败")
			return 1
		}
	}
	return 0
}

func resolveCmd(args []string) int {
	if wantsHelp(args) {
		printResolveUsage()
		return 0
	}
	ca, err := parseArgs("resolve", args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printResolveUsage()
		return 2
	}

	ref := domain.ParseContentRef(ca.Ref)
	rep := domain.ResolveReport{Ref: ref.Raw, Kind: string(ref.Kind), StartedAt: time.Now()}

	eff, err := loadConfig(ca)
	if err == nil {
		err = eff.RequireCookie()
	}
	if err != nil {
		emitReport(failedReport(rep, config.Code(err), err))
		return 1
	}

	log := logger.New(eff.LoggerConfig())
	defer log.Close()
	ctx := log.WithContext(context.Background())

	client, err := puzzle.Dial(siteConfig(eff), eff.Cookie)
	if err != nil {
		emitReport(failedReport(rep, errCodeSiteInit, err))
		return 1
	}
	bridge, err := newBridge(eff, log)
	if err != nil {
		emitReport(failedReport(rep, errCodeSiteInit, err))
		return 1
	}

	rec := &reportRecorder{rep: &rep}
	obs := resolve.Observer(rec)
	progressW, interactive := pickProgressWriter()
	if interactive {
		printConfig(progressW, eff, client.Site())
		obs = resolve.Tee(rec, newProgressUI(progressW))
	}

	r := resolve.New(client, bridge, resolve.WithObserver(obs))
	res, attempts := r.Resolve(ctx, ref)

	rep.Stream = res
	rep.Attempts = resolve.Results(attempts)
	rep.FinishedAt = time.Now()
	rep.Finalize()

	if ca.Out != "" {
		if err := writeReportFile(ca.Out, rep); err != nil {
			fmt.Fprintf(os.Stderr, "写入报告失败：%v\n", err)
			emitReport(rep)
			return 1
		}
	}

	emitReport(rep)
	if rep.Summary.Resolved {
		return 0
	}
	return 1
}

type cliArgs struct {
	Config   string
	Addr     string
	BaseURL  string
	Cookie   string
	LogLevel string
	Out      string

	Ref string
}

// flagsFor 列出每个命令接受的 --flag（都需要一个值）。
var flagsFor = map[string][]string{
	"serve":   {"config", "addr", "base-url", "log-level"},
	"resolve": {"config", "base-url", "cookie", "log-level", "out"},
}

func parseArgs(cmd string, args []string) (cliArgs, error) {
	allowed, ok := flagsFor[cmd]
	if !ok {
		return cliArgs{}, fmt.Errorf("未知命令 %q", cmd)
	}
	ca := cliArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			if cmd != "resolve" {
				return cliArgs{}, fmt.Errorf("多余的参数 %q", a)
			}
			if ca.Ref != "" {
				return cliArgs{}, fmt.Errorf("重复的 id：%q 与 %q", ca.Ref, a)
			}
			ca.Ref = a
			continue
		}

		name, val, hasVal := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		if !strings.HasPrefix(a, "--") || !contains(allowed, name) {
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if !hasVal {
			if i+1 >= len(args) {
				return cliArgs{}, fmt.Errorf("--%s 需要一个值", name)
			}
			i++
			val = args[i]
		}
		if strings.TrimSpace(val) == "" {
			return cliArgs{}, fmt.Errorf("--%s 不能为空", name)
		}

		switch name {
		case "config":
			ca.Config = val
		case "addr":
			ca.Addr = val
		case "base-url":
			ca.BaseURL = val
		case "cookie":
			ca.Cookie = val
		case "log-level":
			ca.LogLevel = val
		case "out":
			ca.Out = val
		}
	}

	if cmd == "resolve" && strings.TrimSpace(ca.Ref) == "" {
		return cliArgs{}, fmt.Errorf("缺少 id（例如 tt0084787 / tmdb:1091 / puzzle:the-thing-1982）")
	}
	return ca, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func loadConfig(ca cliArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath: ca.Config,
		Addr:       ca.Addr,
		BaseURL:    ca.BaseURL,
		Cookie:     ca.Cookie,
		LogLevel:   ca.LogLevel,
	})
}

func siteConfig(eff config.EffectiveConfig) puzzle.SiteConfig {
	return puzzle.SiteConfig{
		BaseURL:   eff.BaseURL,
		UserAgent: eff.UserAgent,
		Timeout:   eff.Timeout,
		ProxyURL:  eff.ProxyURL,
	}
}

func newBridge(eff config.EffectiveConfig, log *logger.Logger) (*metabridge.Router, error) {
	hc, err := httpx.NewMetaClient(eff.ProxyURL, eff.Timeout)
	if err != nil {
		return nil, err
	}
	ml := log.WithComponent("metabridge")
	return metabridge.NewRouter(
		metabridge.NewCinemeta(eff.CinemetaURL, hc, ml),
		metabridge.NewTMDB(eff.TMDBBaseURL, eff.TMDBAPIKey, hc, ml),
	), nil
}

// reportRecorder 把第一步得到的目标写进报告（标题/年份）。
type reportRecorder struct {
	rep *domain.ResolveReport
}

func (r *reportRecorder) OnStart(_ domain.ContentRef, t resolve.Target) {
	if t.Internal() {
		r.rep.Title = slug.Humanize(t.Slug)
		r.rep.Year = slug.YearOf(t.Slug)
		return
	}
	r.rep.Title = t.Query.Title
	r.rep.Year = t.Query.Year
}

func (r *reportRecorder) OnAttempt(resolve.Attempt) {}

func (r *reportRecorder) OnDone(domain.ResolvedStream, time.Duration) {}

func failedReport(rep domain.ResolveReport, code string, err error) domain.ResolveReport {
	if code == "" {
		code = errCodeSiteInit
	}
	rep.ErrorCode = code
	rep.ErrorMsg = err.Error()
	rep.FinishedAt = rep.StartedAt
	rep.Finalize()
	return rep
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if isHelp(a) {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  puzzlestream serve   [--addr :7000] [--config file] [--base-url url] [--log-level level]
  puzzlestream resolve <id> [--cookie value] [--out file] [--config file] [--base-url url] [--log-level level]

命令：
  serve    启动 addon HTTP 服务
  resolve  解析单个 id 并输出报告（tt… / tmdb:… / puzzle:<slug>）

使用 "puzzlestream <命令> --help" 查看详细说明。
`)
}

func printServeUsage() {
	fmt.Fprint(os.Stdout, `用法：
  puzzlestream serve [--addr :7000] [--config file] [--base-url url] [--log-level level]

参数：
  --addr       监听地址（默认 :7000）
  --config     配置文件（默认读取 ./puzzlestream.json，可缺省）
  --base-url   站点域名（镜像/测试服务器）
  --log-level  debug|info|warn|error
  -h, --help   显示帮助
`)
}

func printResolveUsage() {
	fmt.Fprint(os.Stdout, `用法：
  puzzlestream resolve <id> [--cookie value] [--out file] [--config file] [--base-url url] [--log-level level]

参数：
  <id>         tt0084787 / tmdb:1091 / puzzle:the-thing-1982
  --cookie     站点 Cookie（也可来自配置文件或 PUZZLE_COOKIE）
  --out        额外把报告 JSON 写入文件
  --config     配置文件（默认读取 ./puzzlestream.json，可缺省）
  --base-url   站点域名（镜像/测试服务器）
  --log-level  debug|info|warn|error
  -h, --help   显示帮助
`)
}

func emitReport(rep domain.ResolveReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summaryLine(rep))
		if rep.Stream.HasURL() {
			fmt.Fprintln(os.Stdout, rep.Stream.URL)
		}
		if rep.ErrorCode != "" {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", rep.Ref, rep.ErrorCode, rep.ErrorMsg)
		} else if !rep.Summary.Resolved {
			fmt.Fprintf(os.Stderr, "%s attempts=%s\n", rep.Ref, formatAttemptChain(rep.Attempts, -1))
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 ResolveReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rep)
	fmt.Fprintln(os.Stderr, summaryLine(rep))
}

func summaryLine(rep domain.ResolveReport) string {
	return fmt.Sprintf("完成：resolved=%t slug=%s tried=%d skipped=%d failed=%d",
		rep.Summary.Resolved, orDash(rep.Stream.Slug), rep.Summary.Tried, rep.Summary.Skipped, rep.Summary.Failed,
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeReportFile(out string, rep domain.ResolveReport) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(abs), filepath.Base(abs), b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
