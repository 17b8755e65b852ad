package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/puzzlestream/internal/config"
	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/provider/puzzle"
	"github.com/John-Robertt/puzzlestream/internal/resolve"
)

var _ resolve.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的解析进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：resolve 层只发事件，CLI 决定如何展示
// - keepalive：某一层长时间没有结果时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time
	lastStep    time.Time

	idx int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(ref domain.ContentRef, t resolve.Target) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.lastStep = now

	fmt.Fprintf(p.w, "[%s] puzzlestream resolve %s (%s)\n", now.Format("15:04:05"), ref.Raw, ref.Kind)
	switch {
	case t.Internal():
		fmt.Fprintf(p.w, "目标: slug=%s\n", t.Slug)
	case t.Query.Title != "":
		fmt.Fprintf(p.w, "目标: title=%q year=%s\n", truncate(t.Query.Title, 120), formatYear(t.Query.Year))
	default:
		fmt.Fprintln(p.w, "目标: 元数据无结果")
	}

	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnAttempt(a resolve.Attempt) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.idx++
	r := a.Result()
	line := fmt.Sprintf("[%d] %s %s", p.idx, r.Strategy, strings.ToUpper(r.Stage))
	if r.Slug != "" {
		line += " slug=" + r.Slug
	}
	if r.Error != "" {
		line += ": " + truncate(r.Error, 160)
	}
	fmt.Fprintf(p.w, "%s (%s)\n", line, formatShortDuration(now.Sub(p.lastStep)))

	p.lastStep = now
	p.lastPrinted = now
}

func (p *progressUI) OnDone(res domain.ResolvedStream, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}

	switch {
	case res.HasURL():
		fmt.Fprintf(p.w, "结果: OK slug=%s (%s)\n", res.Slug, formatShortDuration(dur))
	case res.Slug != "":
		fmt.Fprintf(p.w, "结果: NO_STREAM slug=%s (%s)\n", res.Slug, formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "结果: NOT_FOUND (%s)\n", formatShortDuration(dur))
	}
	fmt.Fprintln(p.w)
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "等待: step=%d elapsed=%s\n", p.idx+1, formatElapsed(time.Since(p.startedAt)))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// printConfig 在交互终端里打印生效配置（cookie 只显示是否存在）。
func printConfig(w io.Writer, eff config.EffectiveConfig, site puzzle.SiteConfig) {
	if w == nil {
		return
	}
	fmt.Fprintln(w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(w, "  base_url: %s\n", truncate(site.BaseURL, 120))
	fmt.Fprintf(w, "  timeout: %s\n", site.Timeout)
	fmt.Fprintf(w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(w, "  cookie: %s\n", onOff(strings.TrimSpace(eff.Cookie) != ""))
	fmt.Fprintf(w, "  tmdb: %s\n", onOff(eff.TMDBAPIKey != ""))
	fmt.Fprintf(w, "  log: %s/%s\n", eff.Log.Level, eff.Log.Format)
	fmt.Fprintln(w)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatYear(y int) string {
	if y <= 0 {
		return "?"
	}
	return fmt.Sprintf("%d", y)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatAttemptChain(attempts []domain.AttemptResult, max int) string {
	if len(attempts) == 0 || max == 0 {
		return ""
	}
	if max < 0 {
		max = len(attempts)
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		s := strings.TrimSpace(a.Strategy) + ":" + strings.TrimSpace(a.Stage)
		if sl := strings.TrimSpace(a.Slug); sl != "" {
			s += ":" + sl
		}
		if em := strings.TrimSpace(a.Error); em != "" {
			s += ":" + truncate(em, 80)
		}
		parts = append(parts, s)
		if len(parts) >= max {
			break
		}
	}
	return strings.Join(parts, ";")
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
