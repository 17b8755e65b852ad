package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/puzzlestream/internal/config"
	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/provider/puzzle"
	"github.com/John-Robertt/puzzlestream/internal/resolve"
)

func TestProgressUI_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.tickerInterval = time.Hour

	p.OnStart(domain.ParseContentRef("tt0084787"), resolve.Target{Query: domain.SearchQuery{Title: "The Thing", Year: 1982}})
	p.OnAttempt(resolve.Attempt{Strategy: "bridge", Stage: domain.StageOK})
	p.OnAttempt(resolve.Attempt{Strategy: "slug", Stage: domain.StageSkipped, Err: resolve.ErrNotApplicable})
	p.OnAttempt(resolve.Attempt{Strategy: "search", Stage: domain.StageFetch, Err: errors.New("HTTP 502")})
	p.OnAttempt(resolve.Attempt{Strategy: "probe", Stage: domain.StageOK, Slug: "the-thing-1982"})
	p.OnDone(domain.ResolvedStream{Slug: "the-thing-1982", URL: "https://cdn.test/x.m3u8"}, 1500*time.Millisecond)

	out := buf.String()
	for _, want := range []string{
		"puzzlestream resolve tt0084787 (imdb)",
		`目标: title="The Thing" year=1982`,
		"[1] bridge OK",
		"[2] slug SKIPPED (",
		"[3] search FETCH: HTTP 502",
		"[4] probe OK slug=the-thing-1982",
		"结果: OK slug=the-thing-1982 (1.5s)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if p.tickerStarted {
		t.Fatalf("期望 OnDone 后 ticker 已停止")
	}
}

func TestProgressUI_NotFound(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.tickerInterval = time.Hour

	p.OnStart(domain.ParseContentRef("tt9999999"), resolve.Target{})
	p.OnDone(domain.ResolvedStream{}, 0)

	if !strings.Contains(buf.String(), "目标: 元数据无结果") || !strings.Contains(buf.String(), "结果: NOT_FOUND") {
		t.Fatalf("输出不符合预期：\n%s", buf.String())
	}
}

func TestPrintConfig_HidesCookie(t *testing.T) {
	var buf bytes.Buffer
	eff := config.EffectiveConfig{
		Cookie:   "session=secret",
		ProxyURL: "http://user:pw@127.0.0.1:7890",
		Log:      config.LogConfig{Level: "info", Format: "console"},
	}
	printConfig(&buf, eff, puzzle.SiteConfig{}.WithDefaults())

	out := buf.String()
	if strings.Contains(out, "secret") || strings.Contains(out, "pw") {
		t.Fatalf("配置输出不应包含凭据：\n%s", out)
	}
	if !strings.Contains(out, "cookie: on") || !strings.Contains(out, "auth=on") || !strings.Contains(out, "tmdb: off") {
		t.Fatalf("配置输出不符合预期：\n%s", out)
	}
}

func TestFormatAttemptChain(t *testing.T) {
	attempts := []domain.AttemptResult{
		{Strategy: "bridge", Stage: "ok"},
		{Strategy: "search", Stage: "fetch", Error: "HTTP 403"},
		{Strategy: "probe", Stage: "empty", Slug: "heat-1995"},
	}
	if got := formatAttemptChain(attempts, -1); got != "bridge:ok;search:fetch:HTTP 403;probe:empty:heat-1995" {
		t.Fatalf("attempt chain 不符合预期：%q", got)
	}
	if got := formatAttemptChain(attempts, 1); got != "bridge:ok" {
		t.Fatalf("期望只保留第一项，实际 %q", got)
	}
	if got := formatAttemptChain(nil, -1); got != "" {
		t.Fatalf("期望空串，实际 %q", got)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate 不符合预期：%q", got)
	}
	if got := formatElapsed(3725 * time.Second); got != "01:02:05" {
		t.Fatalf("formatElapsed 不符合预期：%q", got)
	}
	if got := formatProxy(""); got != "off" {
		t.Fatalf("formatProxy 不符合预期：%q", got)
	}
	if got := formatYear(0); got != "?" {
		t.Fatalf("formatYear 不符合预期：%q", got)
	}
}
