package resolve

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
)

// Observer 把“解析进度/每层结果”从核心流程中解耦出来。
//
// 约束：
// - resolve 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 一个 Resolver 内事件严格串行；跨请求共享的实现需要自己保证并发安全
type Observer interface {
	// OnStart 在第一步（ref → Target）完成后调用；元数据桥无数据时 t 为零值。
	OnStart(ref domain.ContentRef, t Target)
	// OnAttempt 在每一层（含元数据桥）结束时调用。
	OnAttempt(a Attempt)
	// OnDone 在返回结果前调用。
	OnDone(res domain.ResolvedStream, dur time.Duration)
}

// LogObserver 把解析事件写成结构化日志（serve 使用）。
type LogObserver struct {
	log zerolog.Logger
}

func NewLogObserver(l zerolog.Logger) *LogObserver {
	return &LogObserver{log: l.With().Str("component", "resolve").Logger()}
}

func (o *LogObserver) OnStart(ref domain.ContentRef, t Target) {
	o.log.Debug().
		Str("ref", ref.Raw).
		Str("kind", string(ref.Kind)).
		Str("slug", t.Slug).
		Str("title", t.Query.Title).
		Int("year", t.Query.Year).
		Msg("开始解析")
}

func (o *LogObserver) OnAttempt(a Attempt) {
	ev := o.log.Debug()
	if a.Stage == domain.StageFetch {
		ev = o.log.Warn().Err(a.Err)
	}
	ev.Str("strategy", a.Strategy).Str("stage", a.Stage).Str("slug", a.Slug).Msg("解析层结束")
}

func (o *LogObserver) OnDone(res domain.ResolvedStream, dur time.Duration) {
	o.log.Info().
		Str("slug", res.Slug).
		Bool("resolved", res.HasURL()).
		Dur("elapsed", dur).
		Msg("解析完成")
}

// Tee 把事件依次转发给多个 Observer（跳过 nil）。
func Tee(obs ...Observer) Observer {
	out := make(tee, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type tee []Observer

func (t tee) OnStart(ref domain.ContentRef, tg Target) {
	for _, o := range t {
		o.OnStart(ref, tg)
	}
}

func (t tee) OnAttempt(a Attempt) {
	for _, o := range t {
		o.OnAttempt(a)
	}
}

func (t tee) OnDone(res domain.ResolvedStream, dur time.Duration) {
	for _, o := range t {
		o.OnDone(res, dur)
	}
}
