package domain

import (
	"encoding/json"
	"time"
)

const (
	StageSkipped = "skipped"
	StageFetch   = "fetch"
	StageEmpty   = "empty"
	StageOK      = "ok"
)

// AttemptResult 是一次策略尝试的对外表示（report.json / CLI 输出）。
type AttemptResult struct {
	Strategy string `json:"strategy"`
	Stage    string `json:"stage"`
	Slug     string `json:"slug"`
	Error    string `json:"error"`
}

// ResolveReport 是 `resolve` 命令的稳定输出结构。
type ResolveReport struct {
	Ref  string `json:"ref"`
	Kind string `json:"kind"`

	Title string `json:"title"`
	Year  int    `json:"year"`

	Stream ResolvedStream `json:"stream"`

	// ErrorCode/ErrorMsg 只在解析无法开始时填充（例如配置错误、缺少 cookie）。
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary  ReportSummary   `json:"summary"`
	Attempts []AttemptResult `json:"attempts"`
}

type ReportSummary struct {
	Resolved bool `json:"resolved"`
	Tried    int  `json:"tried"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) attempts 为 nil 时补成空切片（JSON 输出 [] 而不是 null）
// 3) summary 由 attempts 与 stream 计算得出
func (r *ResolveReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Attempts == nil {
		r.Attempts = []AttemptResult{}
	}

	s := ReportSummary{Resolved: r.Stream.HasURL()}
	for _, a := range r.Attempts {
		switch a.Stage {
		case StageSkipped:
			s.Skipped++
		case StageFetch:
			s.Tried++
			s.Failed++
		default:
			s.Tried++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r ResolveReport) MarshalJSON() ([]byte, error) {
	type Alias ResolveReport
	return json.Marshal(Alias(r))
}
