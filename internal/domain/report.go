package domain

import "time"

// FileOutcome 单个源文件的导入结果
type FileOutcome string

const (
	OutcomeImported            FileOutcome = "imported"
	OutcomeSkippedUnrecognized FileOutcome = "skipped_unrecognized"
	OutcomeSkippedMalformed    FileOutcome = "skipped_malformed"
)

// FileReport per-file ingestion result
type FileReport struct {
	File      string      `json:"file"`
	System    string      `json:"system,omitempty"`
	Table     string      `json:"table,omitempty"`
	Outcome   FileOutcome `json:"outcome"`
	Records   int         `json:"records"`
	Written   int         `json:"written"`
	Empty     int         `json:"empty_projection"`
	MissingPK int         `json:"missing_primary_key"`
	Error     string      `json:"error,omitempty"`
}

// RunReport 一次目录导入的汇总报告（替代"看日志判断是否跳过"）
type RunReport struct {
	RunID      string       `json:"run_id"`
	Folder     string       `json:"folder"`
	Target     string       `json:"target"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Files      []FileReport `json:"files"`
}

// Count returns how many files ended with the given outcome.
func (r *RunReport) Count(outcome FileOutcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == outcome {
			n++
		}
	}
	return n
}

// RowsWritten totals upserted rows across files.
func (r *RunReport) RowsWritten() int {
	n := 0
	for _, f := range r.Files {
		n += f.Written
	}
	return n
}
