package domain

import (
	"sort"
	"time"
)

const (
	StatusGenerated = "generated"
	StatusFailed    = "failed"
)

const (
	ErrCodePathInvalid       = "path_invalid"
	ErrCodeNoSequence        = "no_sequence"
	ErrCodeSequenceNotFound  = "sequence_not_found"
	ErrCodeSequenceAmbiguous = "sequence_ambiguous"
	ErrCodeEmptySequence     = "empty_sequence"
	ErrCodeImageLoadFailed   = "image_load_failed"
	ErrCodeComposeFailed     = "compose_failed"
	ErrCodeEncodeFailed      = "encode_failed"
	ErrCodeSaveFailed        = "save_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// BuildReport 是一次 build 的对外稳定输出（stdout JSON）。
type BuildReport struct {
	Path     string `json:"path"`
	Sequence string `json:"sequence"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
	// ErrorFile 是导致失败的源文件名（仅 image_load_failed 等与单帧相关的错误）。
	ErrorFile string `json:"error_file"`

	Output   string `json:"output"`
	Manifest string `json:"manifest"`

	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Columns    int    `json:"columns"`
	Rows       int    `json:"rows"`
	RowOrder   string `json:"row_order"`
	Frames     int    `json:"frames"`
	EmptyTiles int    `json:"empty_tiles"`

	// Skipped 是目录中没有数字段、因此不属于任何序列的文件（已排序）。
	Skipped []string `json:"skipped"`
}

// Finalize 统一时间为 UTC，并保证 slice 字段不输出 null。
func (r *BuildReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Skipped == nil {
		r.Skipped = []string{}
	}
	sort.Strings(r.Skipped)
	if r.Status == "" {
		if r.ErrorCode != "" {
			r.Status = StatusFailed
		} else {
			r.Status = StatusGenerated
		}
	}
}

// Fail 标记失败（覆盖已有状态）。
func (r *BuildReport) Fail(code, msg string) {
	r.Status = StatusFailed
	r.ErrorCode = code
	r.ErrorMsg = msg
}

// OK 表示本次 build 成功生成了图集。
func (r BuildReport) OK() bool { return r.Status == StatusGenerated }

// ListReport 是 list 命令的对外稳定输出。
// 路径无效不算失败：Sequences 为空、PathInvalid=true，退出码仍为 0。
type ListReport struct {
	Path        string            `json:"path"`
	PathInvalid bool              `json:"path_invalid"`
	Sequences   []SequenceSummary `json:"sequences"`
	Skipped     []string          `json:"skipped"`
}

// Finalize 保证 slice 字段不输出 null。
func (r *ListReport) Finalize() {
	if r.Sequences == nil {
		r.Sequences = []SequenceSummary{}
	}
	if r.Skipped == nil {
		r.Skipped = []string{}
	}
	sort.Strings(r.Skipped)
}
