package model

import (
	"time"
)

// 作业类型
const (
	JobTypeTranscribe = "transcribe"
	JobTypeSummarize  = "summarize"
	JobTypeTranslate  = "translate"
	JobTypeNotes      = "notes"
	JobTypeQuiz       = "quiz"
	JobTypeComposite  = "composite"
	JobTypeIngest     = "ingest"
)

// 作业状态
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

type ProcessingJob struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	UserID     int64  `gorm:"not null;index" json:"user_id"`
	DocumentID *int64 `gorm:"index" json:"document_id,omitempty"`
	JobType    string `gorm:"size:32;not null;index" json:"job_type"`
	Status     string `gorm:"size:32;default:pending;index" json:"status"`

	// 提交时固定的参数与输入快照；运行期间只有 Result 被逐步更新
	Params JSONMap    `gorm:"column:params_json;type:json" json:"params"`
	Input  JSONMap    `gorm:"column:input_json;type:json" json:"input"`
	Result *ResultLog `gorm:"column:result_json;type:json" json:"result,omitempty"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
	User     *User     `gorm:"foreignKey:UserID" json:"-"`
}

func (ProcessingJob) TableName() string {
	return "processing_jobs"
}

// Terminal 作业已结束（completed/failed）
func (j *ProcessingJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
