package dto

import "github.com/zf7c/studylab_go_server/internal/model"

// StartProcessingRequest 组合作业请求：按序执行 operations
type StartProcessingRequest struct {
	DocumentID *int64   `json:"document_id,omitempty"`
	Text       string   `json:"text,omitempty"`
	Operations []string `json:"operations" binding:"required,min=1"`
	Mode       string   `json:"mode,omitempty" binding:"omitempty,oneof=concise detailed full"`
	TargetLang string   `json:"target_lang,omitempty" binding:"omitempty,max=16"`
	SourceLang string   `json:"source_lang,omitempty" binding:"omitempty,max=16"`
}

// TranscribeRequest 单步转写请求
type TranscribeRequest struct {
	DocumentID int64 `json:"document_id" binding:"required"`
	Force      bool  `json:"force,omitempty"`
}

// SummarizeRequest 单步摘要请求（文档或临时文本二选一）
type SummarizeRequest struct {
	DocumentID *int64 `json:"document_id,omitempty"`
	Text       string `json:"text,omitempty"`
	Mode       string `json:"mode,omitempty" binding:"omitempty,oneof=concise detailed full"`
	Force      bool   `json:"force,omitempty"`
}

// TranslateRequest 单步翻译请求
type TranslateRequest struct {
	DocumentID *int64 `json:"document_id,omitempty"`
	Text       string `json:"text,omitempty"`
	TargetLang string `json:"target_lang,omitempty" binding:"omitempty,max=16"`
	SourceLang string `json:"source_lang,omitempty" binding:"omitempty,max=16"`
	Force      bool   `json:"force,omitempty"`
}

// TextRequest 纯文本作业请求（/text/summarize、/text/translate）
type TextRequest struct {
	Text       string `json:"text" binding:"required"`
	Mode       string `json:"mode,omitempty" binding:"omitempty,oneof=concise detailed full"`
	TargetLang string `json:"target_lang,omitempty" binding:"omitempty,max=16"`
	SourceLang string `json:"source_lang,omitempty" binding:"omitempty,max=16"`
}

// ProcessingResponse 作业执行响应。Status 为 "existing" 时未创建作业，
// 直接返回文档上已持久化的结果。
type ProcessingResponse struct {
	JobID         *int64           `json:"job_id"`
	Status        string           `json:"status"`
	Result        *model.ResultLog `json:"result,omitempty"`
	Transcription string           `json:"transcription,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	Translation   string           `json:"translation,omitempty"`
}

// JobListItem 作业列表项
type JobListItem struct {
	ID         int64         `json:"id"`
	Type       string        `json:"type"`
	Status     string        `json:"status"`
	DocumentID *int64        `json:"document_id,omitempty"`
	Params     model.JSONMap `json:"params,omitempty"`
	CreatedAt  string        `json:"created_at"`
	StartedAt  *string       `json:"started_at,omitempty"`
	FinishedAt *string       `json:"finished_at,omitempty"`
}

// JobDetail 作业详情（对外契约：序列化往返不变）
type JobDetail struct {
	ID         int64            `json:"id"`
	Type       string           `json:"type"`
	Status     string           `json:"status"`
	DocumentID *int64           `json:"document_id,omitempty"`
	Params     model.JSONMap    `json:"params"`
	Input      model.JSONMap    `json:"input"`
	Result     *model.ResultLog `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  *string          `json:"started_at,omitempty"`
	FinishedAt *string          `json:"finished_at,omitempty"`
}

// DashboardSummary 仪表盘汇总
type DashboardSummary struct {
	Counts          DashboardCounts  `json:"counts"`
	RecentDocuments []RecentDocument `json:"recent_documents"`
	RecentActivity  []RecentJob      `json:"recent_activity"`
}

type DashboardCounts struct {
	Documents  int64            `json:"documents"`
	Jobs       int64            `json:"jobs"`
	JobsByType map[string]int64 `json:"jobs_by_type"`
}

type RecentDocument struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

type RecentJob struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	DocumentID *int64 `json:"document_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}
