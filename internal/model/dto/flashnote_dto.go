package dto

// CreateFlashNotesRequest 生成闪记笔记请求
type CreateFlashNotesRequest struct {
	DocumentID *int64 `json:"document_id,omitempty"`
	Text       string `json:"text,omitempty"`
	Count      int    `json:"count,omitempty" binding:"omitempty,min=1,max=20"`
	Density    string `json:"density,omitempty" binding:"omitempty,oneof=skim study exam"`
	Title      string `json:"title,omitempty" binding:"omitempty,max=255"`
	Force      bool   `json:"force,omitempty"`
}

// FlashNoteItem 笔记条目
type FlashNoteItem struct {
	ID            int64                  `json:"id"`
	Title         string                 `json:"title,omitempty"`
	Content       string                 `json:"content"`
	SourceSnippet string                 `json:"source_snippet,omitempty"`
	Tags          string                 `json:"tags,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
	CreatedAt     string                 `json:"created_at"`
}

// CreateFlashNotesResponse 生成结果；Status 为 "existing" 时复用已有笔记
type CreateFlashNotesResponse struct {
	JobID   *int64          `json:"job_id"`
	Status  string          `json:"status"`
	Created []FlashNoteItem `json:"created"`
}
