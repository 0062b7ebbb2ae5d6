package model

import (
	"time"
)

type Document struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	UserID       int64  `gorm:"not null;index" json:"user_id"`
	Filename     string `gorm:"size:255;not null" json:"filename"`      // 存储文件名（uuid）
	OriginalName string `gorm:"size:255;not null" json:"original_name"` // 上传时的原始文件名
	FilePath     string `gorm:"size:1024" json:"file_path,omitempty"`   // 本地路径或 OSS URL
	MimeType     string `gorm:"size:120;not null" json:"mime_type"`
	SizeBytes    int64  `gorm:"not null" json:"size_bytes"`

	// 处理步骤写回的文本字段
	TextContent    string `gorm:"type:text" json:"text_content,omitempty"`
	Language       string `gorm:"size:16;index" json:"language,omitempty"`
	Summary        string `gorm:"type:text" json:"summary,omitempty"`
	TranslatedText string `gorm:"type:text" json:"translated_text,omitempty"`
	SourceLanguage string `gorm:"size:16;index" json:"source_language,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}
