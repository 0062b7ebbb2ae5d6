package model

import (
	"time"
)

type FlashNote struct {
	ID            int64   `gorm:"primaryKey" json:"id"`
	UserID        int64   `gorm:"not null;index" json:"user_id"`
	DocumentID    *int64  `gorm:"index" json:"document_id,omitempty"`
	Title         string  `gorm:"size:255" json:"title,omitempty"`
	Content       string  `gorm:"type:text;not null" json:"content"`
	SourceSnippet string  `gorm:"type:text" json:"source_snippet,omitempty"`
	Tags          string  `gorm:"size:255;index" json:"tags,omitempty"` // 密度标签 skim|study|exam
	Meta          JSONMap `gorm:"column:meta_json;type:json" json:"meta,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID" json:"-"`
	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (FlashNote) TableName() string {
	return "flashnotes"
}
