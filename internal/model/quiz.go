package model

import (
	"time"
)

type Quiz struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	UserID        int64      `gorm:"not null;index" json:"user_id"`
	DocumentID    *int64     `gorm:"index" json:"document_id,omitempty"`
	Title         string     `gorm:"size:255" json:"title,omitempty"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	QuestionCount int        `json:"question_count"`
	Meta          JSONMap    `gorm:"column:meta_json;type:json" json:"meta,omitempty"`
	GeneratedAt   *time.Time `gorm:"index" json:"generated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Questions []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	QuizID      int64       `gorm:"not null;index" json:"quiz_id"`
	Ordinal     int         `gorm:"not null" json:"ordinal"` // 1..N
	Prompt      string      `gorm:"type:text;not null" json:"prompt"`
	Options     StringArray `gorm:"column:options_json;type:json;not null" json:"options"`
	AnswerIndex int         `gorm:"not null" json:"answer_index"`
	Explanation string      `gorm:"type:text" json:"explanation,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

type QuizAttempt struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	QuizID       int64     `gorm:"not null;index" json:"quiz_id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	Score        float64   `json:"score"` // 百分比 0..100
	Total        int       `json:"total"`
	CorrectCount int       `json:"correct_count"`
	Meta         JSONMap   `gorm:"column:meta_json;type:json" json:"meta,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	Answers []QuizAttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

type QuizAttemptAnswer struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	AttemptID     int64  `gorm:"not null;index" json:"attempt_id"`
	QuestionID    *int64 `json:"question_id,omitempty"`
	Ordinal       int    `gorm:"not null" json:"ordinal"`
	SelectedIndex int    `gorm:"not null" json:"selected_index"`
	CorrectIndex  int    `json:"correct_index"`
	IsCorrect     bool   `json:"is_correct"`
}

func (QuizAttemptAnswer) TableName() string {
	return "quiz_attempt_answers"
}
