package dto

// CreateQuizRequest 生成测验请求
type CreateQuizRequest struct {
	DocumentID   *int64 `json:"document_id,omitempty"`
	Text         string `json:"text,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty" binding:"omitempty,min=1,max=50"`
	Difficulty   string `json:"difficulty,omitempty" binding:"omitempty,oneof=easy medium hard"`
	Title        string `json:"title,omitempty" binding:"omitempty,max=255"`
	Force        bool   `json:"force,omitempty"`
}

// QuizSummary 测验概要
type QuizSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title,omitempty"`
	QuestionCount int    `json:"question_count"`
}

// CreateQuizResponse 生成结果；Status 为 "existing" 时复用已有测验
type CreateQuizResponse struct {
	JobID  *int64      `json:"job_id"`
	Status string      `json:"status"`
	Quiz   QuizSummary `json:"quiz"`
}

// SubmitAttemptRequest 提交答题
type SubmitAttemptRequest struct {
	Answers []AttemptAnswer `json:"answers" binding:"required,min=1,dive"`
}

type AttemptAnswer struct {
	Ordinal       int `json:"ordinal" binding:"required,min=1"`
	SelectedIndex int `json:"selected_index" binding:"min=0"`
}

// AttemptResult 答题结果
type AttemptResult struct {
	AttemptID    int64   `json:"attempt_id"`
	Score        float64 `json:"score"`
	Total        int     `json:"total"`
	CorrectCount int     `json:"correct_count"`
}
