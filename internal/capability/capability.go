// Package capability 定义处理步骤依赖的外部推理能力契约。
// 编排核心只依赖这些接口；HTTP 适配器负责把后端各异的返回形状
// 归一化成类型化结果。
package capability

import (
	"context"
)

// TranscribeResult 语音转写结果
type TranscribeResult struct {
	Text     string
	Language string
	Segments []map[string]interface{}
	Raw      interface{}
}

// SummarizeResult 摘要结果
type SummarizeResult struct {
	Summary string
	Raw     interface{}
}

// TranslateResult 翻译结果
type TranslateResult struct {
	Translation string
	SourceLang  string
	Raw         interface{}
}

// NotesResult 闪记笔记生成结果，每个条目为一段 markdown 文本
type NotesResult struct {
	Notes []string
	Raw   interface{}
}

// QuizQuestion 生成的单选题
type QuizQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuizResult 测验生成结果
type QuizResult struct {
	Questions []QuizQuestion
	Raw       interface{}
}

type Transcriber interface {
	Transcribe(ctx context.Context, source string) (*TranscribeResult, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text, mode string) (*SummarizeResult, error)
}

type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (*TranslateResult, error)
}

type NotesBuilder interface {
	BuildNotes(ctx context.Context, text string, count int, density string) (*NotesResult, error)
}

type QuizBuilder interface {
	BuildQuiz(ctx context.Context, text string, numQuestions int, difficulty string) (*QuizResult, error)
}
