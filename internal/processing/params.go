package processing

import (
	"github.com/zf7c/studylab_go_server/internal/model"
)

// 每种作业类型一组封闭的参数变体，入口处构造一次，
// 存储仍走 params_json，读写两侧不会悄悄漂移。

type CompositeParams struct {
	Operations []string
	Mode       string
	TargetLang string
	SourceLang string
}

func (p CompositeParams) Map() model.JSONMap {
	ops := make([]interface{}, len(p.Operations))
	for i, op := range p.Operations {
		ops[i] = op
	}
	return model.JSONMap{
		"operations":  ops,
		"mode":        p.Mode,
		"target_lang": p.TargetLang,
		"source_lang": p.SourceLang,
	}
}

type SummarizeParams struct {
	Mode  string
	Force bool
}

func (p SummarizeParams) Map() model.JSONMap {
	return model.JSONMap{"mode": p.Mode, "force": p.Force}
}

type TranslateParams struct {
	TargetLang string
	SourceLang string
	Force      bool
}

func (p TranslateParams) Map() model.JSONMap {
	return model.JSONMap{"target_lang": p.TargetLang, "source_lang": p.SourceLang, "force": p.Force}
}

type NotesParams struct {
	Count   int
	Density string
	Force   bool
}

func (p NotesParams) Map() model.JSONMap {
	return model.JSONMap{"count": p.Count, "density": p.Density, "force": p.Force}
}

type QuizParams struct {
	NumQuestions int
	Difficulty   string
	Force        bool
}

func (p QuizParams) Map() model.JSONMap {
	return model.JSONMap{"num_questions": p.NumQuestions, "difficulty": p.Difficulty, "force": p.Force}
}

// InputSnapshot 提交时截断保存的输入快照，仅用于审计，创建后不再修改
type InputSnapshot struct {
	DocumentID *int64
	Text       string
	FilePath   string
	CreatedAt  string
}

const snippetLimit = 1000

func (s InputSnapshot) Map() model.JSONMap {
	m := model.JSONMap{"created_at": s.CreatedAt}
	if s.DocumentID != nil {
		m["document_id"] = *s.DocumentID
	}
	if s.Text != "" {
		m["text_snippet"] = Truncate(s.Text, snippetLimit)
	}
	if s.FilePath != "" {
		m["file_path"] = s.FilePath
	}
	return m
}

// Truncate 按字节截断快照文本
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
