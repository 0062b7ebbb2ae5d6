package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zf7c/studylab_go_server/internal/model"
)

// 所有步骤共用同一套协议：
//  1. 日志里已有同名 completed 记录时直接跳过（幂等，重放不会重复副作用）
//  2. 记 running → 解析输入 → 调外部能力 → 写回文档 → 记 completed → 立即落库
//  3. 任何一步出错：记 failed（output 带 error），upsert 后把错误抛给编排器

func (o *Orchestrator) stepTranscribe(ctx context.Context, job *model.ProcessingJob, doc *model.Document, result *model.ResultLog) error {
	if result.FindCompleted(model.StepTranscribe) != nil {
		return nil
	}

	step := newRunningStep(model.StepTranscribe)
	o.notify(ctx, job, model.StepTranscribe, model.StepStatusRunning, "")

	// 输入来源：文档文件路径，其次作业输入快照里的临时文件路径
	src := ""
	if doc != nil && doc.FilePath != "" {
		src = doc.FilePath
	} else if job.Input != nil {
		src, _ = job.Input["file_path"].(string)
	}
	if src == "" {
		return o.failStep(result, &step, fmt.Errorf("no audio source available to transcribe"))
	}

	out, err := o.transcriber.Transcribe(ctx, src)
	if err != nil {
		return o.failStep(result, &step, err)
	}

	if doc != nil {
		doc.TextContent = out.Text
		if out.Language != "" {
			doc.Language = out.Language
		}
		if err := o.docs.Update(doc); err != nil {
			return o.failStep(result, &step, fmt.Errorf("failed to persist transcription: %w", err))
		}
	}

	step.Output = map[string]interface{}{
		"transcription": out.Text, // 前端直接读这个字段
		"text":          out.Text,
		"language":      nilIfEmpty(out.Language),
		"segments":      out.Segments,
		"raw":           safeRaw(out.Raw),
	}
	return o.completeStep(ctx, job, result, &step)
}

func (o *Orchestrator) stepSummarize(ctx context.Context, job *model.ProcessingJob, doc *model.Document, result *model.ResultLog, mode string) error {
	if result.FindCompleted(model.StepSummarize) != nil {
		return nil
	}

	step := newRunningStep(model.StepSummarize)
	o.notify(ctx, job, model.StepSummarize, model.StepStatusRunning, "")

	// 源文本优先级：文档已有文本 > 转写步骤输出 > 合成 input_text 步骤
	sourceText := ""
	if doc != nil && doc.TextContent != "" {
		sourceText = doc.TextContent
	} else {
		sourceText = result.CompletedOutputText(model.StepTranscribe, "text")
		if sourceText == "" {
			sourceText = result.CompletedOutputText(model.StepInputText, "text")
		}
	}
	if strings.TrimSpace(sourceText) == "" {
		return o.failStep(result, &step, fmt.Errorf("%w to summarize", ErrNoSourceText))
	}

	out, err := o.summarizer.Summarize(ctx, sourceText, mode)
	if err != nil {
		return o.failStep(result, &step, err)
	}

	if doc != nil {
		doc.Summary = out.Summary
		if err := o.docs.Update(doc); err != nil {
			return o.failStep(result, &step, fmt.Errorf("failed to persist summary: %w", err))
		}
	}

	step.Output = map[string]interface{}{
		"summary": out.Summary,
		"raw":     safeRaw(out.Raw),
	}
	return o.completeStep(ctx, job, result, &step)
}

func (o *Orchestrator) stepTranslate(ctx context.Context, job *model.ProcessingJob, doc *model.Document, result *model.ResultLog, targetLang, sourceLang string) error {
	if result.FindCompleted(model.StepTranslate) != nil {
		return nil
	}

	step := newRunningStep(model.StepTranslate)
	o.notify(ctx, job, model.StepTranslate, model.StepStatusRunning, "")

	// 源文本优先级：摘要 > 转写 > 文档文本 > 合成 input_text
	sourceText := result.CompletedOutputText(model.StepSummarize, "summary")
	if sourceText == "" {
		sourceText = result.CompletedOutputText(model.StepTranscribe, "text")
	}
	if sourceText == "" && doc != nil {
		sourceText = doc.TextContent
	}
	if sourceText == "" {
		sourceText = result.CompletedOutputText(model.StepInputText, "text")
	}
	if strings.TrimSpace(sourceText) == "" {
		return o.failStep(result, &step, fmt.Errorf("%w to translate", ErrNoSourceText))
	}

	out, err := o.translator.Translate(ctx, sourceText, targetLang, sourceLang)
	if err != nil {
		return o.failStep(result, &step, err)
	}

	if doc != nil {
		doc.TranslatedText = out.Translation
		if out.SourceLang != "" {
			doc.SourceLanguage = out.SourceLang
		}
		if err := o.docs.Update(doc); err != nil {
			return o.failStep(result, &step, fmt.Errorf("failed to persist translation: %w", err))
		}
	}

	step.Output = map[string]interface{}{
		"translation": out.Translation,
		"source_lang": nilIfEmpty(out.SourceLang),
		"target_lang": targetLang,
		"raw":         safeRaw(out.Raw),
	}
	return o.completeStep(ctx, job, result, &step)
}

func newRunningStep(name string) model.StepRecord {
	return model.StepRecord{
		Name:      name,
		Status:    model.StepStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// completeStep 标记完成并立即把整个 ResultLog 落库，保证崩溃后日志与
// "执行到哪了" 一致；落库失败按步骤失败处理。
func (o *Orchestrator) completeStep(ctx context.Context, job *model.ProcessingJob, result *model.ResultLog, step *model.StepRecord) error {
	now := time.Now().UTC()
	step.Status = model.StepStatusCompleted
	step.FinishedAt = &now
	result.Upsert(*step)

	job.Result = result
	if err := o.jobs.Update(job); err != nil {
		return o.failStep(result, step, fmt.Errorf("failed to persist step result: %w", err))
	}

	o.notify(ctx, job, step.Name, model.StepStatusCompleted, "")
	return nil
}

// failStep 失败记录进日志后把原始错误抛回编排器；不在这里落库，
// 由 finalizeFailure 统一持久化部分结果。
func (o *Orchestrator) failStep(result *model.ResultLog, step *model.StepRecord, cause error) error {
	now := time.Now().UTC()
	step.Status = model.StepStatusFailed
	step.FinishedAt = &now
	step.Output = map[string]interface{}{"error": cause.Error()}
	result.Upsert(*step)
	return cause
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// safeRaw 保证 raw 负载可序列化，序列化不了就退化成字符串
func safeRaw(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
