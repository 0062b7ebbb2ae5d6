// Package processing 实现作业/步骤编排核心：按调用方给定的操作序列
// 依次执行处理步骤，步骤间通过 ResultLog 传递数据，每步落库一次，
// 失败隔离到单个步骤并终止作业。
package processing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/repository"
)

var (
	// ErrUnknownOperation 操作名不在已知集合内，属于输入错误，立即终止作业
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNoSourceText 摘要/翻译找不到任何可用的源文本
	ErrNoSourceText = errors.New("no text available")
)

// ProgressNotifier 步骤进度通知；失败只记日志，不影响作业执行
type ProgressNotifier interface {
	PublishJobProgress(ctx context.Context, userID, jobID int64, step, status, errMsg string) error
}

// RunOptions 一次编排运行的参数。Operations 的顺序即执行顺序，
// 后面的步骤可以依赖前面步骤的输出。
type RunOptions struct {
	Operations []string
	Mode       string
	TargetLang string
	SourceLang string
	AdhocText  string // 无文档时的临时输入文本
}

// Orchestrator 持有一次运行期间唯一可变的 ResultLog，顺序调度步骤，
// 并负责作业状态机 PENDING → RUNNING → {COMPLETED, FAILED} 的落库。
type Orchestrator struct {
	jobs        *repository.JobRepository
	docs        *repository.DocumentRepository
	transcriber capability.Transcriber
	summarizer  capability.Summarizer
	translator  capability.Translator
	notifier    ProgressNotifier
}

func NewOrchestrator(
	jobs *repository.JobRepository,
	docs *repository.DocumentRepository,
	transcriber capability.Transcriber,
	summarizer capability.Summarizer,
	translator capability.Translator,
	notifier ProgressNotifier,
) *Orchestrator {
	return &Orchestrator{
		jobs:        jobs,
		docs:        docs,
		transcriber: transcriber,
		summarizer:  summarizer,
		translator:  translator,
		notifier:    notifier,
	}
}

// Run 执行作业。job 必须是已创建（PENDING）的记录；doc 可以为 nil。
// 返回运行结束时的 ResultLog；作业失败时 ResultLog 保留已完成步骤和失败记录。
func (o *Orchestrator) Run(ctx context.Context, job *model.ProcessingJob, doc *model.Document, opts RunOptions) (*model.ResultLog, error) {
	now := time.Now().UTC()
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	if err := o.jobs.Update(job); err != nil {
		return nil, fmt.Errorf("failed to mark job running: %w", err)
	}

	result := model.NewResultLog()

	// 调用方给了临时文本、且没有转写步骤产出文本时，预置一个已完成的
	// input_text 合成步骤，给后续摘要/翻译当作数据源。
	if opts.AdhocText != "" && needsInputSeed(opts.Operations) {
		seedInputText(result, opts.AdhocText, now)
		job.Result = result
		if err := o.jobs.Update(job); err != nil {
			return o.finalizeFailure(ctx, job, result, fmt.Errorf("failed to persist seed step: %w", err))
		}
	}

	for _, op := range opts.Operations {
		var err error
		switch op {
		case model.StepTranscribe:
			err = o.stepTranscribe(ctx, job, doc, result)
		case model.StepSummarize:
			err = o.stepSummarize(ctx, job, doc, result, opts.Mode)
		case model.StepTranslate:
			err = o.stepTranslate(ctx, job, doc, result, opts.TargetLang, opts.SourceLang)
		default:
			err = fmt.Errorf("%w %q", ErrUnknownOperation, op)
		}
		if err != nil {
			return o.finalizeFailure(ctx, job, result, err)
		}
	}

	return o.finalizeSuccess(job, result)
}

// needsInputSeed 只有当没有转写步骤兜底、且确实有步骤要消费文本时才预置
func needsInputSeed(operations []string) bool {
	hasTranscribe := false
	hasConsumer := false
	for _, op := range operations {
		switch op {
		case model.StepTranscribe:
			hasTranscribe = true
		case model.StepSummarize, model.StepTranslate:
			hasConsumer = true
		}
	}
	return !hasTranscribe && hasConsumer
}

func seedInputText(result *model.ResultLog, text string, at time.Time) {
	finished := at
	result.Upsert(model.StepRecord{
		Name:       model.StepInputText,
		Status:     model.StepStatusCompleted,
		StartedAt:  at,
		FinishedAt: &finished,
		Output:     map[string]interface{}{"text": text},
	})
}

func (o *Orchestrator) finalizeSuccess(job *model.ProcessingJob, result *model.ResultLog) (*model.ResultLog, error) {
	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.FinishedAt = &now
	result.OverallStatus = "completed"
	job.Result = result
	if err := o.jobs.Update(job); err != nil {
		return o.finalizeFailure(context.Background(), job, result, fmt.Errorf("failed to persist completed job: %w", err))
	}
	return result, nil
}

// finalizeFailure 记录失败并尽力落库；富结果写入失败时退化为仅写状态。
// 已完成步骤对文档的副作用不回滚。
func (o *Orchestrator) finalizeFailure(ctx context.Context, job *model.ProcessingJob, result *model.ResultLog, cause error) (*model.ResultLog, error) {
	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.FinishedAt = &now
	job.ErrorMessage = cause.Error()
	result.AddError(cause.Error(), now)
	job.Result = result

	if err := o.jobs.Update(job); err != nil {
		log.Printf("Job %d: failed to persist failure result: %v", job.ID, err)
		if err := o.jobs.UpdateStatus(job.ID, model.JobStatusFailed, cause.Error()); err != nil {
			log.Printf("Job %d: fallback status write failed: %v", job.ID, err)
		}
	}

	o.notify(ctx, job, "", model.StepStatusFailed, cause.Error())
	return result, cause
}

func (o *Orchestrator) notify(ctx context.Context, job *model.ProcessingJob, step, status, errMsg string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.PublishJobProgress(ctx, job.UserID, job.ID, step, status, errMsg); err != nil {
		log.Printf("Job %d: progress publish failed: %v", job.ID, err)
	}
}
