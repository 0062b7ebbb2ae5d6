package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
)

var (
	ErrJobNotFound  = errors.New("作业不存在")
	ErrMissingInput = errors.New("需要提供 document_id 或 text")
)

// StatusExisting 未创建作业、直接复用文档上已持久化结果时的响应状态
const StatusExisting = "existing"

// ProcessingService 处理作业入口：创建作业记录、做 force/已有结果
// 的短路判断，然后把执行交给编排器。执行在请求内同步完成。
type ProcessingService struct {
	jobRepo      *repository.JobRepository
	docRepo      *repository.DocumentRepository
	orchestrator *processing.Orchestrator
	cfg          *config.Config
}

func NewProcessingService(
	jobRepo *repository.JobRepository,
	docRepo *repository.DocumentRepository,
	orchestrator *processing.Orchestrator,
	cfg *config.Config,
) *ProcessingService {
	return &ProcessingService{
		jobRepo:      jobRepo,
		docRepo:      docRepo,
		orchestrator: orchestrator,
		cfg:          cfg,
	}
}

// Start 组合作业：按请求给定的顺序执行多个操作
func (s *ProcessingService) Start(ctx context.Context, userID int64, req *dto.StartProcessingRequest) (*dto.ProcessingResponse, error) {
	doc, err := s.resolveDocument(userID, req.DocumentID, req.Text)
	if err != nil {
		return nil, err
	}

	params := processing.CompositeParams{
		Operations: req.Operations,
		Mode:       s.modeOrDefault(req.Mode),
		TargetLang: s.langOrDefault(req.TargetLang),
		SourceLang: req.SourceLang,
	}
	job, err := s.createJob(userID, req.DocumentID, model.JobTypeComposite, params.Map(), req.Text, doc)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, job, doc, processing.RunOptions{
		Operations: req.Operations,
		Mode:       params.Mode,
		TargetLang: params.TargetLang,
		SourceLang: params.SourceLang,
		AdhocText:  req.Text,
	})
}

// Transcribe 单步转写。文档已有转写文本且未带 force 时直接复用。
func (s *ProcessingService) Transcribe(ctx context.Context, userID int64, req *dto.TranscribeRequest) (*dto.ProcessingResponse, error) {
	doc, err := s.getDocument(userID, req.DocumentID)
	if err != nil {
		return nil, err
	}

	if !req.Force && strings.TrimSpace(doc.TextContent) != "" {
		return &dto.ProcessingResponse{
			Status:        StatusExisting,
			Transcription: doc.TextContent,
		}, nil
	}

	if req.Force {
		// 强制重跑时清空旧文本，避免摘要/翻译步骤读到陈旧数据
		doc.TextContent = ""
		doc.Language = ""
	}

	params := model.JSONMap{"force": req.Force}
	job, err := s.createJob(userID, &req.DocumentID, model.JobTypeTranscribe, params, "", doc)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, job, doc, processing.RunOptions{
		Operations: []string{model.StepTranscribe},
	})
}

// Summarize 单步摘要。文档已有摘要且未带 force 时直接复用。
func (s *ProcessingService) Summarize(ctx context.Context, userID int64, req *dto.SummarizeRequest) (*dto.ProcessingResponse, error) {
	doc, err := s.resolveDocument(userID, req.DocumentID, req.Text)
	if err != nil {
		return nil, err
	}

	if doc != nil && !req.Force && strings.TrimSpace(doc.Summary) != "" {
		return &dto.ProcessingResponse{
			Status:  StatusExisting,
			Summary: doc.Summary,
		}, nil
	}

	mode := s.modeOrDefault(req.Mode)
	params := processing.SummarizeParams{Mode: mode, Force: req.Force}
	job, err := s.createJob(userID, req.DocumentID, model.JobTypeSummarize, params.Map(), req.Text, doc)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, job, doc, processing.RunOptions{
		Operations: []string{model.StepSummarize},
		Mode:       mode,
		AdhocText:  req.Text,
	})
}

// Translate 单步翻译。文档已有译文且未带 force 时直接复用。
func (s *ProcessingService) Translate(ctx context.Context, userID int64, req *dto.TranslateRequest) (*dto.ProcessingResponse, error) {
	doc, err := s.resolveDocument(userID, req.DocumentID, req.Text)
	if err != nil {
		return nil, err
	}

	if doc != nil && !req.Force && strings.TrimSpace(doc.TranslatedText) != "" {
		return &dto.ProcessingResponse{
			Status:      StatusExisting,
			Translation: doc.TranslatedText,
		}, nil
	}

	targetLang := s.langOrDefault(req.TargetLang)
	params := processing.TranslateParams{TargetLang: targetLang, SourceLang: req.SourceLang, Force: req.Force}
	job, err := s.createJob(userID, req.DocumentID, model.JobTypeTranslate, params.Map(), req.Text, doc)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, job, doc, processing.RunOptions{
		Operations: []string{model.StepTranslate},
		TargetLang: targetLang,
		SourceLang: req.SourceLang,
		AdhocText:  req.Text,
	})
}

// SummarizeText 纯文本摘要，不关联任何文档
func (s *ProcessingService) SummarizeText(ctx context.Context, userID int64, req *dto.TextRequest) (*dto.ProcessingResponse, error) {
	mode := s.modeOrDefault(req.Mode)
	params := processing.SummarizeParams{Mode: mode}
	job, err := s.createJob(userID, nil, model.JobTypeSummarize, params.Map(), req.Text, nil)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, job, nil, processing.RunOptions{
		Operations: []string{model.StepSummarize},
		Mode:       mode,
		AdhocText:  req.Text,
	})
}

// TranslateText 纯文本翻译，不关联任何文档
func (s *ProcessingService) TranslateText(ctx context.Context, userID int64, req *dto.TextRequest) (*dto.ProcessingResponse, error) {
	targetLang := s.langOrDefault(req.TargetLang)
	params := processing.TranslateParams{TargetLang: targetLang, SourceLang: req.SourceLang}
	job, err := s.createJob(userID, nil, model.JobTypeTranslate, params.Map(), req.Text, nil)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, job, nil, processing.RunOptions{
		Operations: []string{model.StepTranslate},
		TargetLang: targetLang,
		SourceLang: req.SourceLang,
		AdhocText:  req.Text,
	})
}

// GetJob 作业详情
func (s *ProcessingService) GetJob(userID, jobID int64) (*dto.JobDetail, error) {
	job, err := s.jobRepo.GetByIDForUser(jobID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return buildJobDetail(job), nil
}

// ListJobs 作业列表
func (s *ProcessingService) ListJobs(userID int64, filter repository.JobFilter) ([]*dto.JobListItem, error) {
	jobs, err := s.jobRepo.ListByUser(userID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.JobListItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, &dto.JobListItem{
			ID:         job.ID,
			Type:       job.JobType,
			Status:     job.Status,
			DocumentID: job.DocumentID,
			Params:     job.Params,
			CreatedAt:  job.CreatedAt.UTC().Format(time.RFC3339),
			StartedAt:  formatTimePtr(job.StartedAt),
			FinishedAt: formatTimePtr(job.FinishedAt),
		})
	}
	return items, nil
}

// Dashboard 仪表盘汇总
func (s *ProcessingService) Dashboard(userID int64) (*dto.DashboardSummary, error) {
	docCount, err := s.docRepo.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	jobCount, err := s.jobRepo.CountByUser(userID)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int64)
	for _, jt := range []string{
		model.JobTypeTranscribe, model.JobTypeSummarize, model.JobTypeTranslate,
		model.JobTypeNotes, model.JobTypeQuiz, model.JobTypeComposite,
	} {
		n, err := s.jobRepo.CountByUserAndType(userID, jt)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			byType[jt] = n
		}
	}

	docs, err := s.docRepo.ListRecent(userID, 5)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobRepo.ListRecent(userID, 10)
	if err != nil {
		return nil, err
	}

	summary := &dto.DashboardSummary{
		Counts: dto.DashboardCounts{
			Documents:  docCount,
			Jobs:       jobCount,
			JobsByType: byType,
		},
		RecentDocuments: make([]dto.RecentDocument, 0, len(docs)),
		RecentActivity:  make([]dto.RecentJob, 0, len(jobs)),
	}
	for _, d := range docs {
		summary.RecentDocuments = append(summary.RecentDocuments, dto.RecentDocument{
			ID:        d.ID,
			Name:      d.OriginalName,
			MimeType:  d.MimeType,
			SizeBytes: d.SizeBytes,
			CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for _, j := range jobs {
		summary.RecentActivity = append(summary.RecentActivity, dto.RecentJob{
			ID:         j.ID,
			Type:       j.JobType,
			Status:     j.Status,
			DocumentID: j.DocumentID,
			CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return summary, nil
}

// resolveDocument 解析输入来源：给了 document_id 就校验所有权，
// 都没给就拒绝。临时文本作业 doc 为 nil。
func (s *ProcessingService) resolveDocument(userID int64, documentID *int64, text string) (*model.Document, error) {
	if documentID != nil {
		return s.getDocument(userID, *documentID)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingInput
	}
	return nil, nil
}

func (s *ProcessingService) getDocument(userID, documentID int64) (*model.Document, error) {
	doc, err := s.docRepo.GetByIDForUser(documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// createJob 创建 PENDING 作业记录，固化参数与输入快照
func (s *ProcessingService) createJob(userID int64, documentID *int64, jobType string, params model.JSONMap, text string, doc *model.Document) (*model.ProcessingJob, error) {
	snapshot := processing.InputSnapshot{
		DocumentID: documentID,
		Text:       text,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if doc != nil {
		snapshot.FilePath = doc.FilePath
	}

	job := &model.ProcessingJob{
		UserID:     userID,
		DocumentID: documentID,
		JobType:    jobType,
		Status:     model.JobStatusPending,
		Params:     params,
		Input:      snapshot.Map(),
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}
	return job, nil
}

// run 同步执行并组装响应。作业失败时响应仍带 job_id 与部分结果，
// 错误原样返回给上层决定状态码。
func (s *ProcessingService) run(ctx context.Context, job *model.ProcessingJob, doc *model.Document, opts processing.RunOptions) (*dto.ProcessingResponse, error) {
	result, runErr := s.orchestrator.Run(ctx, job, doc, opts)

	resp := &dto.ProcessingResponse{
		JobID:  &job.ID,
		Status: job.Status,
		Result: result,
	}
	if result != nil {
		resp.Transcription = result.CompletedOutputText(model.StepTranscribe, "text")
		resp.Summary = result.CompletedOutputText(model.StepSummarize, "summary")
		resp.Translation = result.CompletedOutputText(model.StepTranslate, "translation")
	}
	return resp, runErr
}

func (s *ProcessingService) modeOrDefault(mode string) string {
	if mode == "" {
		return s.cfg.Inference.SummaryMode
	}
	return mode
}

func (s *ProcessingService) langOrDefault(lang string) string {
	if lang == "" {
		return s.cfg.Inference.TargetLang
	}
	return lang
}

func buildJobDetail(job *model.ProcessingJob) *dto.JobDetail {
	return &dto.JobDetail{
		ID:         job.ID,
		Type:       job.JobType,
		Status:     job.Status,
		DocumentID: job.DocumentID,
		Params:     job.Params,
		Input:      job.Input,
		Result:     job.Result,
		Error:      job.ErrorMessage,
		StartedAt:  formatTimePtr(job.StartedAt),
		FinishedAt: formatTimePtr(job.FinishedAt),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
