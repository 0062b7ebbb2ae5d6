package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
)

var ErrNoteNotFound = errors.New("笔记不存在")

const defaultNoteCount = 5

// FlashNoteService 闪记笔记生成。每次生成走一个 notes 作业记录，
// 与处理作业共用同一张表，便于在作业列表中追溯。
type FlashNoteService struct {
	noteRepo *repository.FlashNoteRepository
	docRepo  *repository.DocumentRepository
	jobRepo  *repository.JobRepository
	builder  capability.NotesBuilder
	notifier processing.ProgressNotifier
	cfg      *config.Config
}

func NewFlashNoteService(
	noteRepo *repository.FlashNoteRepository,
	docRepo *repository.DocumentRepository,
	jobRepo *repository.JobRepository,
	builder capability.NotesBuilder,
	notifier processing.ProgressNotifier,
	cfg *config.Config,
) *FlashNoteService {
	return &FlashNoteService{
		noteRepo: noteRepo,
		docRepo:  docRepo,
		jobRepo:  jobRepo,
		builder:  builder,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Generate 生成闪记笔记。同文档同密度已有笔记且未带 force 时直接复用。
func (s *FlashNoteService) Generate(ctx context.Context, userID int64, req *dto.CreateFlashNotesRequest) (*dto.CreateFlashNotesResponse, error) {
	sourceText, doc, err := s.resolveSource(userID, req.DocumentID, req.Text)
	if err != nil {
		return nil, err
	}

	density := req.Density
	if density == "" {
		density = s.cfg.Inference.NotesDensity
	}
	count := req.Count
	if count <= 0 {
		count = defaultNoteCount
	}

	if !req.Force && req.DocumentID != nil {
		existing, err := s.noteRepo.ListByDocumentAndTags(userID, *req.DocumentID, density, count)
		if err == nil && len(existing) > 0 {
			return &dto.CreateFlashNotesResponse{
				Status:  StatusExisting,
				Created: buildNoteItems(existing),
			}, nil
		}
	}

	params := processing.NotesParams{Count: count, Density: density, Force: req.Force}
	job, err := s.createNotesJob(userID, req.DocumentID, params, req.Text, doc)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, userID, job.ID, model.StepStatusRunning, "")

	out, err := s.builder.BuildNotes(ctx, sourceText, count, density)
	if err != nil {
		s.failJob(job, err)
		s.notify(ctx, userID, job.ID, model.StepStatusFailed, err.Error())
		return nil, err
	}

	title := req.Title
	if title == "" && doc != nil {
		title = doc.OriginalName
	}

	created := make([]*model.FlashNote, 0, len(out.Notes))
	for _, content := range out.Notes {
		note := &model.FlashNote{
			UserID:        userID,
			DocumentID:    req.DocumentID,
			Title:         title,
			Content:       content,
			SourceSnippet: processing.Truncate(sourceText, 300),
			Tags:          density,
		}
		if err := s.noteRepo.Create(note); err != nil {
			s.failJob(job, err)
			return nil, err
		}
		created = append(created, note)
	}

	s.completeJob(job, model.JSONMap{"note_count": len(created), "density": density})
	s.notify(ctx, userID, job.ID, model.StepStatusCompleted, "")

	return &dto.CreateFlashNotesResponse{
		JobID:   &job.ID,
		Status:  job.Status,
		Created: buildNoteItems(created),
	}, nil
}

// Get 单条笔记
func (s *FlashNoteService) Get(id, userID int64) (*dto.FlashNoteItem, error) {
	note, err := s.noteRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, ErrNoteNotFound
	}
	items := buildNoteItems([]*model.FlashNote{note})
	return &items[0], nil
}

// List 用户的笔记
func (s *FlashNoteService) List(userID int64, limit int) ([]dto.FlashNoteItem, error) {
	notes, err := s.noteRepo.ListByUser(userID, limit)
	if err != nil {
		return nil, err
	}
	return buildNoteItems(notes), nil
}

// Delete 删除笔记
func (s *FlashNoteService) Delete(id, userID int64) error {
	if _, err := s.noteRepo.GetByIDForUser(id, userID); err != nil {
		return ErrNoteNotFound
	}
	return s.noteRepo.Delete(id, userID)
}

func (s *FlashNoteService) resolveSource(userID int64, documentID *int64, text string) (string, *model.Document, error) {
	if documentID != nil {
		doc, err := s.docRepo.GetByIDForUser(*documentID, userID)
		if err != nil {
			return "", nil, ErrDocumentNotFound
		}
		sourceText := doc.TextContent
		if strings.TrimSpace(sourceText) == "" {
			sourceText = doc.Summary
		}
		if strings.TrimSpace(sourceText) == "" {
			return "", nil, processing.ErrNoSourceText
		}
		return sourceText, doc, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, ErrMissingInput
	}
	return text, nil, nil
}

func (s *FlashNoteService) createNotesJob(userID int64, documentID *int64, params processing.NotesParams, text string, doc *model.Document) (*model.ProcessingJob, error) {
	snapshot := processing.InputSnapshot{
		DocumentID: documentID,
		Text:       text,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if doc != nil {
		snapshot.FilePath = doc.FilePath
	}

	now := time.Now().UTC()
	job := &model.ProcessingJob{
		UserID:     userID,
		DocumentID: documentID,
		JobType:    model.JobTypeNotes,
		Status:     model.JobStatusRunning,
		Params:     params.Map(),
		Input:      snapshot.Map(),
		StartedAt:  &now,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *FlashNoteService) completeJob(job *model.ProcessingJob, output model.JSONMap) {
	now := time.Now().UTC()
	result := model.NewResultLog()
	result.OverallStatus = "completed"
	result.Upsert(model.StepRecord{
		Name:       model.JobTypeNotes,
		Status:     model.StepStatusCompleted,
		StartedAt:  derefTime(job.StartedAt, now),
		FinishedAt: &now,
		Output:     output,
	})

	job.Status = model.JobStatusCompleted
	job.FinishedAt = &now
	job.Result = result
	if err := s.jobRepo.Update(job); err != nil {
		log.Printf("Notes job %d: failed to persist completion: %v", job.ID, err)
	}
}

func (s *FlashNoteService) failJob(job *model.ProcessingJob, cause error) {
	now := time.Now().UTC()
	result := model.NewResultLog()
	result.OverallStatus = "failed"
	result.AddError(cause.Error(), now)

	job.Status = model.JobStatusFailed
	job.FinishedAt = &now
	job.ErrorMessage = cause.Error()
	job.Result = result
	if err := s.jobRepo.Update(job); err != nil {
		log.Printf("Notes job %d: failed to persist failure: %v", job.ID, err)
		if err := s.jobRepo.UpdateStatus(job.ID, model.JobStatusFailed, cause.Error()); err != nil {
			log.Printf("Notes job %d: fallback status write failed: %v", job.ID, err)
		}
	}
}

func (s *FlashNoteService) notify(ctx context.Context, userID, jobID int64, status, errMsg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJobProgress(ctx, userID, jobID, model.JobTypeNotes, status, errMsg); err != nil {
		log.Printf("Notes job %d: progress publish failed: %v", jobID, err)
	}
}

func buildNoteItems(notes []*model.FlashNote) []dto.FlashNoteItem {
	items := make([]dto.FlashNoteItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, dto.FlashNoteItem{
			ID:            n.ID,
			Title:         n.Title,
			Content:       n.Content,
			SourceSnippet: n.SourceSnippet,
			Tags:          n.Tags,
			Meta:          n.Meta,
			CreatedAt:     n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return items
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
