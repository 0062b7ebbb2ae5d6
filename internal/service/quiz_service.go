package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
)

var (
	ErrQuizNotFound  = errors.New("测验不存在")
	ErrEmptyQuiz     = errors.New("生成的测验没有题目")
	ErrAnswerCount   = errors.New("答案数量与题目数量不符")
	ErrInvalidAnswer = errors.New("答案序号无效")
)

// QuizService 测验生成与作答
type QuizService struct {
	quizRepo *repository.QuizRepository
	docRepo  *repository.DocumentRepository
	jobRepo  *repository.JobRepository
	builder  capability.QuizBuilder
	notifier processing.ProgressNotifier
	cfg      *config.Config
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	docRepo *repository.DocumentRepository,
	jobRepo *repository.JobRepository,
	builder capability.QuizBuilder,
	notifier processing.ProgressNotifier,
	cfg *config.Config,
) *QuizService {
	return &QuizService{
		quizRepo: quizRepo,
		docRepo:  docRepo,
		jobRepo:  jobRepo,
		builder:  builder,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Generate 生成测验。文档已有测验且未带 force 时直接复用最近一份。
func (s *QuizService) Generate(ctx context.Context, userID int64, req *dto.CreateQuizRequest) (*dto.CreateQuizResponse, error) {
	sourceText, doc, err := s.resolveSource(userID, req.DocumentID, req.Text)
	if err != nil {
		return nil, err
	}

	if !req.Force && req.DocumentID != nil {
		existing, err := s.quizRepo.GetLatestForDocument(userID, *req.DocumentID)
		if err == nil {
			return &dto.CreateQuizResponse{
				Status: StatusExisting,
				Quiz: dto.QuizSummary{
					ID:            existing.ID,
					Title:         existing.Title,
					QuestionCount: existing.QuestionCount,
				},
			}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	numQuestions := req.NumQuestions
	if numQuestions <= 0 {
		numQuestions = s.cfg.Inference.QuizQuestions
	}
	if numQuestions <= 0 {
		numQuestions = 5
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = s.cfg.Inference.QuizDifficulty
	}

	params := processing.QuizParams{NumQuestions: numQuestions, Difficulty: difficulty, Force: req.Force}
	job, err := s.createQuizJob(userID, req.DocumentID, params, req.Text, doc)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, userID, job.ID, model.StepStatusRunning, "")

	out, err := s.builder.BuildQuiz(ctx, sourceText, numQuestions, difficulty)
	if err != nil {
		s.failJob(job, err)
		s.notify(ctx, userID, job.ID, model.StepStatusFailed, err.Error())
		return nil, err
	}
	if len(out.Questions) == 0 {
		s.failJob(job, ErrEmptyQuiz)
		s.notify(ctx, userID, job.ID, model.StepStatusFailed, ErrEmptyQuiz.Error())
		return nil, ErrEmptyQuiz
	}

	title := req.Title
	if title == "" && doc != nil {
		title = doc.OriginalName
	}

	now := time.Now().UTC()
	quiz := &model.Quiz{
		UserID:        userID,
		DocumentID:    req.DocumentID,
		Title:         title,
		QuestionCount: len(out.Questions),
		GeneratedAt:   &now,
		Meta:          model.JSONMap{"difficulty": difficulty},
	}
	if err := s.quizRepo.Create(quiz); err != nil {
		s.failJob(job, err)
		return nil, err
	}

	questions := make([]*model.QuizQuestion, 0, len(out.Questions))
	for i, q := range out.Questions {
		questions = append(questions, &model.QuizQuestion{
			QuizID:      quiz.ID,
			Ordinal:     i + 1,
			Prompt:      q.Prompt,
			Options:     q.Options,
			AnswerIndex: q.AnswerIndex,
			Explanation: q.Explanation,
		})
	}
	if err := s.quizRepo.CreateQuestions(questions); err != nil {
		s.failJob(job, err)
		return nil, err
	}

	s.completeJob(job, model.JSONMap{"quiz_id": quiz.ID, "question_count": len(questions)})
	s.notify(ctx, userID, job.ID, model.StepStatusCompleted, "")

	return &dto.CreateQuizResponse{
		JobID:  &job.ID,
		Status: job.Status,
		Quiz: dto.QuizSummary{
			ID:            quiz.ID,
			Title:         quiz.Title,
			QuestionCount: quiz.QuestionCount,
		},
	}, nil
}

// Get 加载测验及题目
func (s *QuizService) Get(id, userID int64) (*model.Quiz, error) {
	quiz, err := s.quizRepo.GetWithQuestions(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

// List 用户的测验
func (s *QuizService) List(userID int64, limit int) ([]*model.Quiz, error) {
	return s.quizRepo.ListByUser(userID, limit)
}

// SubmitAttempt 提交答题并评分。按题目序号对齐答案。
func (s *QuizService) SubmitAttempt(userID, quizID int64, req *dto.SubmitAttemptRequest) (*dto.AttemptResult, error) {
	quiz, err := s.Get(quizID, userID)
	if err != nil {
		return nil, err
	}
	if len(req.Answers) != len(quiz.Questions) {
		return nil, ErrAnswerCount
	}

	byOrdinal := make(map[int]*model.QuizQuestion, len(quiz.Questions))
	for i := range quiz.Questions {
		byOrdinal[quiz.Questions[i].Ordinal] = &quiz.Questions[i]
	}

	correct := 0
	answers := make([]*model.QuizAttemptAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		q, ok := byOrdinal[a.Ordinal]
		if !ok {
			return nil, fmt.Errorf("%w: ordinal %d", ErrInvalidAnswer, a.Ordinal)
		}
		if a.SelectedIndex < 0 || a.SelectedIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d option %d", ErrInvalidAnswer, a.Ordinal, a.SelectedIndex)
		}

		isCorrect := a.SelectedIndex == q.AnswerIndex
		if isCorrect {
			correct++
		}
		answers = append(answers, &model.QuizAttemptAnswer{
			QuestionID:    &q.ID,
			Ordinal:       a.Ordinal,
			SelectedIndex: a.SelectedIndex,
			CorrectIndex:  q.AnswerIndex,
			IsCorrect:     isCorrect,
		})
	}

	total := len(quiz.Questions)
	attempt := &model.QuizAttempt{
		QuizID:       quizID,
		UserID:       userID,
		Score:        float64(correct) / float64(total) * 100,
		Total:        total,
		CorrectCount: correct,
	}
	if err := s.quizRepo.CreateAttempt(attempt); err != nil {
		return nil, err
	}
	for _, a := range answers {
		a.AttemptID = attempt.ID
	}
	if err := s.quizRepo.CreateAttemptAnswers(answers); err != nil {
		return nil, err
	}

	return &dto.AttemptResult{
		AttemptID:    attempt.ID,
		Score:        attempt.Score,
		Total:        total,
		CorrectCount: correct,
	}, nil
}

// ListAttempts 测验的历史作答
func (s *QuizService) ListAttempts(quizID, userID int64) ([]*model.QuizAttempt, error) {
	if _, err := s.quizRepo.GetByIDForUser(quizID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return s.quizRepo.ListAttempts(quizID, userID)
}

func (s *QuizService) resolveSource(userID int64, documentID *int64, text string) (string, *model.Document, error) {
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

func (s *QuizService) createQuizJob(userID int64, documentID *int64, params processing.QuizParams, text string, doc *model.Document) (*model.ProcessingJob, error) {
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
		JobType:    model.JobTypeQuiz,
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

func (s *QuizService) completeJob(job *model.ProcessingJob, output model.JSONMap) {
	now := time.Now().UTC()
	result := model.NewResultLog()
	result.OverallStatus = "completed"
	result.Upsert(model.StepRecord{
		Name:       model.JobTypeQuiz,
		Status:     model.StepStatusCompleted,
		StartedAt:  derefTime(job.StartedAt, now),
		FinishedAt: &now,
		Output:     output,
	})

	job.Status = model.JobStatusCompleted
	job.FinishedAt = &now
	job.Result = result
	if err := s.jobRepo.Update(job); err != nil {
		log.Printf("Quiz job %d: failed to persist completion: %v", job.ID, err)
	}
}

func (s *QuizService) failJob(job *model.ProcessingJob, cause error) {
	now := time.Now().UTC()
	result := model.NewResultLog()
	result.OverallStatus = "failed"
	result.AddError(cause.Error(), now)

	job.Status = model.JobStatusFailed
	job.FinishedAt = &now
	job.ErrorMessage = cause.Error()
	job.Result = result
	if err := s.jobRepo.Update(job); err != nil {
		log.Printf("Quiz job %d: failed to persist failure: %v", job.ID, err)
		if err := s.jobRepo.UpdateStatus(job.ID, model.JobStatusFailed, cause.Error()); err != nil {
			log.Printf("Quiz job %d: fallback status write failed: %v", job.ID, err)
		}
	}
}

func (s *QuizService) notify(ctx context.Context, userID, jobID int64, status, errMsg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJobProgress(ctx, userID, jobID, model.JobTypeQuiz, status, errMsg); err != nil {
		log.Printf("Quiz job %d: progress publish failed: %v", jobID, err)
	}
}
