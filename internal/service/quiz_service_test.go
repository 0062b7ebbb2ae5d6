package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/repository"
	"github.com/zf7c/studylab_go_server/internal/testutil"
)

type stubQuizBuilder struct {
	calls     int
	questions []capability.QuizQuestion
	err       error
}

func (b *stubQuizBuilder) BuildQuiz(ctx context.Context, text string, numQuestions int, difficulty string) (*capability.QuizResult, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &capability.QuizResult{Questions: b.questions}, nil
}

func setupQuizService(t *testing.T) (*QuizService, *stubQuizBuilder, *repository.JobRepository, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	quizRepo := repository.NewQuizRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewJobRepository(db)
	builder := &stubQuizBuilder{
		questions: []capability.QuizQuestion{
			{Prompt: "What is 1+1?", Options: []string{"1", "2", "3"}, AnswerIndex: 1},
			{Prompt: "What is 2+2?", Options: []string{"3", "4", "5"}, AnswerIndex: 1, Explanation: "basic arithmetic"},
		},
	}
	svc := NewQuizService(quizRepo, docRepo, jobRepo, builder, nil, testConfig())
	return svc, builder, jobRepo, db
}

func TestQuizService_Generate(t *testing.T) {
	svc, _, jobRepo, db := setupQuizService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, resp.Status)
	assert.Equal(t, 2, resp.Quiz.QuestionCount)
	assert.Equal(t, doc.OriginalName, resp.Quiz.Title)

	quiz, err := svc.Get(resp.Quiz.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, 1, quiz.Questions[0].Ordinal)
	assert.Equal(t, 2, quiz.Questions[1].Ordinal)
	assert.Equal(t, []string{"1", "2", "3"}, []string(quiz.Questions[0].Options))

	require.NotNil(t, resp.JobID)
	job, err := jobRepo.GetByIDForUser(*resp.JobID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeQuiz, job.JobType)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestQuizService_GenerateReusesExisting(t *testing.T) {
	svc, builder, _, db := setupQuizService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	first, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Equal(t, 1, builder.calls)

	second, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusExisting, second.Status)
	assert.Equal(t, first.Quiz.ID, second.Quiz.ID)
	assert.Equal(t, 1, builder.calls)

	third, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID, Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.Quiz.ID, third.Quiz.ID)
	assert.Equal(t, 2, builder.calls)
}

func TestQuizService_GenerateEmptyQuizFails(t *testing.T) {
	svc, builder, jobRepo, db := setupQuizService(t)
	builder.questions = nil

	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	_, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	assert.ErrorIs(t, err, ErrEmptyQuiz)

	jobs, err := jobRepo.ListByUser(user.ID, repository.JobFilter{JobType: model.JobTypeQuiz})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusFailed, jobs[0].Status)
}

func TestQuizService_SubmitAttempt(t *testing.T) {
	svc, _, _, db := setupQuizService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	require.NoError(t, err)

	// 一对一错
	result, err := svc.SubmitAttempt(user.ID, resp.Quiz.ID, &dto.SubmitAttemptRequest{
		Answers: []dto.AttemptAnswer{
			{Ordinal: 1, SelectedIndex: 1},
			{Ordinal: 2, SelectedIndex: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 2, result.Total)
	assert.InDelta(t, 50.0, result.Score, 0.001)

	attempts, err := svc.ListAttempts(resp.Quiz.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.InDelta(t, 50.0, attempts[0].Score, 0.001)
}

func TestQuizService_SubmitAttemptValidation(t *testing.T) {
	svc, _, _, db := setupQuizService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	require.NoError(t, err)

	// 答案数与题目数不一致
	_, err = svc.SubmitAttempt(user.ID, resp.Quiz.ID, &dto.SubmitAttemptRequest{
		Answers: []dto.AttemptAnswer{{Ordinal: 1, SelectedIndex: 0}},
	})
	assert.ErrorIs(t, err, ErrAnswerCount)

	// 选项序号越界
	_, err = svc.SubmitAttempt(user.ID, resp.Quiz.ID, &dto.SubmitAttemptRequest{
		Answers: []dto.AttemptAnswer{
			{Ordinal: 1, SelectedIndex: 99},
			{Ordinal: 2, SelectedIndex: 0},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	// 未知题目序号
	_, err = svc.SubmitAttempt(user.ID, resp.Quiz.ID, &dto.SubmitAttemptRequest{
		Answers: []dto.AttemptAnswer{
			{Ordinal: 1, SelectedIndex: 0},
			{Ordinal: 42, SelectedIndex: 0},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestQuizService_OwnershipChecks(t *testing.T) {
	svc, _, _, db := setupQuizService(t)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateQuizRequest{DocumentID: &doc.ID})
	require.NoError(t, err)

	_, err = svc.Get(resp.Quiz.ID, other.ID)
	assert.ErrorIs(t, err, ErrQuizNotFound)

	_, err = svc.ListAttempts(resp.Quiz.ID, other.ID)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}
