package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
	"github.com/zf7c/studylab_go_server/internal/testutil"
)

// stubInference 固定返回的推理后端
type stubInference struct {
	transcribeCalls int
	summarizeCalls  int
	translateCalls  int

	summarizeErr error
}

func (s *stubInference) Transcribe(ctx context.Context, source string) (*capability.TranscribeResult, error) {
	s.transcribeCalls++
	return &capability.TranscribeResult{Text: "stub transcription", Language: "en"}, nil
}

func (s *stubInference) Summarize(ctx context.Context, text, mode string) (*capability.SummarizeResult, error) {
	s.summarizeCalls++
	if s.summarizeErr != nil {
		return nil, s.summarizeErr
	}
	return &capability.SummarizeResult{Summary: "stub summary"}, nil
}

func (s *stubInference) Translate(ctx context.Context, text, targetLang, sourceLang string) (*capability.TranslateResult, error) {
	s.translateCalls++
	return &capability.TranslateResult{Translation: "stub translation", SourceLang: "en"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Inference: config.InferenceConfig{
			SummaryMode:    "concise",
			TargetLang:     "en",
			NotesDensity:   "study",
			QuizQuestions:  5,
			QuizDifficulty: "medium",
		},
	}
}

func setupProcessingService(t *testing.T) (*ProcessingService, *stubInference, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	jobRepo := repository.NewJobRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	stub := &stubInference{}
	orch := processing.NewOrchestrator(jobRepo, docRepo, stub, stub, stub, nil)
	svc := NewProcessingService(jobRepo, docRepo, orch, testConfig())
	return svc, stub, db
}

func TestProcessingService_Start(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithFilePath("/tmp/a.mp3"))

	resp, err := svc.Start(context.Background(), user.ID, &dto.StartProcessingRequest{
		DocumentID: &doc.ID,
		Operations: []string{model.StepTranscribe, model.StepSummarize},
	})
	require.NoError(t, err)

	require.NotNil(t, resp.JobID)
	assert.Equal(t, model.JobStatusCompleted, resp.Status)
	assert.Equal(t, "stub transcription", resp.Transcription)
	assert.Equal(t, "stub summary", resp.Summary)

	// 作业落库且记录了参数快照
	detail, err := svc.GetJob(user.ID, *resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeComposite, detail.Type)
	assert.Equal(t, model.JobStatusCompleted, detail.Status)
	require.NotNil(t, detail.Result)
	assert.Len(t, detail.Result.Steps, 2)
}

func TestProcessingService_Start_MissingInput(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)

	_, err := svc.Start(context.Background(), user.ID, &dto.StartProcessingRequest{
		Operations: []string{model.StepSummarize},
	})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestProcessingService_Start_OtherUsersDocument(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	owner := testutil.TestUser(t, db)
	intruder := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, owner.ID)

	_, err := svc.Start(context.Background(), intruder.ID, &dto.StartProcessingRequest{
		DocumentID: &doc.ID,
		Operations: []string{model.StepSummarize},
	})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestProcessingService_Transcribe_ExistingShortCircuit(t *testing.T) {
	svc, stub, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("already transcribed"))

	resp, err := svc.Transcribe(context.Background(), user.ID, &dto.TranscribeRequest{
		DocumentID: doc.ID,
	})
	require.NoError(t, err)

	// 不创建作业，直接返回已有文本
	assert.Nil(t, resp.JobID)
	assert.Equal(t, StatusExisting, resp.Status)
	assert.Equal(t, "already transcribed", resp.Transcription)
	assert.Equal(t, 0, stub.transcribeCalls)
}

func TestProcessingService_Transcribe_ForceReruns(t *testing.T) {
	svc, stub, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID,
		testutil.WithTextContent("stale text"),
		testutil.WithFilePath("/tmp/a.mp3"))

	resp, err := svc.Transcribe(context.Background(), user.ID, &dto.TranscribeRequest{
		DocumentID: doc.ID,
		Force:      true,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.JobID)
	assert.Equal(t, model.JobStatusCompleted, resp.Status)
	assert.Equal(t, "stub transcription", resp.Transcription)
	assert.Equal(t, 1, stub.transcribeCalls)
}

func TestProcessingService_Summarize_ExistingShortCircuit(t *testing.T) {
	svc, stub, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID,
		testutil.WithTextContent("body"),
		testutil.WithSummary("cached summary"))

	resp, err := svc.Summarize(context.Background(), user.ID, &dto.SummarizeRequest{
		DocumentID: &doc.ID,
	})
	require.NoError(t, err)

	assert.Nil(t, resp.JobID)
	assert.Equal(t, StatusExisting, resp.Status)
	assert.Equal(t, "cached summary", resp.Summary)
	assert.Equal(t, 0, stub.summarizeCalls)
}

func TestProcessingService_Summarize_FailurePersistsJob(t *testing.T) {
	svc, stub, db := setupProcessingService(t)
	stub.summarizeErr = errors.New("model overloaded")

	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("body"))

	resp, err := svc.Summarize(context.Background(), user.ID, &dto.SummarizeRequest{
		DocumentID: &doc.ID,
	})
	require.Error(t, err)

	// 失败响应仍携带 job_id 与部分结果
	require.NotNil(t, resp)
	require.NotNil(t, resp.JobID)
	assert.Equal(t, model.JobStatusFailed, resp.Status)

	detail, err := svc.GetJob(user.ID, *resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, detail.Status)
	assert.Equal(t, "model overloaded", detail.Error)
}

func TestProcessingService_TextEndpoints(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)

	sumResp, err := svc.SummarizeText(context.Background(), user.ID, &dto.TextRequest{
		Text: "pasted lecture notes",
	})
	require.NoError(t, err)
	assert.Equal(t, "stub summary", sumResp.Summary)

	trResp, err := svc.TranslateText(context.Background(), user.ID, &dto.TextRequest{
		Text:       "pasted lecture notes",
		TargetLang: "zh",
	})
	require.NoError(t, err)
	assert.Equal(t, "stub translation", trResp.Translation)

	// 纯文本作业不关联文档
	jobs, err := svc.ListJobs(user.ID, repository.JobFilter{NullDocument: true})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestProcessingService_ListJobsFilters(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID)

	testutil.TestJob(t, db, user.ID, testutil.WithJobDocument(doc.ID), testutil.WithJobType(model.JobTypeSummarize))
	testutil.TestJob(t, db, user.ID, testutil.WithJobType(model.JobTypeTranslate))

	byDoc, err := svc.ListJobs(user.ID, repository.JobFilter{DocumentID: &doc.ID})
	require.NoError(t, err)
	assert.Len(t, byDoc, 1)

	byType, err := svc.ListJobs(user.ID, repository.JobFilter{JobType: model.JobTypeTranslate})
	require.NoError(t, err)
	assert.Len(t, byType, 1)
	assert.Equal(t, model.JobTypeTranslate, byType[0].Type)
}

func TestProcessingService_GetJob_NotFound(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)

	_, err := svc.GetJob(user.ID, 9999)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestProcessingService_Dashboard(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID)

	testutil.TestJob(t, db, user.ID, testutil.WithJobDocument(doc.ID), testutil.WithJobType(model.JobTypeSummarize))
	testutil.TestJob(t, db, user.ID, testutil.WithJobType(model.JobTypeTranslate))

	summary, err := svc.Dashboard(user.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Counts.Documents)
	assert.Equal(t, int64(2), summary.Counts.Jobs)
	assert.Equal(t, int64(1), summary.Counts.JobsByType[model.JobTypeSummarize])
	assert.Len(t, summary.RecentDocuments, 1)
	assert.Len(t, summary.RecentActivity, 2)
}

// 确认 gorm 错误不会漏出为裸 RecordNotFound
func TestProcessingService_ErrorsAreWrapped(t *testing.T) {
	svc, _, db := setupProcessingService(t)
	user := testutil.TestUser(t, db)

	_, err := svc.Transcribe(context.Background(), user.ID, &dto.TranscribeRequest{DocumentID: 404})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
