package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/testutil"
)

func TestJobRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)

	job := &model.ProcessingJob{
		UserID:  user.ID,
		JobType: model.JobTypeSummarize,
		Status:  model.JobStatusPending,
		Params:  model.JSONMap{"mode": "concise"},
		Input:   model.JSONMap{},
	}
	require.NoError(t, repo.Create(job))
	require.NotZero(t, job.ID)

	got, err := repo.GetByIDForUser(job.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeSummarize, got.JobType)
	assert.Equal(t, "concise", got.Params["mode"])

	// 其他用户查不到
	other := testutil.TestUser(t, db)
	_, err = repo.GetByIDForUser(job.ID, other.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestJobRepository_UpdatePersistsResult(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	job := testutil.TestJob(t, db, user.ID)

	result := model.NewResultLog()
	result.OverallStatus = "completed"
	result.Upsert(model.StepRecord{
		Name:   model.StepSummarize,
		Status: model.StepStatusCompleted,
		Output: model.JSONMap{"summary": "short"},
	})
	job.Status = model.JobStatusCompleted
	job.Result = result
	require.NoError(t, repo.Update(job))

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	step := got.Result.FindCompleted(model.StepSummarize)
	require.NotNil(t, step)
	assert.Equal(t, "short", step.Output["summary"])
}

func TestJobRepository_UpdateStatusFallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	job := testutil.TestJob(t, db, user.ID)

	require.NoError(t, repo.UpdateStatus(job.ID, model.JobStatusFailed, "backend unreachable"))

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "backend unreachable", got.ErrorMessage)
}

func TestJobRepository_ListByUserFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID)

	testutil.TestJob(t, db, user.ID, testutil.WithJobDocument(doc.ID), testutil.WithJobType(model.JobTypeTranscribe))
	testutil.TestJob(t, db, user.ID, testutil.WithJobDocument(doc.ID), testutil.WithJobType(model.JobTypeSummarize))
	testutil.TestJob(t, db, user.ID, testutil.WithJobType(model.JobTypeSummarize))

	all, err := repo.ListByUser(user.ID, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byDoc, err := repo.ListByUser(user.ID, JobFilter{DocumentID: &doc.ID})
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	noDoc, err := repo.ListByUser(user.ID, JobFilter{NullDocument: true})
	require.NoError(t, err)
	require.Len(t, noDoc, 1)
	assert.Nil(t, noDoc[0].DocumentID)

	byType, err := repo.ListByUser(user.ID, JobFilter{JobType: model.JobTypeSummarize})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	limited, err := repo.ListByUser(user.ID, JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestJobRepository_Counts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)

	testutil.TestJob(t, db, user.ID, testutil.WithJobType(model.JobTypeTranscribe))
	testutil.TestJob(t, db, user.ID, testutil.WithJobType(model.JobTypeTranscribe))
	testutil.TestJob(t, db, user.ID, testutil.WithJobType(model.JobTypeQuiz))
	testutil.TestJob(t, db, other.ID, testutil.WithJobType(model.JobTypeQuiz))

	total, err := repo.CountByUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	transcribes, err := repo.CountByUserAndType(user.ID, model.JobTypeTranscribe)
	require.NoError(t, err)
	assert.Equal(t, int64(2), transcribes)
}
