package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
	"github.com/zf7c/studylab_go_server/internal/testutil"
)

type stubNotesBuilder struct {
	calls int
	notes []string
	err   error
}

func (b *stubNotesBuilder) BuildNotes(ctx context.Context, text string, count int, density string) (*capability.NotesResult, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &capability.NotesResult{Notes: b.notes}, nil
}

func setupFlashNoteService(t *testing.T) (*FlashNoteService, *stubNotesBuilder, *repository.JobRepository, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	noteRepo := repository.NewFlashNoteRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewJobRepository(db)
	builder := &stubNotesBuilder{notes: []string{"**Point one**", "**Point two**"}}
	svc := NewFlashNoteService(noteRepo, docRepo, jobRepo, builder, nil, testConfig())
	return svc, builder, jobRepo, db
}

func TestFlashNoteService_GenerateFromDocument(t *testing.T) {
	svc, _, jobRepo, db := setupFlashNoteService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{
		DocumentID: &doc.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, resp.Status)
	require.Len(t, resp.Created, 2)
	assert.Equal(t, "**Point one**", resp.Created[0].Content)
	assert.Equal(t, doc.OriginalName, resp.Created[0].Title)

	// 生成走一个 notes 作业，完成后可在作业列表中追溯
	require.NotNil(t, resp.JobID)
	job, err := jobRepo.GetByIDForUser(*resp.JobID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeNotes, job.JobType)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	steps := job.Result.FindCompleted(model.JobTypeNotes)
	require.NotNil(t, steps)
}

func TestFlashNoteService_GenerateReusesExisting(t *testing.T) {
	svc, builder, _, db := setupFlashNoteService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	first, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Equal(t, 1, builder.calls)

	second, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{DocumentID: &doc.ID})
	require.NoError(t, err)

	assert.Equal(t, StatusExisting, second.Status)
	assert.Nil(t, second.JobID)
	assert.Len(t, second.Created, len(first.Created))
	assert.Equal(t, 1, builder.calls)

	// force 绕过复用
	third, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{DocumentID: &doc.ID, Force: true})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, third.Status)
	assert.Equal(t, 2, builder.calls)
}

func TestFlashNoteService_GenerateFromText(t *testing.T) {
	svc, _, _, db := setupFlashNoteService(t)
	user := testutil.TestUser(t, db)

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{
		Text:  "pasted study material",
		Title: "My notes",
	})
	require.NoError(t, err)
	require.Len(t, resp.Created, 2)
	assert.Equal(t, "My notes", resp.Created[0].Title)
	assert.Equal(t, "pasted study material", resp.Created[0].SourceSnippet)
}

func TestFlashNoteService_GenerateNoSourceText(t *testing.T) {
	svc, builder, _, db := setupFlashNoteService(t)
	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID) // 既无文本也无摘要

	_, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{DocumentID: &doc.ID})
	assert.ErrorIs(t, err, processing.ErrNoSourceText)
	assert.Equal(t, 0, builder.calls)

	_, err = svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestFlashNoteService_GenerateFailureMarksJob(t *testing.T) {
	svc, builder, jobRepo, db := setupFlashNoteService(t)
	builder.err = errors.New("notes backend down")

	user := testutil.TestUser(t, db)
	doc := testutil.TestDocument(t, db, user.ID, testutil.WithTextContent("lecture body"))

	_, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{DocumentID: &doc.ID})
	require.Error(t, err)

	jobs, err := jobRepo.ListByUser(user.ID, repository.JobFilter{JobType: model.JobTypeNotes})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusFailed, jobs[0].Status)
	assert.Equal(t, "notes backend down", jobs[0].ErrorMessage)
	require.NotNil(t, jobs[0].Result)
	require.Len(t, jobs[0].Result.Errors, 1)
}

func TestFlashNoteService_ListAndDelete(t *testing.T) {
	svc, _, _, db := setupFlashNoteService(t)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)

	resp, err := svc.Generate(context.Background(), user.ID, &dto.CreateFlashNotesRequest{Text: "material"})
	require.NoError(t, err)
	require.Len(t, resp.Created, 2)

	items, err := svc.List(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// 其他用户既看不到也删不掉
	otherItems, err := svc.List(other.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, otherItems)
	assert.ErrorIs(t, svc.Delete(items[0].ID, other.ID), ErrNoteNotFound)

	require.NoError(t, svc.Delete(items[0].ID, user.ID))
	items, err = svc.List(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
