package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Email:        &email,
		PasswordHash: &passwordHash,
		Name:         fmt.Sprintf("testuser_%d", time.Now().UnixNano()%10000),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithGithub 设置 GitHub 账号
func WithGithub(id int64, login string) func(*model.User) {
	return func(u *model.User) {
		u.GithubID = &id
		u.GithubLogin = login
		u.PasswordHash = nil
	}
}

// TestDocument 创建测试文档
func TestDocument(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Document)) *model.Document {
	t.Helper()

	doc := &model.Document{
		UserID:       userID,
		Filename:     fmt.Sprintf("%d.txt", time.Now().UnixNano()),
		OriginalName: "lecture.txt",
		MimeType:     "text/plain",
		SizeBytes:    128,
	}

	for _, opt := range opts {
		opt(doc)
	}

	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}

	return doc
}

// WithTextContent 设置已有文本内容
func WithTextContent(text string) func(*model.Document) {
	return func(d *model.Document) {
		d.TextContent = text
	}
}

// WithSummary 设置已有摘要
func WithSummary(summary string) func(*model.Document) {
	return func(d *model.Document) {
		d.Summary = summary
	}
}

// WithFilePath 设置存储路径
func WithFilePath(path string) func(*model.Document) {
	return func(d *model.Document) {
		d.FilePath = path
	}
}

// TestJob 创建测试作业
func TestJob(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.ProcessingJob)) *model.ProcessingJob {
	t.Helper()

	job := &model.ProcessingJob{
		UserID:  userID,
		JobType: model.JobTypeComposite,
		Status:  model.JobStatusPending,
		Params:  model.JSONMap{},
		Input:   model.JSONMap{},
	}

	for _, opt := range opts {
		opt(job)
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}

// WithJobType 设置作业类型
func WithJobType(jobType string) func(*model.ProcessingJob) {
	return func(j *model.ProcessingJob) {
		j.JobType = jobType
	}
}

// WithJobDocument 关联文档
func WithJobDocument(documentID int64) func(*model.ProcessingJob) {
	return func(j *model.ProcessingJob) {
		j.DocumentID = &documentID
	}
}

// WithJobStatus 设置作业状态
func WithJobStatus(status string) func(*model.ProcessingJob) {
	return func(j *model.ProcessingJob) {
		j.Status = status
	}
}
