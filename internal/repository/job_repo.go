package repository

import (
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.ProcessingJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.ProcessingJob, error) {
	var job model.ProcessingJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByIDForUser(id, userID int64) (*model.ProcessingJob, error) {
	var job model.ProcessingJob
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.ProcessingJob) error {
	return r.db.Save(job).Error
}

// UpdateStatus 仅更新状态与错误信息，用于富结果写入失败后的兜底
func (r *JobRepository) UpdateStatus(id int64, status, errorMessage string) error {
	return r.db.Model(&model.ProcessingJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "error_message": errorMessage}).Error
}

// JobFilter 列表过滤条件。DocumentID 为 NullDocument 时只取无文档作业。
type JobFilter struct {
	DocumentID   *int64
	NullDocument bool
	JobType      string
	Limit        int
}

func (r *JobRepository) ListByUser(userID int64, filter JobFilter) ([]*model.ProcessingJob, error) {
	q := r.db.Where("user_id = ?", userID)
	if filter.NullDocument {
		q = q.Where("document_id IS NULL")
	} else if filter.DocumentID != nil {
		q = q.Where("document_id = ?", *filter.DocumentID)
	}
	if filter.JobType != "" {
		q = q.Where("job_type = ?", filter.JobType)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var jobs []*model.ProcessingJob
	err := q.Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

func (r *JobRepository) ListByDocument(userID, documentID int64) ([]*model.ProcessingJob, error) {
	var jobs []*model.ProcessingJob
	err := r.db.Where("user_id = ? AND document_id = ?", userID, documentID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepository) ListRecent(userID int64, limit int) ([]*model.ProcessingJob, error) {
	var jobs []*model.ProcessingJob
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ProcessingJob{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *JobRepository) CountByUserAndType(userID int64, jobType string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ProcessingJob{}).
		Where("user_id = ? AND job_type = ?", userID, jobType).
		Count(&count).Error
	return count, err
}
