package repository

import (
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// GetByIDForUser 按所有者查询，避免越权访问
func (r *DocumentRepository) GetByIDForUser(id, userID int64) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByUser(userID int64) ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) ListRecent(userID int64, limit int) ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

func (r *DocumentRepository) Delete(id, userID int64) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Document{}).Error
}

func (r *DocumentRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Document{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
