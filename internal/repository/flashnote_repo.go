package repository

import (
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
)

type FlashNoteRepository struct {
	db *gorm.DB
}

func NewFlashNoteRepository(db *gorm.DB) *FlashNoteRepository {
	return &FlashNoteRepository{db: db}
}

func (r *FlashNoteRepository) Create(note *model.FlashNote) error {
	return r.db.Create(note).Error
}

func (r *FlashNoteRepository) GetByIDForUser(id, userID int64) (*model.FlashNote, error) {
	var note model.FlashNote
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *FlashNoteRepository) ListByUser(userID int64, limit int) ([]*model.FlashNote, error) {
	if limit <= 0 {
		limit = 100
	}
	var notes []*model.FlashNote
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

// ListByDocumentAndTags 取指定文档某密度标签下最近的笔记，用于 force=false 时复用
func (r *FlashNoteRepository) ListByDocumentAndTags(userID, documentID int64, tags string, limit int) ([]*model.FlashNote, error) {
	if limit <= 0 {
		limit = 10
	}
	var notes []*model.FlashNote
	err := r.db.Where("user_id = ? AND document_id = ? AND tags = ?", userID, documentID, tags).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

func (r *FlashNoteRepository) Delete(id, userID int64) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.FlashNote{}).Error
}
