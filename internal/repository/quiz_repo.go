package repository

import (
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
)

type QuizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.db.Create(quiz).Error
}

func (r *QuizRepository) CreateQuestions(questions []*model.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(questions).Error
}

func (r *QuizRepository) GetByIDForUser(id, userID int64) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// GetWithQuestions 加载测验及按序排列的题目
func (r *QuizRepository) GetWithQuestions(id, userID int64) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// GetLatestForDocument 取文档最近生成的测验，用于 force=false 时复用
func (r *QuizRepository) GetLatestForDocument(userID, documentID int64) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.Where("user_id = ? AND document_id = ?", userID, documentID).
		Order("generated_at DESC").
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) ListByUser(userID int64, limit int) ([]*model.Quiz, error) {
	if limit <= 0 {
		limit = 100
	}
	var quizzes []*model.Quiz
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) CreateAttempt(attempt *model.QuizAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *QuizRepository) CreateAttemptAnswers(answers []*model.QuizAttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.db.Create(answers).Error
}

func (r *QuizRepository) ListAttempts(quizID, userID int64) ([]*model.QuizAttempt, error) {
	var attempts []*model.QuizAttempt
	err := r.db.Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}
