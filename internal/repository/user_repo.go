package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByGithubID(githubID int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("github_id = ?", githubID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

// CreateResetToken 创建密码重置令牌
func (r *UserRepository) CreateResetToken(token *model.PasswordResetToken) error {
	return r.db.Create(token).Error
}

func (r *UserRepository) GetResetToken(token string) (*model.PasswordResetToken, error) {
	var prt model.PasswordResetToken
	err := r.db.Where("token = ?", token).First(&prt).Error
	if err != nil {
		return nil, err
	}
	return &prt, nil
}

func (r *UserRepository) MarkResetTokenUsed(id int64) error {
	now := time.Now().UTC()
	return r.db.Model(&model.PasswordResetToken{}).Where("id = ?", id).Update("used_at", now).Error
}

// PurgeResetTokens 删除已使用或已过期的令牌，返回删除数量
func (r *UserRepository) PurgeResetTokens(before time.Time) (int64, error) {
	res := r.db.Where("used_at IS NOT NULL OR expires_at < ?", before).Delete(&model.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
