package model

import (
	"time"
)

type User struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Email        *string    `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	Name         string     `gorm:"size:120" json:"name,omitempty"`
	GithubID     *int64     `gorm:"uniqueIndex" json:"-"`
	GithubLogin  string     `gorm:"size:100" json:"github_login,omitempty"`
	AvatarURL    string     `gorm:"size:500" json:"avatar_url,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

type PasswordResetToken struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	UserID    int64      `gorm:"not null;index" json:"user_id"`
	Token     string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// IsValid 未使用且未过期
func (t *PasswordResetToken) IsValid() bool {
	return t.UsedAt == nil && time.Now().UTC().Before(t.ExpiresAt)
}
