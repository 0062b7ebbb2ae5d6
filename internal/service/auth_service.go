package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/pkg/email"
	"github.com/zf7c/studylab_go_server/internal/pkg/jwt"
	"github.com/zf7c/studylab_go_server/internal/pkg/oauth"
	"github.com/zf7c/studylab_go_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrInvalidResetToken  = errors.New("重置链接无效或已过期")
	ErrUserNotFound       = errors.New("用户不存在")
)

const resetTokenTTL = time.Hour

// Mailer 密码重置/欢迎邮件发送；测试里用假实现
type Mailer interface {
	SendPasswordReset(to, resetLink string) error
	SendWelcome(to, username string) error
}

type AuthService struct {
	userRepo    *repository.UserRepository
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
	mailer      Mailer
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		cfg:         cfg,
		githubOAuth: oauth.NewGithubOAuth(&cfg.OAuth.Github),
		mailer:      email.NewService(&cfg.Email),
	}
}

// SetMailer 替换邮件实现（测试用）
func (s *AuthService) SetMailer(m Mailer) {
	s.mailer = m
}

// Register 用户注册
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	_, err := s.userRepo.GetByEmail(req.Email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	passwordStr := string(hashedPassword)
	user := &model.User{
		Email:        &req.Email,
		PasswordHash: &passwordStr,
		Name:         req.Name,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if s.mailer != nil && s.cfg.Email.SMTPHost != "" {
		if err := s.mailer.SendWelcome(req.Email, user.Name); err != nil {
			log.Printf("Failed to send welcome mail to %s: %v", req.Email, err)
		}
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{Token: token, User: s.buildUserInfo(user)}, nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// OAuth 用户没有密码
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		log.Printf("Failed to record login time for user %d: %v", user.ID, err)
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{Token: token, User: s.buildUserInfo(user)}, nil
}

// ForgotPassword 发起密码重置。邮箱不存在时也返回成功，避免探测账号。
func (s *AuthService) ForgotPassword(req *dto.ForgotPasswordRequest, resetBaseURL string) error {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	prt := &model.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if err := s.userRepo.CreateResetToken(prt); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s?token=%s", resetBaseURL, token)
	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(req.Email, resetLink); err != nil {
			return fmt.Errorf("failed to send reset mail: %w", err)
		}
	}
	return nil
}

// ResetPassword 按令牌重置密码
func (s *AuthService) ResetPassword(req *dto.ResetPasswordRequest) error {
	prt, err := s.userRepo.GetResetToken(req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !prt.IsValid() {
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.GetByID(prt.UserID)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	passwordStr := string(hashedPassword)
	user.PasswordHash = &passwordStr
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	return s.userRepo.MarkResetTokenUsed(prt.ID)
}

// GetUserByID 根据 ID 获取用户
func (s *AuthService) GetUserByID(id int64) (*model.User, error) {
	return s.userRepo.GetByID(id)
}

// GetGithubAuthURL 获取 GitHub 授权 URL
func (s *AuthService) GetGithubAuthURL(state string) string {
	return s.githubOAuth.AuthURL(state)
}

// GithubCallback 处理 GitHub OAuth 回调，按 github_id 查找或创建用户
func (s *AuthService) GithubCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	githubUser, err := s.githubOAuth.FetchUser(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByGithubID(githubUser.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if user == nil {
		user = &model.User{
			GithubID:    &githubUser.ID,
			GithubLogin: githubUser.Login,
			Name:        githubUser.Name,
			AvatarURL:   githubUser.AvatarURL,
		}
		if user.Name == "" {
			user.Name = githubUser.Login
		}
		if githubUser.Email != "" {
			// 邮箱可能已被密码账号占用，冲突时放弃绑定邮箱
			if _, err := s.userRepo.GetByEmail(githubUser.Email); errors.Is(err, gorm.ErrRecordNotFound) {
				user.Email = &githubUser.Email
			}
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else {
		user.GithubLogin = githubUser.Login
		user.AvatarURL = githubUser.AvatarURL
		now := time.Now().UTC()
		user.LastLoginAt = &now
		if err := s.userRepo.Update(user); err != nil {
			log.Printf("Failed to refresh github profile for user %d: %v", user.ID, err)
		}
	}

	jwtToken, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{Token: jwtToken, User: s.buildUserInfo(user)}, nil
}

func (s *AuthService) buildUserInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:          user.ID,
		Name:        user.Name,
		GithubLogin: user.GithubLogin,
		AvatarURL:   user.AvatarURL,
	}
	if user.Email != nil {
		info.Email = *user.Email
	}
	return info
}
