package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/pkg/oauth"
	"github.com/zf7c/studylab_go_server/internal/pkg/response"
	"github.com/zf7c/studylab_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	stateStore  *oauth.StateStore
	frontendURL string // OAuth 回调后跳转的前端地址
	resetURL    string // 密码重置页地址
}

func NewAuthHandler(authService *service.AuthService, stateStore *oauth.StateStore, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		stateStore:  stateStore,
		frontendURL: frontendURL,
		resetURL:    frontendURL + "/reset-password",
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "注册成功", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// ForgotPassword 发起密码重置
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(&req, h.resetURL); err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "如果该邮箱已注册，重置邮件已发送", nil)
}

// ResetPassword 重置密码
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "密码已重置", nil)
}

// Logout 登出。JWT 无服务端会话，这里只给前端一个统一的确认响应。
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	response.SuccessWithMessage(c, "已退出登录", nil)
}

// Me 当前用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := mustUserID(c)
	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		response.NotFoundError(c, "用户不存在")
		return
	}
	response.Success(c, user)
}

// GithubAuth 跳转 GitHub 授权页
// GET /api/v1/auth/github
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	state, err := h.stateStore.New(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GetGithubAuthURL(state))
}

// GithubCallback GitHub OAuth 回调，成功后携带 token 跳回前端
// GET /api/v1/auth/github/callback?code=xxx&state=xxx
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	ok, err := h.stateStore.Verify(c.Request.Context(), c.Query("state"))
	if err != nil || !ok {
		response.AuthError(c, "state 校验失败")
		return
	}

	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "缺少授权码")
		return
	}

	resp, err := h.authService.GithubCallback(c.Request.Context(), code)
	if err != nil {
		response.AuthError(c, "GitHub 登录失败")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect,
		fmt.Sprintf("%s/oauth/callback?token=%s", h.frontendURL, resp.Token))
}
