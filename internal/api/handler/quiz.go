package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/pkg/response"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/service"
)

type QuizHandler struct {
	quizService *service.QuizService
}

func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// Generate 生成测验
// POST /api/v1/quizzes/generate
func (h *QuizHandler) Generate(c *gin.Context) {
	var req dto.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.quizService.Generate(c.Request.Context(), mustUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingInput), errors.Is(err, processing.ErrNoSourceText):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrDocumentNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.Error(c, response.CodeProcessingFailed, err.Error())
		}
		return
	}
	response.Success(c, resp)
}

// List 测验列表
// GET /api/v1/quizzes
func (h *QuizHandler) List(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	quizzes, err := h.quizService.List(mustUserID(c), limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, quizzes)
}

// Get 测验详情（含题目）
// GET /api/v1/quizzes/:id
func (h *QuizHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的测验 ID")
		return
	}

	quiz, err := h.quizService.Get(id, mustUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}
	response.Success(c, quiz)
}

// SubmitAttempt 提交答题
// POST /api/v1/quizzes/:id/attempts
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的测验 ID")
		return
	}

	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.quizService.SubmitAttempt(mustUserID(c), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrAnswerCount), errors.Is(err, service.ErrInvalidAnswer):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}
	response.Success(c, result)
}

// ListAttempts 历史作答
// GET /api/v1/quizzes/:id/attempts
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的测验 ID")
		return
	}

	attempts, err := h.quizService.ListAttempts(id, mustUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}
	response.Success(c, attempts)
}
