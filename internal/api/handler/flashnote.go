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

type FlashNoteHandler struct {
	noteService *service.FlashNoteService
}

func NewFlashNoteHandler(noteService *service.FlashNoteService) *FlashNoteHandler {
	return &FlashNoteHandler{noteService: noteService}
}

// Generate 生成闪记笔记
// POST /api/v1/flashnotes/generate
func (h *FlashNoteHandler) Generate(c *gin.Context) {
	var req dto.CreateFlashNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.noteService.Generate(c.Request.Context(), mustUserID(c), &req)
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

// List 笔记列表
// GET /api/v1/flashnotes
func (h *FlashNoteHandler) List(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	items, err := h.noteService.List(mustUserID(c), limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, items)
}

// Get 单条笔记
// GET /api/v1/flashnotes/:id
func (h *FlashNoteHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的笔记 ID")
		return
	}

	item, err := h.noteService.Get(id, mustUserID(c))
	if err != nil {
		response.NotFoundError(c, err.Error())
		return
	}
	response.Success(c, item)
}

// Delete 删除笔记
// DELETE /api/v1/flashnotes/:id
func (h *FlashNoteHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的笔记 ID")
		return
	}

	if err := h.noteService.Delete(id, mustUserID(c)); err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
