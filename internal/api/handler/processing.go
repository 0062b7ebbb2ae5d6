package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/internal/model/dto"
	"github.com/zf7c/studylab_go_server/internal/pkg/response"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
	"github.com/zf7c/studylab_go_server/internal/service"
)

type ProcessingHandler struct {
	procService *service.ProcessingService
}

func NewProcessingHandler(procService *service.ProcessingService) *ProcessingHandler {
	return &ProcessingHandler{procService: procService}
}

// Start 组合作业
// POST /api/v1/processing/start
func (h *ProcessingHandler) Start(c *gin.Context) {
	var req dto.StartProcessingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.procService.Start(c.Request.Context(), mustUserID(c), &req)
	h.reply(c, resp, err)
}

// Transcribe 单步转写
// POST /api/v1/processing/transcribe
func (h *ProcessingHandler) Transcribe(c *gin.Context) {
	var req dto.TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.procService.Transcribe(c.Request.Context(), mustUserID(c), &req)
	h.reply(c, resp, err)
}

// Summarize 单步摘要
// POST /api/v1/processing/summarize
func (h *ProcessingHandler) Summarize(c *gin.Context) {
	var req dto.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.procService.Summarize(c.Request.Context(), mustUserID(c), &req)
	h.reply(c, resp, err)
}

// Translate 单步翻译
// POST /api/v1/processing/translate
func (h *ProcessingHandler) Translate(c *gin.Context) {
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.procService.Translate(c.Request.Context(), mustUserID(c), &req)
	h.reply(c, resp, err)
}

// SummarizeText 纯文本摘要
// POST /api/v1/processing/text/summarize
func (h *ProcessingHandler) SummarizeText(c *gin.Context) {
	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.procService.SummarizeText(c.Request.Context(), mustUserID(c), &req)
	h.reply(c, resp, err)
}

// TranslateText 纯文本翻译
// POST /api/v1/processing/text/translate
func (h *ProcessingHandler) TranslateText(c *gin.Context) {
	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.procService.TranslateText(c.Request.Context(), mustUserID(c), &req)
	h.reply(c, resp, err)
}

// ListJobs 作业列表，支持 type / document_id / limit 过滤
// GET /api/v1/processing/jobs
func (h *ProcessingHandler) ListJobs(c *gin.Context) {
	filter := repository.JobFilter{
		JobType: c.Query("type"),
	}
	if v := c.Query("document_id"); v != "" {
		if v == "null" {
			filter.NullDocument = true
		} else if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.DocumentID = &id
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	items, err := h.procService.ListJobs(mustUserID(c), filter)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, items)
}

// GetJob 作业详情
// GET /api/v1/processing/jobs/:id
func (h *ProcessingHandler) GetJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的作业 ID")
		return
	}

	detail, err := h.procService.GetJob(mustUserID(c), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}
	response.Success(c, detail)
}

// ListDocumentJobs 某文档的全部作业
// GET /api/v1/processing/documents/:id/jobs
func (h *ProcessingHandler) ListDocumentJobs(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的文档 ID")
		return
	}

	items, err := h.procService.ListJobs(mustUserID(c), repository.JobFilter{DocumentID: &id})
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, items)
}

// Dashboard 仪表盘汇总
// GET /api/v1/processing/dashboard/summary
func (h *ProcessingHandler) Dashboard(c *gin.Context) {
	summary, err := h.procService.Dashboard(mustUserID(c))
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, summary)
}

// reply 统一处理执行结果：输入类错误给参数错误码，作业失败
// 带上 job_id 与部分结果返回处理失败码。
func (h *ProcessingHandler) reply(c *gin.Context, resp *dto.ProcessingResponse, err error) {
	if err == nil {
		response.Success(c, resp)
		return
	}

	switch {
	case errors.Is(err, service.ErrMissingInput),
		errors.Is(err, processing.ErrUnknownOperation):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFoundError(c, err.Error())
	default:
		response.ErrorWithData(c, response.CodeProcessingFailed, err.Error(), resp)
	}
}
