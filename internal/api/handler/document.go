package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/internal/pkg/response"
	"github.com/zf7c/studylab_go_server/internal/service"
)

type DocumentHandler struct {
	docService *service.DocumentService
}

func NewDocumentHandler(docService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload 上传文档
// POST /api/v1/documents (multipart, field "file")
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := mustUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "缺少上传文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.docService.Upload(userID, fileHeader.Filename, contentType, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			response.Error(c, response.CodePayloadTooLarge, err.Error())
		case errors.Is(err, service.ErrUnsupportedFormat), errors.Is(err, service.ErrEmptyFile):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "上传成功", doc)
}

// List 文档列表
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	userID := mustUserID(c)
	docs, err := h.docService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, docs)
}

// Get 文档详情
// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	userID := mustUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的文档 ID")
		return
	}

	doc, err := h.docService.Get(id, userID)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}
	response.Success(c, doc)
}

// Delete 删除文档
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID := mustUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的文档 ID")
		return
	}

	if err := h.docService.Delete(id, userID); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// Download 下载原始文件。OSS 存储重定向到签名 URL，本地存储直接回传。
// GET /api/v1/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	userID := mustUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.ParamError(c, "无效的文档 ID")
		return
	}

	doc, err := h.docService.Get(id, userID)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}

	url, err := h.docService.DownloadURL(doc)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	if url != "" {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	data, err := h.docService.ReadLocal(doc)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+doc.OriginalName+"\"")
	c.Data(http.StatusOK, doc.MimeType, data)
}
