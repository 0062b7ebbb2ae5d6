package service

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/pkg/oss"
	"github.com/zf7c/studylab_go_server/internal/repository"
)

var (
	ErrDocumentNotFound  = errors.New("文档不存在")
	ErrFileTooLarge      = errors.New("文件过大")
	ErrUnsupportedFormat = errors.New("不支持的文件格式")
	ErrEmptyFile         = errors.New("文件内容为空")
)

// 默认允许的扩展名；可被配置覆盖
var defaultAllowedExtensions = []string{
	".txt", ".md", ".pdf", ".docx",
	".mp3", ".wav", ".m4a", ".ogg", ".flac", ".mp4",
}

// 直接按文本读取的扩展名，上传时立即写入 text_content
var plainTextExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

type DocumentService struct {
	docRepo   *repository.DocumentRepository
	ossClient *oss.Client // 为 nil 时落本地磁盘
	cfg       *config.Config
}

func NewDocumentService(docRepo *repository.DocumentRepository, ossClient *oss.Client, cfg *config.Config) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		ossClient: ossClient,
		cfg:       cfg,
	}
}

// Upload 保存上传文件并创建文档记录。纯文本文件当场提取内容，
// 其他格式留给转写/解析步骤处理。
func (s *DocumentService) Upload(userID int64, originalName, mimeType string, data []byte) (*model.Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.cfg.Upload.MaxSize > 0 && int64(len(data)) > s.cfg.Upload.MaxSize {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !s.extensionAllowed(ext) {
		return nil, ErrUnsupportedFormat
	}

	storedName := uuid.NewString() + ext

	var filePath string
	if s.ossClient != nil {
		url, err := s.ossClient.UploadDocument(userID, storedName, data, mimeType)
		if err != nil {
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
		filePath = url
	} else {
		dir := filepath.Join(s.cfg.Upload.Dir, "documents", fmt.Sprintf("%d", userID))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		filePath = filepath.Join(dir, storedName)
		if err := os.WriteFile(filePath, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
	}

	doc := &model.Document{
		UserID:       userID,
		Filename:     storedName,
		OriginalName: originalName,
		FilePath:     filePath,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
	}
	if plainTextExtensions[ext] {
		doc.TextContent = string(data)
	}

	if err := s.docRepo.Create(doc); err != nil {
		// 记录创建失败时清理已写入的文件
		s.removeStored(doc)
		return nil, err
	}
	return doc, nil
}

// Get 获取文档（校验所有权）
func (s *DocumentService) Get(id, userID int64) (*model.Document, error) {
	doc, err := s.docRepo.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List 用户的全部文档
func (s *DocumentService) List(userID int64) ([]*model.Document, error) {
	return s.docRepo.ListByUser(userID)
}

// Delete 删除文档记录并尽力清理存储文件
func (s *DocumentService) Delete(id, userID int64) error {
	doc, err := s.Get(id, userID)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(id, userID); err != nil {
		return err
	}
	s.removeStored(doc)
	return nil
}

// DownloadURL 返回文件下载地址。OSS 存储返回带签名的临时 URL，
// 本地存储返回空串，由调用方直接回传文件内容。
func (s *DocumentService) DownloadURL(doc *model.Document) (string, error) {
	if s.ossClient == nil {
		return "", nil
	}
	key := s.ossClient.ExtractObjectKey(doc.FilePath)
	return s.ossClient.GetSignedURL(key)
}

// ReadLocal 读取本地存储的文件内容
func (s *DocumentService) ReadLocal(doc *model.Document) ([]byte, error) {
	return os.ReadFile(doc.FilePath)
}

func (s *DocumentService) extensionAllowed(ext string) bool {
	allowed := s.cfg.Upload.AllowedExtensions
	if len(allowed) == 0 {
		allowed = defaultAllowedExtensions
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func (s *DocumentService) removeStored(doc *model.Document) {
	if doc.FilePath == "" {
		return
	}
	if s.ossClient != nil {
		key := s.ossClient.ExtractObjectKey(doc.FilePath)
		if err := s.ossClient.Delete(key); err != nil {
			log.Printf("Document %d: failed to delete object %s: %v", doc.ID, key, err)
		}
		return
	}
	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Document %d: failed to delete file %s: %v", doc.ID, doc.FilePath, err)
	}
}
