package cron

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zf7c/studylab_go_server/internal/repository"
)

type Service struct {
	userRepo    *repository.UserRepository
	uploadDir   string
	expireHours int
	stopChan    chan struct{}
}

func NewService(userRepo *repository.UserRepository, uploadDir string, expireHours int) *Service {
	return &Service{
		userRepo:    userRepo,
		uploadDir:   uploadDir,
		expireHours: expireHours,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runTokenPurge()
	go s.runCleanup()
	log.Println("Cron service started (token purge + temp cleanup)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runTokenPurge 每小时清理过期的密码重置 token
func (s *Service) runTokenPurge() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.purgeResetTokens()
		}
	}
}

func (s *Service) purgeResetTokens() {
	if s.userRepo == nil {
		return
	}
	n, err := s.userRepo.PurgeResetTokens(time.Now().UTC())
	if err != nil {
		log.Printf("Token purge failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Token purge: removed %d expired reset tokens", n)
	}
}

// runCleanup 每小时执行一次临时文件清理
func (s *Service) runCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupTempFiles()
		}
	}
}

// cleanupTempFiles 清理过期的上传临时文件（<uploadDir>/tmp/）
func (s *Service) cleanupTempFiles() {
	if s.uploadDir == "" {
		return
	}

	expireHours := s.expireHours
	if expireHours <= 0 {
		expireHours = 1
	}
	expireDuration := time.Duration(expireHours) * time.Hour

	tmpDir := filepath.Join(s.uploadDir, "tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Cleanup: failed to read dir %s: %v", tmpDir, err)
		}
		return
	}

	cleaned := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > expireDuration {
			path := filepath.Join(tmpDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				log.Printf("Cleanup: failed to remove %s: %v", path, err)
			} else {
				cleaned++
			}
		}
	}

	if cleaned > 0 {
		log.Printf("Cleanup summary: removed %d stale temp entries", cleaned)
	}
}

// RunNow 立即执行一次清理（用于手动触发）
func (s *Service) RunNow() {
	s.purgeResetTokens()
	s.cleanupTempFiles()
}
