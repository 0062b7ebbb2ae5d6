package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/database"
	"github.com/zf7c/studylab_go_server/internal/model"
	"github.com/zf7c/studylab_go_server/internal/repository"

	"gorm.io/gorm"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Dry run mode, don't actually delete files")
	tmpExpire    = flag.Int("tmp-expire", 24, "Hours to keep temp upload files")
	cleanTmp     = flag.Bool("clean-tmp", true, "Clean expired temp files")
	cleanOrphans = flag.Bool("clean-orphans", true, "Clean document files without a database record")
	purgeTokens  = flag.Bool("purge-tokens", true, "Purge used/expired password reset tokens")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	uploadDir := cfg.Upload.Dir
	deletedSize := int64(0)
	deletedFiles := 0
	purgedTokens := int64(0)

	// 1. 清理过期的临时文件
	if *cleanTmp {
		log.Printf("\n📦 Cleaning expired temp files (older than %d hours)...", *tmpExpire)
		size, count := cleanExpiredTmp(filepath.Join(uploadDir, "tmp"), *tmpExpire, *dryRun)
		deletedSize += size
		deletedFiles += count
	}

	// 2. 清理没有数据库记录的孤儿文档文件
	if *cleanOrphans {
		log.Println("\n📄 Cleaning orphaned document files...")
		size, count := cleanOrphanDocuments(db, filepath.Join(uploadDir, "documents"), *dryRun)
		deletedSize += size
		deletedFiles += count
	}

	// 3. 清理密码重置 token
	if *purgeTokens {
		log.Println("\n🔑 Purging expired password reset tokens...")
		if *dryRun {
			var n int64
			db.Model(&model.PasswordResetToken{}).
				Where("used_at IS NOT NULL OR expires_at < ?", time.Now().UTC()).
				Count(&n)
			purgedTokens = n
		} else {
			userRepo := repository.NewUserRepository(db)
			n, err := userRepo.PurgeResetTokens(time.Now().UTC())
			if err != nil {
				log.Printf("  ❌ Failed to purge tokens: %v", err)
			}
			purgedTokens = n
		}
		log.Printf("Found %d tokens to purge", purgedTokens)
	}

	// 输出统计
	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("📊 Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Deleted files: %d", deletedFiles)
	log.Printf("Freed space: %s", formatSize(deletedSize))
	log.Printf("Purged tokens: %d", purgedTokens)
	if *dryRun {
		log.Println("\n⚠️  DRY RUN MODE - Nothing was actually deleted")
		log.Println("   Run with -dry-run=false to actually delete")
	} else {
		log.Println("\n✅ Cleanup completed!")
	}
	log.Println(strings.Repeat("=", 60))
}

// cleanExpiredTmp 清理过期的临时文件
func cleanExpiredTmp(tmpDir string, expireHours int, dryRun bool) (int64, int) {
	expireTime := time.Now().Add(-time.Duration(expireHours) * time.Hour)
	var totalSize int64
	var count int

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to read tmp dir: %v", err)
		}
		return 0, 0
	}

	for _, entry := range entries {
		path := filepath.Join(tmpDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(expireTime) {
			size := info.Size()
			if entry.IsDir() {
				size = getDirSize(path)
			}
			totalSize += size

			log.Printf("  - %s (%s, %s old)",
				entry.Name(), formatSize(size),
				time.Since(info.ModTime()).Round(time.Hour))

			if !dryRun {
				if err := os.RemoveAll(path); err != nil {
					log.Printf("    ❌ Failed to delete: %v", err)
					continue
				}
			}
			count++
		}
	}

	log.Printf("Found %d expired temp entries (total: %s)", count, formatSize(totalSize))
	return totalSize, count
}

// cleanOrphanDocuments 清理数据库中已无记录的本地文档文件。
// 目录结构为 documents/<userID>/<storedName>。
func cleanOrphanDocuments(db *gorm.DB, docDir string, dryRun bool) (int64, int) {
	userDirs, err := os.ReadDir(docDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to read documents dir: %v", err)
		}
		return 0, 0
	}

	var totalSize int64
	var count int

	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		userID, err := strconv.ParseInt(userDir.Name(), 10, 64)
		if err != nil {
			continue
		}

		// 该用户在库里的全部存储文件名
		var known []string
		if err := db.Model(&model.Document{}).
			Where("user_id = ?", userID).
			Pluck("filename", &known).Error; err != nil {
			log.Printf("  ⚠️  Failed to query documents for user %d: %v", userID, err)
			continue
		}
		knownSet := make(map[string]bool, len(known))
		for _, name := range known {
			knownSet[name] = true
		}

		files, err := os.ReadDir(filepath.Join(docDir, userDir.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || knownSet[f.Name()] {
				continue
			}

			path := filepath.Join(docDir, userDir.Name(), f.Name())
			info, err := f.Info()
			if err != nil {
				continue
			}
			totalSize += info.Size()

			log.Printf("  - user %d: %s (%s, no DB record)",
				userID, f.Name(), formatSize(info.Size()))

			if !dryRun {
				if err := os.Remove(path); err != nil {
					log.Printf("    ❌ Failed to delete: %v", err)
					continue
				}
			}
			count++
		}
	}

	log.Printf("Found %d orphaned document files (total: %s)", count, formatSize(totalSize))
	return totalSize, count
}

// getDirSize 计算目录大小
func getDirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// formatSize 格式化文件大小
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
