package main

import (
	"context"
	"fmt"
	"log"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/api"
	"github.com/zf7c/studylab_go_server/internal/api/handler"
	"github.com/zf7c/studylab_go_server/internal/capability"
	"github.com/zf7c/studylab_go_server/internal/database"
	"github.com/zf7c/studylab_go_server/internal/pkg/cron"
	"github.com/zf7c/studylab_go_server/internal/pkg/oauth"
	"github.com/zf7c/studylab_go_server/internal/pkg/oss"
	"github.com/zf7c/studylab_go_server/internal/pkg/pubsub"
	"github.com/zf7c/studylab_go_server/internal/pkg/ws"
	"github.com/zf7c/studylab_go_server/internal/processing"
	"github.com/zf7c/studylab_go_server/internal/repository"
	"github.com/zf7c/studylab_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// OSS 未配置时文件落本地磁盘
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Fatalf("Failed to init OSS client: %v", err)
		}
		log.Println("OSS client ready")
	} else {
		log.Println("OSS not configured, using local storage")
	}

	// WebSocket Hub + 进度消息转发
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			if err := wsHub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
				log.Printf("Failed to forward progress to user %d: %v", msg.UserID, err)
			}
		})
		if err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	publisher := pubsub.NewPublisher(rdb)
	stateStore := oauth.NewStateStore(rdb)

	// 推理能力客户端，实现全部步骤接口
	inference := capability.NewClient(&cfg.Inference)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewJobRepository(db)
	noteRepo := repository.NewFlashNoteRepository(db)
	quizRepo := repository.NewQuizRepository(db)

	// 编排器与 Service
	orchestrator := processing.NewOrchestrator(jobRepo, docRepo, inference, inference, inference, publisher)

	authService := service.NewAuthService(userRepo, cfg)
	docService := service.NewDocumentService(docRepo, ossClient, cfg)
	procService := service.NewProcessingService(jobRepo, docRepo, orchestrator, cfg)
	noteService := service.NewFlashNoteService(noteRepo, docRepo, jobRepo, inference, publisher, cfg)
	quizService := service.NewQuizService(quizRepo, docRepo, jobRepo, inference, publisher, cfg)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService, stateStore, cfg.Server.FrontendURL)
	documentHandler := handler.NewDocumentHandler(docService)
	processingHandler := handler.NewProcessingHandler(procService)
	flashnoteHandler := handler.NewFlashNoteHandler(noteService)
	quizHandler := handler.NewQuizHandler(quizService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 定时清理
	cronService := cron.NewService(userRepo, cfg.Upload.Dir, cfg.Upload.ExpireHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		documentHandler,
		processingHandler,
		flashnoteHandler,
		quizHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
