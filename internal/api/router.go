package api

import (
	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/config"
	"github.com/zf7c/studylab_go_server/internal/api/handler"
	"github.com/zf7c/studylab_go_server/internal/api/middleware"
)

type Router struct {
	authHandler       *handler.AuthHandler
	documentHandler   *handler.DocumentHandler
	processingHandler *handler.ProcessingHandler
	flashnoteHandler  *handler.FlashNoteHandler
	quizHandler       *handler.QuizHandler
	websocketHandler  *handler.WebSocketHandler
	cfg               *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	documentHandler *handler.DocumentHandler,
	processingHandler *handler.ProcessingHandler,
	flashnoteHandler *handler.FlashNoteHandler,
	quizHandler *handler.QuizHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:       authHandler,
		documentHandler:   documentHandler,
		processingHandler: processingHandler,
		flashnoteHandler:  flashnoteHandler,
		quizHandler:       quizHandler,
		websocketHandler:  websocketHandler,
		cfg:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/forgot-password", r.authHandler.ForgotPassword)
			auth.POST("/reset-password", r.authHandler.ResetPassword)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/auth/me", r.authHandler.Me)
			authenticated.POST("/auth/logout", r.authHandler.Logout)

			// 文档
			documents := authenticated.Group("/documents")
			{
				documents.POST("", r.documentHandler.Upload)
				documents.GET("", r.documentHandler.List)
				documents.GET("/:id", r.documentHandler.Get)
				documents.DELETE("/:id", r.documentHandler.Delete)
				documents.GET("/:id/download", r.documentHandler.Download)
			}

			// 处理作业
			proc := authenticated.Group("/processing")
			{
				proc.POST("/start", r.processingHandler.Start)
				proc.POST("/transcribe", r.processingHandler.Transcribe)
				proc.POST("/summarize", r.processingHandler.Summarize)
				proc.POST("/translate", r.processingHandler.Translate)
				proc.POST("/text/summarize", r.processingHandler.SummarizeText)
				proc.POST("/text/translate", r.processingHandler.TranslateText)
				proc.GET("/jobs", r.processingHandler.ListJobs)
				proc.GET("/jobs/:id", r.processingHandler.GetJob)
				proc.GET("/documents/:id/jobs", r.processingHandler.ListDocumentJobs)
				proc.GET("/dashboard/summary", r.processingHandler.Dashboard)
			}

			// 闪记笔记
			flashnotes := authenticated.Group("/flashnotes")
			{
				flashnotes.POST("/generate", r.flashnoteHandler.Generate)
				flashnotes.GET("", r.flashnoteHandler.List)
				flashnotes.GET("/:id", r.flashnoteHandler.Get)
				flashnotes.DELETE("/:id", r.flashnoteHandler.Delete)
			}

			// 测验
			quizzes := authenticated.Group("/quizzes")
			{
				quizzes.POST("/generate", r.quizHandler.Generate)
				quizzes.GET("", r.quizHandler.List)
				quizzes.GET("/:id", r.quizHandler.Get)
				quizzes.POST("/:id/attempts", r.quizHandler.SubmitAttempt)
				quizzes.GET("/:id/attempts", r.quizHandler.ListAttempts)
			}
		}
	}

	return engine
}
