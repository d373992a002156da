package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/handler"
	"inkflow-backend/internal/service"
	"inkflow-backend/internal/session"
	"inkflow-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 初始化服务
	coordinator := session.NewCoordinator(cfg.Upstream)
	writerService := service.NewWriterService(cfg, coordinator)
	recordService := service.NewRecordService(cfg)
	modelService := service.NewModelService(cfg)

	// 初始化处理器
	chatHandler := handler.NewChatHandler(cfg, coordinator, modelService)
	writerHandler := handler.NewWriterHandler(writerService)
	recordHandler := handler.NewRecordHandler(recordService)
	modelHandler := handler.NewModelHandler(modelService)

	// 创建路由
	router := setupRouter(cfg, chatHandler, writerHandler, recordHandler, modelHandler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	if err := server.Close(); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, writerHandler *handler.WriterHandler, recordHandler *handler.RecordHandler, modelHandler *handler.ModelHandler) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// API路由
	api := router.Group("/api")
	{
		ai := api.Group("/ai")
		{
			ai.POST("/stream", chatHandler.StreamChat)
			ai.POST("/polish", writerHandler.Polish)
			ai.POST("/write", writerHandler.Write)
			ai.POST("/continue", writerHandler.Continue)
			ai.POST("/merge", writerHandler.Merge)
			ai.GET("/models", modelHandler.ListModels)

			ai.POST("/session/:session_id/pause", chatHandler.PauseSession)
			ai.GET("/session/:session_id/status", chatHandler.SessionStatus)
			ai.DELETE("/session/:session_id", chatHandler.DeleteSession)
		}

		record := api.Group("/record")
		{
			record.POST("", recordHandler.CreateRecord)
			record.GET("/list", recordHandler.GetRecordList)
			record.GET("/:record_id", recordHandler.GetRecord)
			record.PUT("/:record_id", recordHandler.UpdateRecordTitle)
			record.DELETE("/:record_id", recordHandler.DeleteRecord)
			record.GET("/:record_id/messages", recordHandler.GetMessages)
			record.POST("/:record_id/messages", recordHandler.AppendMessage)

			// 渲染相关端点
			record.PUT("/:record_id/message/:message_id/render", recordHandler.UpdateMessageRender)
			record.PUT("/:record_id/render-batch", recordHandler.UpdateMessagesRender)
			record.GET("/:record_id/pending-renders", recordHandler.GetPendingRenders)
		}
	}

	return router
}
