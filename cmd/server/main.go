package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dochub-go/internal/config"
	"dochub-go/internal/gateway"
	"dochub-go/internal/handler"
	"dochub-go/internal/middleware"
	"dochub-go/internal/model"
	"dochub-go/internal/pipeline"
	"dochub-go/internal/repository"
	"dochub-go/internal/service"
	"dochub-go/pkg/database"
	"dochub-go/pkg/embedding"
	"dochub-go/pkg/es"
	"dochub-go/pkg/extract"
	"dochub-go/pkg/kafka"
	"dochub-go/pkg/llm"
	"dochub-go/pkg/log"
	"dochub-go/pkg/storage"
	"dochub-go/pkg/tika"
	"dochub-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 加载配置并初始化日志
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	// 2. 初始化基础设施连接
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("MySQL 连接失败", err)
	}
	defer func() {
		if err := database.CloseMySQL(db); err != nil {
			log.Errorf("关闭 MySQL 连接失败: %v", err)
		}
	}()

	if err := db.AutoMigrate(&model.Document{}, &model.User{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 连接失败", err)
	}

	index, err := es.NewIndex(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("Elasticsearch 初始化失败", err)
	}

	objectStore, err := storage.NewObjectStore(cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}

	producer := kafka.NewProducer(cfg.Kafka)
	defer func() {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}()

	// 3. 初始化外部服务客户端与网关
	tikaClient := tika.NewClient(cfg.Tika)
	extractor := extract.NewExtractor(tikaClient)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	embeddingGateway := gateway.NewEmbeddingGateway(embeddingClient)
	categorizationGateway := gateway.NewCategorizationGateway(llmClient)

	// 4. 组装仓储、摄取管道与业务服务
	docRepo := repository.NewDocumentRepository(db, rdb, index)
	userRepo := repository.NewUserRepository(db)

	ingestor := pipeline.NewIngestor(extractor, categorizationGateway, embeddingGateway, docRepo, objectStore, index, producer)
	backfillProcessor := pipeline.NewBackfillProcessor(docRepo, embeddingGateway, index)

	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)

	uploadService := service.NewUploadService(ingestor, cfg.Upload)
	searchService := service.NewSearchService(docRepo, embeddingGateway)
	documentService := service.NewDocumentService(docRepo, objectStore, objectStore)
	userService := service.NewUserService(userRepo, jwtManager)

	// 5. 启动 Kafka 回填消费者
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	go kafka.StartConsumer(consumerCtx, cfg.Kafka, rdb, backfillProcessor)

	// 6. 注册路由
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	uploadHandler := handler.NewUploadHandler(uploadService)
	searchHandler := handler.NewSearchHandler(searchService)
	documentHandler := handler.NewDocumentHandler(documentService)
	userHandler := handler.NewUserHandler(userService)
	authHandler := handler.NewAuthHandler(userService)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
			auth.POST("/refreshToken", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthMiddleware(jwtManager), userHandler.GetProfile)
		}

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			authed.POST("/upload", uploadHandler.Upload)
			authed.GET("/upload/documents", documentHandler.ListDocuments)
			authed.GET("/upload/documents/:id", documentHandler.GetDocument)
			authed.DELETE("/upload/documents/:id", documentHandler.DeleteDocument)
			authed.GET("/upload/documents/:id/download", documentHandler.Download)

			authed.GET("/search", searchHandler.Search)
			authed.GET("/search/filters", searchHandler.FilterOptions)
			authed.GET("/search/stats", searchHandler.Stats)
		}
	}

	// 7. 启动 HTTP 服务并支持优雅停机
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Infof("服务器启动，监听端口 %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("服务器启动失败", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到退出信号，开始优雅停机...")

	cancelConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("服务器停机异常: %v", err)
	}
	log.Info("服务器已退出")
}
