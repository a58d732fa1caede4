package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-p2p/internal/config"
	"github.com/bitfantasy/nimo-p2p/internal/middleware"
	"github.com/bitfantasy/nimo-p2p/internal/monitor"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/entity"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/handler"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载.env（不存在则忽略）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-p2p service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化MinIO（未配置则跳过，状态导出落本地文件）
	minioClient, err := initMinIO(cfg.MinIO)
	if err != nil {
		zapLogger.Fatal("Failed to init minio", zap.Error(err))
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	materialSvc := service.NewMaterialService(repos.Material)
	p2pSvc := service.NewP2PService(db, repos)
	exportSvc := service.NewExportService(repos, minioClient, cfg.MinIO.Bucket, cfg.Server.ExportDir)
	handlers := handler.NewHandlers(materialSvc, p2pSvc, exportSvc)

	// 监控子系统
	monitorStore := monitor.NewStore(rdb, cfg.Monitor.KeyPrefix, cfg.Monitor.MaxErrorLogs, cfg.Monitor.MaxMetrics)
	collector := monitor.NewCollector(monitorStore, zapLogger, cfg.Monitor.CollectInterval)
	healthChecker := monitor.NewHealthChecker(db, rdb)
	monitorHandler := monitor.NewHandler(monitorStore, collector, healthChecker)

	collectorCtx, stopCollector := context.WithCancel(context.Background())
	go collector.Run(collectorCtx)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, monitorHandler, healthChecker, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	stopCollector()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// 自动建表
	if err := db.AutoMigrate(
		&entity.Material{},
		&entity.Requisition{},
		&entity.RequisitionItem{},
		&entity.Order{},
		&entity.OrderItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func initMinIO(cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, mh *monitor.Handler, checker *monitor.HealthChecker, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		report := checker.Check(c.Request.Context())
		status := http.StatusOK
		if report.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": report.Status})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 配置了JWT密钥则启用认证
		authorized := v1.Group("")
		if cfg.JWT.Secret != "" {
			authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		}
		{
			// 物料主数据
			materials := authorized.Group("/materials")
			{
				materials.GET("", h.Material.ListMaterials)
				materials.POST("", h.Material.CreateMaterial)
				materials.GET("/:id", h.Material.GetMaterial)
				materials.PUT("/:id", h.Material.UpdateMaterial)
				materials.DELETE("/:id", h.Material.DeleteMaterial)
				materials.POST("/:id/activate", h.Material.ActivateMaterial)
				materials.POST("/:id/deactivate", h.Material.DeactivateMaterial)
				materials.POST("/:id/deprecate", h.Material.DeprecateMaterial)
			}

			// 采购申请
			requisitions := authorized.Group("/p2p/requisitions")
			{
				requisitions.GET("", h.Requisition.ListRequisitions)
				requisitions.POST("", h.Requisition.CreateRequisition)
				requisitions.GET("/:id", h.Requisition.GetRequisition)
				requisitions.PUT("/:id", h.Requisition.UpdateRequisition)
				requisitions.DELETE("/:id", h.Requisition.DeleteRequisition)
				requisitions.POST("/:id/submit", h.Requisition.SubmitRequisition)
				requisitions.POST("/:id/approve", h.Requisition.ApproveRequisition)
				requisitions.POST("/:id/reject", h.Requisition.RejectRequisition)
				requisitions.POST("/:id/cancel", h.Requisition.CancelRequisition)
				requisitions.POST("/:id/create-order", h.Requisition.CreateOrder)
			}

			// 采购订单
			orders := authorized.Group("/p2p/orders")
			{
				orders.GET("", h.Order.ListOrders)
				orders.POST("", h.Order.CreateOrder)
				orders.GET("/:id", h.Order.GetOrder)
				orders.PUT("/:id", h.Order.UpdateOrder)
				orders.DELETE("/:id", h.Order.DeleteOrder)
				orders.POST("/:id/submit", h.Order.SubmitOrder)
				orders.POST("/:id/approve", h.Order.ApproveOrder)
				orders.POST("/:id/receive", h.Order.ReceiveOrder)
				orders.POST("/:id/complete", h.Order.CompleteOrder)
				orders.POST("/:id/cancel", h.Order.CancelOrder)
				orders.GET("/:id/export", h.Order.ExportOrder)
			}

			// 监控
			mon := authorized.Group("/monitor")
			{
				mon.GET("/health", mh.Health)
				mon.GET("/metrics", mh.Metrics)
				mon.GET("/errors", mh.ListErrors)
				mon.POST("/errors", mh.RecordError)
				mon.DELETE("/errors", mh.ClearErrors)
			}

			// 管理接口
			admin := authorized.Group("/admin")
			{
				admin.POST("/state-export", h.Order.ExportState)
			}
		}
	}
}
