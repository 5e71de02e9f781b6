package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursehub/config"
	"coursehub/internal/api/handler"
	"coursehub/internal/api/router"
	"coursehub/internal/job"
	"coursehub/internal/repository"
	"coursehub/internal/repository/memory"
	"coursehub/internal/service"
	"coursehub/pkg/database"
	"coursehub/pkg/jwt"
	applogger "coursehub/pkg/logger"
	"coursehub/pkg/redis"
	"coursehub/pkg/storage"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("COURSEHUB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 存储后端
	repo, db := openStore(cfg, logger)

	// 4. 连接 Redis（可选：未配置或连接失败时登录限流降级放行）
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，登录限流将不可用", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 对象存储
	blobs := openBlobStore(cfg, logger)

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := service.NewService(cfg, repo, jwtMgr, blobs, logger)
	h := handler.NewHandler(cfg, svc, blobs)

	if err := svc.Identity.EnsureAdmin(context.Background(), cfg.Auth.SeedAdmin); err != nil {
		logger.Fatal("初始化管理员账号失败", zap.Error(err))
	}

	// 7. 定时任务
	scheduler, err := job.NewScheduler(cfg.Jobs.SessionSweepSpec, svc.Identity, logger)
	if err != nil {
		logger.Fatal("初始化定时任务失败", zap.Error(err))
	}
	scheduler.Start()

	// 8. 初始化路由
	engine := router.Setup(cfg, h, svc.Identity, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	scheduler.Stop(ctx)

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// openStore 按 store.driver 选择存储；postgres 时连接数据库并执行迁移
func openStore(cfg *config.Config, logger *zap.Logger) (*repository.Repository, *gorm.DB) {
	if cfg.Store.Driver != "postgres" {
		logger.Info("使用进程内存储")
		return memory.NewRepository(), nil
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	return repository.NewRepository(db), db
}

// openBlobStore 按 storage.driver 选择对象存储
func openBlobStore(cfg *config.Config, logger *zap.Logger) storage.BlobStore {
	if cfg.Storage.Driver != "b2" {
		return storage.NewMemoryStore(cfg.Storage.PublicURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	store, err := storage.NewB2Store(ctx, cfg.Storage.B2Account, cfg.Storage.B2Key, cfg.Storage.B2Bucket)
	if err != nil {
		logger.Fatal("连接 B2 失败", zap.Error(err))
	}
	return store
}
