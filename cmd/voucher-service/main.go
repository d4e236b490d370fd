// Package main 是应用程序入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/voucher-engine/internal/common/cache"
	"github.com/dumeirei/voucher-engine/internal/common/config"
	"github.com/dumeirei/voucher-engine/internal/common/database"
	"github.com/dumeirei/voucher-engine/internal/common/logger"
	"github.com/dumeirei/voucher-engine/internal/models"
	"github.com/dumeirei/voucher-engine/internal/repository"
	"github.com/dumeirei/voucher-engine/internal/scheduler"
	voucherService "github.com/dumeirei/voucher-engine/internal/service/voucher"
)

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()

	log.Info("Starting Voucher Engine",
		zap.String("version", "1.0.0"),
		zap.String("env", cfg.Server.Mode),
	)

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// 迁移表结构
	if err := db.AutoMigrate(&models.Voucher{}, &models.Claim{}); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化 Redis 连接
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Redis connected successfully")

	// 设置 Gin 模式
	if cfg.Server.Mode == "production" || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Mode == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 组装服务
	voucherRepo := repository.NewVoucherRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	catalogSvc := voucherService.NewCatalogService(voucherRepo)
	ledgerSvc := voucherService.NewLedgerService(db, voucherRepo, claimRepo, cfg.Voucher.DefaultClaimUsageLimit)

	// 设置路由
	setupRouter(engine, cfg, log, db, redisClient, catalogSvc, ledgerSvc)

	// 启动后台清理任务
	sched := scheduler.NewScheduler()
	sweeps := scheduler.NewSweepTasks(catalogSvc, ledgerSvc, cfg.Voucher.ClaimRetentionDays)
	sweeps.Register(sched, &cfg.Voucher.Sweep)
	sched.Start()

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// 先停调度器，避免清理任务跑在关闭中的连接上
	sched.Stop()

	// 创建超时上下文用于优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}

	log.Info("Server exited")
}
