// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/voucher-engine/internal/common/config"
	"github.com/dumeirei/voucher-engine/internal/common/jwt"
	"github.com/dumeirei/voucher-engine/internal/common/metrics"
	adminHandler "github.com/dumeirei/voucher-engine/internal/handler/admin"
	voucherHandler "github.com/dumeirei/voucher-engine/internal/handler/voucher"
	"github.com/dumeirei/voucher-engine/internal/middleware"
	voucherService "github.com/dumeirei/voucher-engine/internal/service/voucher"
)

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	catalogSvc *voucherService.CatalogService,
	ledgerSvc *voucherService.LedgerService,
) {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:           cfg.JWT.Secret,
		AccessExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:           cfg.JWT.Issuer,
	})

	// 初始化处理器
	voucherH := voucherHandler.NewVoucherHandler(catalogSvc, ledgerSvc, &cfg.Voucher.Cache)
	adminH := adminHandler.NewVoucherHandler(catalogSvc, ledgerSvc)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORSFromConfig(&cfg.CORS))
	r.Use(middleware.AccessLog(logger))
	if cfg.Metrics.Enabled {
		r.Use(metrics.GetMetrics().Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口（无需认证）
		public := v1.Group("")
		if cfg.RateLimit.Enabled {
			public.Use(middleware.IPRateLimit(redisClient, cfg.RateLimit.RequestsPerSecond, time.Second))
		}
		{
			public.GET("/vouchers", voucherH.GetClaimableVouchers)
			public.GET("/vouchers/code/:code", voucherH.GetVoucherByCode)
		}

		// 用户接口（需要用户认证）
		user := v1.Group("")
		user.Use(middleware.UserAuth(jwtManager))
		if cfg.RateLimit.Enabled {
			user.Use(middleware.UserRateLimit(redisClient, cfg.RateLimit.Burst, time.Minute))
		}
		{
			user.POST("/vouchers/:id/claim", voucherH.ClaimVoucher)
			user.POST("/vouchers/:id/redeem", voucherH.RedeemVoucher)
			user.POST("/vouchers/:id/release", voucherH.ReleaseVoucher)
			user.POST("/vouchers/evaluate", voucherH.EvaluateVoucher)
			user.GET("/claims", voucherH.GetMyClaims)
		}

		// 管理接口（需要管理员认证）
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(jwtManager))
		{
			admin.POST("/vouchers", adminH.CreateVoucher)
			admin.GET("/vouchers", adminH.GetVoucherList)
			admin.GET("/vouchers/:id", adminH.GetVoucherDetail)
			admin.PUT("/vouchers/:id", adminH.UpdateVoucher)
			admin.POST("/vouchers/:id/deactivate", adminH.DeactivateVoucher)
			admin.POST("/vouchers/:id/assign", adminH.AssignVoucher)
			admin.POST("/sweeps/:task/run", adminH.RunSweep)
		}
	}
}
