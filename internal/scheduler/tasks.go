package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/voucher-engine/internal/common/config"
	"github.com/dumeirei/voucher-engine/internal/common/logger"
	"github.com/dumeirei/voucher-engine/internal/common/metrics"
	"github.com/dumeirei/voucher-engine/internal/service/voucher"
)

// 清理任务名称
const (
	TaskDeactivateExpiredVouchers = "deactivate_expired_vouchers"
	TaskExpireStaleClaims         = "expire_stale_claims"
	TaskPurgeExpiredClaims        = "purge_expired_claims"
)

// SweepTasks 优惠券后台清理任务集
type SweepTasks struct {
	catalog       *voucher.CatalogService
	ledger        *voucher.LedgerService
	retentionDays int
	log           *zap.Logger
}

// NewSweepTasks 创建清理任务集
func NewSweepTasks(catalog *voucher.CatalogService, ledger *voucher.LedgerService, retentionDays int) *SweepTasks {
	return &SweepTasks{
		catalog:       catalog,
		ledger:        ledger,
		retentionDays: retentionDays,
		log:           logger.Named("sweep"),
	}
}

// Register 按配置间隔注册所有清理任务
func (t *SweepTasks) Register(s *Scheduler, cfg *config.SweepConfig) {
	s.AddTask(TaskDeactivateExpiredVouchers,
		time.Duration(cfg.DeactivateInterval)*time.Minute, t.DeactivateExpiredVouchers)
	s.AddTask(TaskExpireStaleClaims,
		time.Duration(cfg.ExpireInterval)*time.Minute, t.ExpireStaleClaims)
	s.AddTask(TaskPurgeExpiredClaims,
		time.Duration(cfg.PurgeInterval)*time.Minute, t.PurgeExpiredClaims)
}

// DeactivateExpiredVouchers 停用已过期的优惠券
func (t *SweepTasks) DeactivateExpiredVouchers(ctx context.Context) error {
	start := time.Now()
	rows, err := t.catalog.DeactivateExpired(ctx, start)
	if err != nil {
		return err
	}
	metrics.RecordSweepGlobal(TaskDeactivateExpiredVouchers, rows, time.Since(start))
	if rows > 0 {
		t.log.Info("过期优惠券已停用", zap.Int64("rows", rows))
	}
	return nil
}

// ExpireStaleClaims 将过期优惠券的领取记录标记为已过期
func (t *SweepTasks) ExpireStaleClaims(ctx context.Context) error {
	start := time.Now()
	rows, err := t.ledger.ExpireStaleClaims(ctx, start)
	if err != nil {
		return err
	}
	metrics.RecordSweepGlobal(TaskExpireStaleClaims, rows, time.Since(start))
	if rows > 0 {
		t.log.Info("过期领取记录已标记", zap.Int64("rows", rows))
	}
	return nil
}

// PurgeExpiredClaims 清除超过保留期的过期领取记录
func (t *SweepTasks) PurgeExpiredClaims(ctx context.Context) error {
	start := time.Now()
	rows, err := t.ledger.PurgeOldExpired(ctx, start, t.retentionDays)
	if err != nil {
		return err
	}
	metrics.RecordSweepGlobal(TaskPurgeExpiredClaims, rows, time.Since(start))
	if rows > 0 {
		t.log.Info("历史过期记录已清除", zap.Int64("rows", rows))
	}
	return nil
}
