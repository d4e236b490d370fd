// Package voucher 提供代金券生命周期服务
package voucher

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/voucher-engine/internal/models"
	"github.com/dumeirei/voucher-engine/internal/repository"
)

// LedgerService 领券台账服务，独立于全局名额跟踪单用户的领取与核销
type LedgerService struct {
	db                  *gorm.DB
	voucherRepo         *repository.VoucherRepository
	claimRepo           *repository.ClaimRepository
	evaluator           *Evaluator
	defaultPerUserLimit int
}

// NewLedgerService 创建领券台账服务
// defaultPerUserLimit 是单用户默认核销次数，券定义可通过 condition_value.per_user_limit 覆盖
func NewLedgerService(db *gorm.DB, voucherRepo *repository.VoucherRepository, claimRepo *repository.ClaimRepository, defaultPerUserLimit int) *LedgerService {
	if defaultPerUserLimit < 1 {
		defaultPerUserLimit = 1
	}
	return &LedgerService{
		db:                  db,
		voucherRepo:         voucherRepo,
		claimRepo:           claimRepo,
		evaluator:           NewEvaluator(),
		defaultPerUserLimit: defaultPerUserLimit,
	}
}

// Claim 自助领取公开代金券
func (s *LedgerService) Claim(ctx context.Context, userID, voucherID int64, now time.Time) (*models.Claim, error) {
	return s.claimInternal(ctx, userID, voucherID, now, true)
}

// Assign 系统定向发放（生日券等），跳过公开性检查，其余规则与自助领取一致
func (s *LedgerService) Assign(ctx context.Context, userID, voucherID int64, now time.Time) (*models.Claim, error) {
	return s.claimInternal(ctx, userID, voucherID, now, false)
}

// claimInternal 领取实现
// 领券记录插入与全局名额占用在同一事务内，任一失败整体回滚
func (s *LedgerService) claimInternal(ctx context.Context, userID, voucherID int64, now time.Time, selfService bool) (*models.Claim, error) {
	var claim *models.Claim

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 获取代金券
		var voucher models.Voucher
		if err := tx.First(&voucher, voucherID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVoucherNotFound
			}
			return err
		}

		// 每用户至多一条领券记录；重复领取优先于可领取性报告，
		// 券过期或名额用尽后重复领取仍返回已领取
		var existing int64
		if err := tx.Model(&models.Claim{}).
			Where("user_id = ? AND voucher_id = ?", userID, voucherID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyClaimed
		}

		// 检查可领取性
		if !voucher.IsClaimable(now) {
			return ErrVoucherNotClaimable
		}
		if selfService && !voucher.IsPublic {
			return ErrVoucherNotPublic
		}

		// 创建领券记录；(user_id, voucher_id) 唯一索引兜底并发重复领取
		claim = &models.Claim{
			UserID:      userID,
			VoucherID:   voucherID,
			UsageLimit:  PerUserLimit(voucher.ConditionValue, s.defaultPerUserLimit),
			UsedCount:   0,
			Status:      models.ClaimStatusActive,
			CollectedAt: now,
		}
		if err := tx.Create(claim).Error; err != nil {
			return err
		}

		// 占用全局名额，原子条件自增，失败则整体回滚
		result := tx.Model(&models.Voucher{}).
			Where("id = ? AND used_count < usage_limit", voucherID).
			UpdateColumn("used_count", gorm.Expr("used_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUsageLimitExceeded
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return claim, nil
}

// Redeem 核销一次
// 核销前按当前时间和券状态重新推导领券记录状态（惰性过期），
// 实际扣减使用单条条件更新，与并发核销及清扫任务互不冲突
func (s *LedgerService) Redeem(ctx context.Context, userID, voucherID int64, now time.Time) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByUserAndVoucherWithVoucher(ctx, userID, voucherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	// 惰性过期：券已到期的 active 记录立即落盘为过期
	if EffectiveClaimStatus(claim, claim.Voucher, now) == models.ClaimStatusExpired &&
		claim.Status == models.ClaimStatusActive {
		if err := s.claimRepo.MarkExpired(ctx, claim.ID); err != nil {
			return nil, err
		}
		return nil, ErrClaimNotActive
	}
	if claim.Status != models.ClaimStatusActive {
		return nil, ErrClaimNotActive
	}

	// 条件更新失败说明并发下已用尽或已被清扫
	if err := s.claimRepo.RedeemOnce(ctx, claim.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotActive
		}
		return nil, err
	}

	return s.claimRepo.GetByID(ctx, claim.ID)
}

// Release 回退一次核销（订单退款时恢复）
func (s *LedgerService) Release(ctx context.Context, userID, voucherID int64) error {
	claim, err := s.claimRepo.GetByUserAndVoucher(ctx, userID, voucherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClaimNotFound
		}
		return err
	}

	if err := s.claimRepo.ReleaseOnce(ctx, claim.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClaimNotActive
		}
		return err
	}
	return nil
}

// PreviewDiscount 预估券对订单的优惠金额
// 只读评估，不消耗核销次数；业务规则拒绝在结果值中返回
func (s *LedgerService) PreviewDiscount(ctx context.Context, userID int64, code string, octx *OrderContext, now time.Time) (*EvaluationResult, error) {
	voucher, err := s.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}

	claim, err := s.claimRepo.GetByUserAndVoucher(ctx, userID, voucher.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	return s.evaluator.Evaluate(voucher, claim, octx, now), nil
}

// ClaimListRequest 领券记录列表请求
type ClaimListRequest struct {
	Page     int
	PageSize int
	Status   string // 空: 全部
}

// ClaimItem 领券记录展示项
type ClaimItem struct {
	ID            int64      `json:"id"`
	VoucherID     int64      `json:"voucher_id"`
	VoucherCode   string     `json:"voucher_code"`
	VoucherName   string     `json:"voucher_name"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	MinOrderValue float64    `json:"min_order_value"`
	UsageLimit    int        `json:"usage_limit"`
	UsedCount     int        `json:"used_count"`
	Status        string     `json:"status"`
	StatusText    string     `json:"status_text"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	CollectedAt   time.Time  `json:"collected_at"`
	IsUsable      bool       `json:"is_usable"`
}

// ClaimListResponse 领券记录列表响应
type ClaimListResponse struct {
	List  []*ClaimItem `json:"list"`
	Total int64        `json:"total"`
}

// GetUserClaims 获取用户的领券记录列表
func (s *LedgerService) GetUserClaims(ctx context.Context, userID int64, req *ClaimListRequest) (*ClaimListResponse, error) {
	offset := (req.Page - 1) * req.PageSize

	claims, total, err := s.claimRepo.List(ctx, repository.ClaimListParams{
		UserID: userID,
		Status: req.Status,
		Offset: offset,
		Limit:  req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	list := make([]*ClaimItem, 0, len(claims))
	for _, c := range claims {
		list = append(list, buildClaimItem(c, now))
	}

	return &ClaimListResponse{
		List:  list,
		Total: total,
	}, nil
}

// ExpireStaleClaims 过期清扫：所属券已到期的 active 记录批量转为过期
func (s *LedgerService) ExpireStaleClaims(ctx context.Context, now time.Time) (int64, error) {
	return s.claimRepo.BatchMarkExpired(ctx, now)
}

// PurgeOldExpired 清理清扫：硬删除超过保留期的过期记录
func (s *LedgerService) PurgeOldExpired(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	return s.claimRepo.PurgeExpiredBefore(ctx, cutoff)
}

// buildClaimItem 构建领券记录展示项
func buildClaimItem(c *models.Claim, now time.Time) *ClaimItem {
	item := &ClaimItem{
		ID:          c.ID,
		VoucherID:   c.VoucherID,
		UsageLimit:  c.UsageLimit,
		UsedCount:   c.UsedCount,
		Status:      c.Status,
		CollectedAt: c.CollectedAt,
	}

	if c.Voucher != nil {
		item.VoucherCode = c.Voucher.Code
		item.VoucherName = c.Voucher.Name
		item.DiscountType = c.Voucher.DiscountType
		item.DiscountValue = c.Voucher.DiscountValue
		item.MinOrderValue = c.Voucher.MinOrderValue
		item.ExpiryDate = c.Voucher.ExpiryDate
		item.Status = EffectiveClaimStatus(c, c.Voucher, now)
	}

	switch item.Status {
	case models.ClaimStatusActive:
		item.StatusText = "可用"
		item.IsUsable = true
	case models.ClaimStatusUsedUp:
		item.StatusText = "已用完"
	case models.ClaimStatusExpired:
		item.StatusText = "已过期"
	}

	return item
}
