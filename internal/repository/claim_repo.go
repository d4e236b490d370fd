// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/voucher-engine/internal/models"
)

// ClaimRepository 领券记录仓储
type ClaimRepository struct {
	db *gorm.DB
}

// NewClaimRepository 创建领券记录仓储
func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create 创建领券记录
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// GetByID 根据 ID 获取领券记录
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).First(&claim, id).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// GetByUserAndVoucher 根据用户和券获取领券记录
func (r *ClaimRepository) GetByUserAndVoucher(ctx context.Context, userID, voucherID int64) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// GetByUserAndVoucherWithVoucher 根据用户和券获取领券记录（含券详情）
func (r *ClaimRepository) GetByUserAndVoucherWithVoucher(ctx context.Context, userID, voucherID int64) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).Preload("Voucher").
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ClaimListParams 领券记录列表查询参数
type ClaimListParams struct {
	Offset    int
	Limit     int
	UserID    int64
	VoucherID int64
	Status    string
}

// List 获取领券记录列表
func (r *ClaimRepository) List(ctx context.Context, params ClaimListParams) ([]*models.Claim, int64, error) {
	var claims []*models.Claim
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Claim{})

	// 过滤条件
	if params.UserID > 0 {
		query = query.Where("user_id = ?", params.UserID)
	}
	if params.VoucherID > 0 {
		query = query.Where("voucher_id = ?", params.VoucherID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询列表
	if err := query.Preload("Voucher").Order("collected_at DESC").Offset(params.Offset).Limit(params.Limit).Find(&claims).Error; err != nil {
		return nil, 0, err
	}

	return claims, total, nil
}

// CountByUserAndVoucher 统计用户对某券的领取数量
func (r *ClaimRepository) CountByUserAndVoucher(ctx context.Context, userID, voucherID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Count(&count).Error
	return count, err
}

// RedeemOnce 核销一次
// 单条条件更新：仅对 active 且未用满的记录生效，used_count 自增的同时
// 按更新前的值推导新状态，保证与并发的过期清扫不会同时改写出矛盾状态。
// 未更新到行时返回 gorm.ErrRecordNotFound
func (r *ClaimRepository) RedeemOnce(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ? AND status = ? AND used_count < usage_limit", id, models.ClaimStatusActive).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + 1"),
			"status": gorm.Expr("CASE WHEN used_count + 1 >= usage_limit THEN ? ELSE status END",
				models.ClaimStatusUsedUp),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReleaseOnce 回退一次核销（退款恢复）
// 未更新到行时返回 gorm.ErrRecordNotFound
func (r *ClaimRepository) ReleaseOnce(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ? AND used_count > 0 AND status IN ?", id,
			[]string{models.ClaimStatusActive, models.ClaimStatusUsedUp}).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count - 1"),
			"status":     models.ClaimStatusActive,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkExpired 将单条 active 记录标记为过期
func (r *ClaimRepository) MarkExpired(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ? AND status = ?", id, models.ClaimStatusActive).
		Update("status", models.ClaimStatusExpired).Error
}

// BatchMarkExpired 批量标记过期：所属券已到期的 active 记录，返回受影响行数
// 幂等：重复执行对已标记的行无影响
func (r *ClaimRepository) BatchMarkExpired(ctx context.Context, now time.Time) (int64, error) {
	subQuery := r.db.Model(&models.Voucher{}).
		Select("id").
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", now)

	result := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("status = ?", models.ClaimStatusActive).
		Where("voucher_id IN (?)", subQuery).
		Update("status", models.ClaimStatusExpired)
	return result.RowsAffected, result.Error
}

// PurgeExpiredBefore 硬删除超过保留期的过期记录，返回删除行数
func (r *ClaimRepository) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.ClaimStatusExpired, cutoff).
		Delete(&models.Claim{})
	return result.RowsAffected, result.Error
}
