// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/voucher-engine/internal/models"
)

// VoucherRepository 代金券仓储
type VoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository 创建代金券仓储
func NewVoucherRepository(db *gorm.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// Create 创建代金券
func (r *VoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

// GetByID 根据 ID 获取代金券
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).First(&voucher, id).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// GetByCode 根据券码获取代金券（精确匹配，区分大小写）
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// Update 更新代金券
func (r *VoucherRepository) Update(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Save(voucher).Error
}

// UpdateFields 更新指定字段
func (r *VoucherRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Voucher{}).Where("id = ?", id).Updates(fields).Error
}

// VoucherListParams 代金券列表查询参数
type VoucherListParams struct {
	Offset          int
	Limit           int
	IsActive        *bool
	IsPublic        *bool
	DiscountType    string
	ApplicationType string
	Keyword         string
	ExpiryFrom      *time.Time
	ExpiryTo        *time.Time
}

// List 获取代金券列表
func (r *VoucherRepository) List(ctx context.Context, params VoucherListParams) ([]*models.Voucher, int64, error) {
	var vouchers []*models.Voucher
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Voucher{})

	// 过滤条件
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	if params.IsPublic != nil {
		query = query.Where("is_public = ?", *params.IsPublic)
	}
	if params.DiscountType != "" {
		query = query.Where("discount_type = ?", params.DiscountType)
	}
	if params.ApplicationType != "" {
		query = query.Where("application_type = ?", params.ApplicationType)
	}
	if params.Keyword != "" {
		query = query.Where("code LIKE ? OR name LIKE ?", "%"+params.Keyword+"%", "%"+params.Keyword+"%")
	}
	if params.ExpiryFrom != nil {
		query = query.Where("expiry_date >= ?", *params.ExpiryFrom)
	}
	if params.ExpiryTo != nil {
		query = query.Where("expiry_date <= ?", *params.ExpiryTo)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询列表
	if err := query.Order("created_at DESC").Offset(params.Offset).Limit(params.Limit).Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}

	return vouchers, total, nil
}

// ListClaimable 获取可领取的公开代金券列表（用户端）
func (r *VoucherRepository) ListClaimable(ctx context.Context, now time.Time, offset, limit int) ([]*models.Voucher, int64, error) {
	var vouchers []*models.Voucher
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("is_active = ?", true).
		Where("is_public = ?", true).
		Where("used_count < usage_limit").
		Where("expiry_date IS NULL OR expiry_date > ?", now)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}

	return vouchers, total, nil
}

// IncrementUsedCount 增加全局使用计数
// 条件更新保证并发下不会超过 usage_limit：未更新到行时返回 gorm.ErrRecordNotFound
func (r *VoucherRepository) IncrementUsedCount(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND used_count < usage_limit", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementUsedCount 减少全局使用计数（退券恢复名额）
func (r *VoucherRepository) DecrementUsedCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND used_count > 0", id).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}

// DeactivateExpired 批量停用已过期的券，返回受影响行数
// 幂等：重复执行对已停用的行无影响
func (r *VoucherRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("is_active = ?", true).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// CountByCode 统计券码数量（用于创建时唯一性校验）
func (r *VoucherRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("code = ?", code).
		Count(&count).Error
	return count, err
}
