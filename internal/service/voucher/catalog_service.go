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

// CatalogService 券目录服务，券定义与全局名额的唯一权威来源
type CatalogService struct {
	voucherRepo *repository.VoucherRepository
}

// NewCatalogService 创建券目录服务
func NewCatalogService(voucherRepo *repository.VoucherRepository) *CatalogService {
	return &CatalogService{
		voucherRepo: voucherRepo,
	}
}

// CreateVoucherRequest 创建代金券请求
type CreateVoucherRequest struct {
	Code              string      `json:"code" binding:"required"`
	Name              string      `json:"name" binding:"required"`
	DiscountType      string      `json:"discount_type" binding:"required"`
	DiscountValue     float64     `json:"discount_value"`
	MaxDiscountAmount *float64    `json:"max_discount_amount,omitempty"`
	ApplicationType   string      `json:"application_type"`
	ConditionType     string      `json:"condition_type"`
	ConditionValue    models.JSON `json:"condition_value,omitempty"`
	MinOrderValue     float64     `json:"min_order_value"`
	ExpiryDate        *time.Time  `json:"expiry_date,omitempty"`
	IsPublic          *bool       `json:"is_public,omitempty"`
	UsageLimit        int         `json:"usage_limit"`
	Description       *string     `json:"description,omitempty"`
}

// CreateVoucher 创建代金券
// 默认值：application_type=order, condition_type=none, is_public=true, is_active=true
func (s *CatalogService) CreateVoucher(ctx context.Context, req *CreateVoucherRequest) (*models.Voucher, error) {
	if err := s.validateDefinition(req); err != nil {
		return nil, err
	}

	// 券码唯一性（区分大小写的精确匹配）
	count, err := s.voucherRepo.CountByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCodeExists
	}

	voucher := &models.Voucher{
		Code:              req.Code,
		Name:              req.Name,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		ApplicationType:   req.ApplicationType,
		ConditionType:     req.ConditionType,
		ConditionValue:    req.ConditionValue,
		MinOrderValue:     req.MinOrderValue,
		ExpiryDate:        req.ExpiryDate,
		IsPublic:          true,
		UsageLimit:        req.UsageLimit,
		UsedCount:         0,
		IsActive:          true,
		Description:       req.Description,
	}
	if voucher.ApplicationType == "" {
		voucher.ApplicationType = models.ApplicationTypeOrder
	}
	if voucher.ConditionType == "" {
		voucher.ConditionType = models.ConditionTypeNone
	}
	if req.IsPublic != nil {
		voucher.IsPublic = *req.IsPublic
	}

	if err := s.voucherRepo.Create(ctx, voucher); err != nil {
		return nil, err
	}

	return voucher, nil
}

// UpdateVoucherRequest 更新代金券请求
type UpdateVoucherRequest struct {
	Name              *string     `json:"name,omitempty"`
	DiscountType      *string     `json:"discount_type,omitempty"`
	DiscountValue     *float64    `json:"discount_value,omitempty"`
	MaxDiscountAmount *float64    `json:"max_discount_amount,omitempty"`
	ApplicationType   *string     `json:"application_type,omitempty"`
	ConditionType     *string     `json:"condition_type,omitempty"`
	ConditionValue    models.JSON `json:"condition_value,omitempty"`
	MinOrderValue     *float64    `json:"min_order_value,omitempty"`
	ExpiryDate        *time.Time  `json:"expiry_date,omitempty"`
	IsPublic          *bool       `json:"is_public,omitempty"`
	UsageLimit        *int        `json:"usage_limit,omitempty"`
	IsActive          *bool       `json:"is_active,omitempty"`
	Description       *string     `json:"description,omitempty"`
}

// UpdateVoucher 更新代金券，字段级更新，校验规则与创建一致
func (s *CatalogService) UpdateVoucher(ctx context.Context, id int64, req *UpdateVoucherRequest) (*models.Voucher, error) {
	voucher, err := s.voucherRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		voucher.Name = *req.Name
	}
	if req.DiscountType != nil {
		voucher.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		voucher.DiscountValue = *req.DiscountValue
	}
	if req.MaxDiscountAmount != nil {
		voucher.MaxDiscountAmount = req.MaxDiscountAmount
	}
	if req.ApplicationType != nil {
		voucher.ApplicationType = *req.ApplicationType
	}
	if req.ConditionType != nil {
		voucher.ConditionType = *req.ConditionType
	}
	if req.ConditionValue != nil {
		voucher.ConditionValue = req.ConditionValue
	}
	if req.MinOrderValue != nil {
		voucher.MinOrderValue = *req.MinOrderValue
	}
	if req.ExpiryDate != nil {
		voucher.ExpiryDate = req.ExpiryDate
	}
	if req.IsPublic != nil {
		voucher.IsPublic = *req.IsPublic
	}
	if req.UsageLimit != nil {
		voucher.UsageLimit = *req.UsageLimit
	}
	if req.IsActive != nil {
		voucher.IsActive = *req.IsActive
	}
	if req.Description != nil {
		voucher.Description = req.Description
	}

	if err := s.validateVoucher(voucher); err != nil {
		return nil, err
	}

	if err := s.voucherRepo.Update(ctx, voucher); err != nil {
		return nil, err
	}

	return voucher, nil
}

// GetVoucherByCode 根据券码获取代金券
func (s *CatalogService) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	voucher, err := s.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return voucher, nil
}

// GetVoucherByID 根据 ID 获取代金券
func (s *CatalogService) GetVoucherByID(ctx context.Context, id int64) (*models.Voucher, error) {
	voucher, err := s.voucherRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return voucher, nil
}

// VoucherItem 代金券展示项
type VoucherItem struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	DiscountType      string     `json:"discount_type"`
	DiscountValue     float64    `json:"discount_value"`
	MaxDiscountAmount *float64   `json:"max_discount_amount,omitempty"`
	ApplicationType   string     `json:"application_type"`
	ConditionType     string     `json:"condition_type"`
	MinOrderValue     float64    `json:"min_order_value"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	UsageLimit        int        `json:"usage_limit"`
	UsedCount         int        `json:"used_count"`
	RemainCount       int        `json:"remain_count"`
	IsActive          bool       `json:"is_active"`
	IsClaimable       bool       `json:"is_claimable"`
	Description       *string    `json:"description,omitempty"`
}

// VoucherListResponse 代金券列表响应
type VoucherListResponse struct {
	List  []*VoucherItem `json:"list"`
	Total int64          `json:"total"`
}

// GetClaimableVouchers 获取可领取的公开代金券列表（用户端）
func (s *CatalogService) GetClaimableVouchers(ctx context.Context, page, pageSize int) (*VoucherListResponse, error) {
	offset := (page - 1) * pageSize
	now := time.Now()

	vouchers, total, err := s.voucherRepo.ListClaimable(ctx, now, offset, pageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*VoucherItem, 0, len(vouchers))
	for _, v := range vouchers {
		list = append(list, BuildVoucherItem(v, now))
	}

	return &VoucherListResponse{
		List:  list,
		Total: total,
	}, nil
}

// GetVoucherList 获取代金券列表（管理端）
func (s *CatalogService) GetVoucherList(ctx context.Context, params repository.VoucherListParams) (*VoucherListResponse, error) {
	vouchers, total, err := s.voucherRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	list := make([]*VoucherItem, 0, len(vouchers))
	for _, v := range vouchers {
		list = append(list, BuildVoucherItem(v, now))
	}

	return &VoucherListResponse{
		List:  list,
		Total: total,
	}, nil
}

// Deactivate 手动停用代金券（软停用，不做物理删除）
func (s *CatalogService) Deactivate(ctx context.Context, id int64) error {
	voucher, err := s.voucherRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVoucherNotFound
		}
		return err
	}
	if !voucher.IsActive {
		return nil
	}
	return s.voucherRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": false})
}

// IncrementUsage 领取成功时占用全局名额
// 原子条件自增，并发下对最后一个名额保证恰好一次成功
func (s *CatalogService) IncrementUsage(ctx context.Context, voucherID int64) error {
	err := s.voucherRepo.IncrementUsedCount(ctx, voucherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUsageLimitExceeded
		}
		return err
	}
	return nil
}

// DeactivateExpired 批量停用已过期的券，返回受影响行数
func (s *CatalogService) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.voucherRepo.DeactivateExpired(ctx, now)
}

// validateDefinition 校验创建请求
func (s *CatalogService) validateDefinition(req *CreateVoucherRequest) error {
	if req.Code == "" {
		return ErrInvalidDefinition
	}
	if req.DiscountValue < 0 {
		return ErrInvalidDefinition
	}
	if req.UsageLimit < 1 {
		return ErrInvalidDefinition
	}
	if req.DiscountType != models.DiscountTypePercent && req.DiscountType != models.DiscountTypeAmount {
		return ErrInvalidDefinition
	}
	if req.ApplicationType != "" &&
		req.ApplicationType != models.ApplicationTypeOrder &&
		req.ApplicationType != models.ApplicationTypeProduct &&
		req.ApplicationType != models.ApplicationTypeShipping {
		return ErrInvalidDefinition
	}
	if _, err := ParseCondition(req.ConditionType, req.ConditionValue); err != nil {
		return ErrInvalidDefinition
	}
	return nil
}

// validateVoucher 校验更新后的完整定义
func (s *CatalogService) validateVoucher(v *models.Voucher) error {
	if v.DiscountValue < 0 {
		return ErrInvalidDefinition
	}
	if v.UsageLimit < 1 {
		return ErrInvalidDefinition
	}
	if v.DiscountType != models.DiscountTypePercent && v.DiscountType != models.DiscountTypeAmount {
		return ErrInvalidDefinition
	}
	if v.ApplicationType != models.ApplicationTypeOrder &&
		v.ApplicationType != models.ApplicationTypeProduct &&
		v.ApplicationType != models.ApplicationTypeShipping {
		return ErrInvalidDefinition
	}
	if _, err := ParseCondition(v.ConditionType, v.ConditionValue); err != nil {
		return ErrInvalidDefinition
	}
	return nil
}

// BuildVoucherItem 构建代金券展示项
func BuildVoucherItem(v *models.Voucher, now time.Time) *VoucherItem {
	return &VoucherItem{
		ID:                v.ID,
		Code:              v.Code,
		Name:              v.Name,
		DiscountType:      v.DiscountType,
		DiscountValue:     v.DiscountValue,
		MaxDiscountAmount: v.MaxDiscountAmount,
		ApplicationType:   v.ApplicationType,
		ConditionType:     v.ConditionType,
		MinOrderValue:     v.MinOrderValue,
		ExpiryDate:        v.ExpiryDate,
		UsageLimit:        v.UsageLimit,
		UsedCount:         v.UsedCount,
		RemainCount:       v.UsageLimit - v.UsedCount,
		IsActive:          v.IsActive,
		IsClaimable:       v.IsClaimable(now),
		Description:       v.Description,
	}
}
