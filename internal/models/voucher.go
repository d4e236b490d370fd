package models

import (
	"time"
)

// Voucher 代金券模型（券目录条目）
type Voucher struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code              string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name              string     `gorm:"type:varchar(100);not null" json:"name"`
	DiscountType      string     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue     float64    `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	MaxDiscountAmount *float64   `gorm:"type:decimal(12,2)" json:"max_discount_amount,omitempty"`
	ApplicationType   string     `gorm:"type:varchar(20);not null;default:'order'" json:"application_type"`
	ConditionType     string     `gorm:"type:varchar(30);not null;default:'none'" json:"condition_type"`
	ConditionValue    JSON       `gorm:"type:jsonb" json:"condition_value,omitempty"`
	MinOrderValue     float64    `gorm:"type:decimal(12,2);not null;default:0" json:"min_order_value"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	IsPublic          bool       `gorm:"not null;default:true" json:"is_public"`
	UsageLimit        int        `gorm:"not null" json:"usage_limit"`
	UsedCount         int        `gorm:"not null;default:0" json:"used_count"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	Description       *string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Claims []Claim `gorm:"foreignKey:VoucherID" json:"claims,omitempty"`
}

// TableName 表名
func (Voucher) TableName() string {
	return "vouchers"
}

// DiscountType 折扣类型
const (
	DiscountTypePercent = "percent" // 百分比折扣
	DiscountTypeAmount  = "amount"  // 固定金额
)

// ApplicationType 适用范围（折扣作用的金额基数）
const (
	ApplicationTypeOrder    = "order"    // 订单小计
	ApplicationTypeProduct  = "product"  // 商品行
	ApplicationTypeShipping = "shipping" // 运费
)

// ConditionType 使用条件类型
const (
	ConditionTypeNone             = "none"              // 无条件
	ConditionTypeFirstOrder       = "first_order"       // 首单
	ConditionTypeLocation         = "location"          // 指定配送地区
	ConditionTypeUserSegment      = "user_segment"      // 指定用户分群
	ConditionTypeMinItems         = "min_items"         // 最低件数
	ConditionTypeSpecificCategory = "specific_category" // 指定分类
	ConditionTypePaymentMethod    = "payment_method"    // 指定支付方式
)

// IsExpired 判断券在给定时间是否已过期（expiry_date 为空表示永不过期）
func (v *Voucher) IsExpired(now time.Time) bool {
	return v.ExpiryDate != nil && !v.ExpiryDate.After(now)
}

// IsClaimable 判断券在给定时间是否可领取
func (v *Voucher) IsClaimable(now time.Time) bool {
	return v.IsActive && v.UsedCount < v.UsageLimit && !v.IsExpired(now)
}

// Claim 用户领券记录（每个用户对每张券至多一条）
type Claim struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_claims_user_voucher" json:"user_id"`
	VoucherID   int64     `gorm:"not null;uniqueIndex:idx_claims_user_voucher;index" json:"voucher_id"`
	UsageLimit  int       `gorm:"not null;default:1" json:"usage_limit"`
	UsedCount   int       `gorm:"not null;default:0" json:"used_count"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CollectedAt time.Time `gorm:"not null" json:"collected_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`

	// 关联
	Voucher *Voucher `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
}

// TableName 表名
func (Claim) TableName() string {
	return "claims"
}

// ClaimStatus 领券记录状态
const (
	ClaimStatusActive  = "active"  // 可用
	ClaimStatusUsedUp  = "used_up" // 次数用尽（终态）
	ClaimStatusExpired = "expired" // 已过期（终态）
)
