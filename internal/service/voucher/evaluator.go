// Package voucher 提供代金券生命周期服务
package voucher

import (
	"math"
	"time"

	"github.com/dumeirei/voucher-engine/internal/models"
)

// OrderLine 订单商品行
type OrderLine struct {
	ProductID  int64   `json:"product_id"`
	CategoryID int64   `json:"category_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// Total 行小计
func (l OrderLine) Total() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// OrderContext 订单上下文，由结算模块提供，评估器只读不写
type OrderContext struct {
	UserID           int64       `json:"user_id"`
	Lines            []OrderLine `json:"lines"`
	Subtotal         float64     `json:"subtotal"`
	ShippingFee      float64     `json:"shipping_fee"`
	IsFirstOrder     bool        `json:"is_first_order"`
	UserSegment      string      `json:"user_segment"`
	PaymentMethod    string      `json:"payment_method"`
	DeliveryLocation string      `json:"delivery_location"`
}

// 拒绝原因
const (
	ReasonVoucherNotUsable  = "voucher_not_usable"  // 券已停用或过期
	ReasonClaimNotActive    = "claim_not_active"    // 领券记录不可用
	ReasonBelowMinimumOrder = "below_minimum_order" // 未达到最低订单金额
	ReasonConditionNotMet   = "condition_not_met"   // 使用条件不满足
)

// EvaluationResult 评估结果
// 业务规则拒绝以结果值返回而不是 error，调用方按 OK 分支即可
type EvaluationResult struct {
	OK             bool    `json:"ok"`
	Reason         string  `json:"reason,omitempty"`
	Detail         string  `json:"detail,omitempty"`
	DiscountAmount float64 `json:"discount_amount"`
	AppliedScope   string  `json:"applied_scope,omitempty"`
}

// Evaluator 资格与定价评估器
// 纯计算，不访问存储，不修改券和领券记录
type Evaluator struct{}

// NewEvaluator 创建评估器
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// reject 构造拒绝结果
func reject(reason, detail string) *EvaluationResult {
	return &EvaluationResult{OK: false, Reason: reason, Detail: detail}
}

// Evaluate 评估券对订单的适用性并计算优惠金额
// 按固定顺序检查，首个失败即返回；不信任调用方传入的可用性判断，自行复查
func (e *Evaluator) Evaluate(v *models.Voucher, claim *models.Claim, octx *OrderContext, now time.Time) *EvaluationResult {
	// 券本身必须可用
	if v == nil || !v.IsActive || v.IsExpired(now) {
		return reject(ReasonVoucherNotUsable, "券已停用或过期")
	}

	// 领券记录必须可用（惰性过期：券到期即视为过期，即使清扫任务未执行）
	if claim == nil || EffectiveClaimStatus(claim, v, now) != models.ClaimStatusActive {
		return reject(ReasonClaimNotActive, "领券记录不可用")
	}

	// 最低订单金额，边界值含等于
	if octx.Subtotal < v.MinOrderValue {
		return reject(ReasonBelowMinimumOrder, "未达到最低订单金额")
	}

	// 使用条件
	cond, err := ParseCondition(v.ConditionType, v.ConditionValue)
	if err != nil {
		return reject(ReasonConditionNotMet, "条件配置无效: "+v.ConditionType)
	}
	if !cond.Matches(octx) {
		return reject(ReasonConditionNotMet, v.ConditionType)
	}

	// 选取折扣基数并计算
	base := e.applicableBase(v, octx)
	raw := e.rawDiscount(v, base)

	// 上限封顶
	if v.MaxDiscountAmount != nil && raw > *v.MaxDiscountAmount {
		raw = *v.MaxDiscountAmount
	}

	// 优惠不能超过基数本身
	if raw > base {
		raw = base
	}

	return &EvaluationResult{
		OK:             true,
		DiscountAmount: roundMoney(raw),
		AppliedScope:   v.ApplicationType,
	}
}

// applicableBase 折扣作用的金额基数
// product 范围且条件为指定分类时，基数只取命中分类的商品行；
// order 范围即使条件为指定分类，基数仍是全额小计（分类只做资格门槛）
func (e *Evaluator) applicableBase(v *models.Voucher, octx *OrderContext) float64 {
	switch v.ApplicationType {
	case models.ApplicationTypeShipping:
		return octx.ShippingFee
	case models.ApplicationTypeProduct:
		if v.ConditionType == models.ConditionTypeSpecificCategory {
			cond, err := ParseCondition(v.ConditionType, v.ConditionValue)
			if err != nil {
				return 0
			}
			categoryCond, ok := cond.(SpecificCategoryCondition)
			if !ok {
				return 0
			}
			var base float64
			for _, line := range octx.Lines {
				if categoryCond.containsCategory(line.CategoryID) {
					base += line.Total()
				}
			}
			return base
		}
		var base float64
		for _, line := range octx.Lines {
			base += line.Total()
		}
		return base
	default:
		return octx.Subtotal
	}
}

// rawDiscount 按折扣类型计算原始优惠金额
func (e *Evaluator) rawDiscount(v *models.Voucher, base float64) float64 {
	switch v.DiscountType {
	case models.DiscountTypePercent:
		return base * v.DiscountValue / 100
	case models.DiscountTypeAmount:
		return v.DiscountValue
	default:
		return 0
	}
}

// EffectiveClaimStatus 推导领券记录的实际状态
// 存储中的 active 记录若所属券已到期，按过期处理，不依赖清扫任务先行执行
func EffectiveClaimStatus(claim *models.Claim, v *models.Voucher, now time.Time) string {
	if claim.Status == models.ClaimStatusActive && v != nil && v.IsExpired(now) {
		return models.ClaimStatusExpired
	}
	return claim.Status
}

// roundMoney 四舍五入到分（正数金额的 round-half-up）
func roundMoney(amount float64) float64 {
	return math.Floor(amount*100+0.5) / 100
}
