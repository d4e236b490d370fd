// Package voucher 提供代金券生命周期服务
package voucher

import (
	"fmt"

	"github.com/dumeirei/voucher-engine/internal/models"
)

// Condition 使用条件，按 condition_type 区分的封闭变体集合
// 每个变体只携带自身需要的参数，Matches 判断订单上下文是否满足条件
type Condition interface {
	Type() string
	Matches(octx *OrderContext) bool
}

// NoneCondition 无条件
type NoneCondition struct{}

// Type 条件类型
func (NoneCondition) Type() string { return models.ConditionTypeNone }

// Matches 恒为真
func (NoneCondition) Matches(_ *OrderContext) bool { return true }

// FirstOrderCondition 首单条件
type FirstOrderCondition struct{}

// Type 条件类型
func (FirstOrderCondition) Type() string { return models.ConditionTypeFirstOrder }

// Matches 仅首单通过
func (FirstOrderCondition) Matches(octx *OrderContext) bool { return octx.IsFirstOrder }

// LocationCondition 配送地区条件
type LocationCondition struct {
	AllowedLocations []string `json:"allowed_locations"`
}

// Type 条件类型
func (LocationCondition) Type() string { return models.ConditionTypeLocation }

// Matches 配送地区在允许列表内时通过
func (c LocationCondition) Matches(octx *OrderContext) bool {
	for _, loc := range c.AllowedLocations {
		if loc == octx.DeliveryLocation {
			return true
		}
	}
	return false
}

// UserSegmentCondition 用户分群条件
type UserSegmentCondition struct {
	AllowedSegments []string `json:"allowed_segments"`
}

// Type 条件类型
func (UserSegmentCondition) Type() string { return models.ConditionTypeUserSegment }

// Matches 用户分群在允许列表内时通过
func (c UserSegmentCondition) Matches(octx *OrderContext) bool {
	for _, seg := range c.AllowedSegments {
		if seg == octx.UserSegment {
			return true
		}
	}
	return false
}

// MinItemsCondition 最低件数条件
type MinItemsCondition struct {
	MinItems int `json:"min_items"`
}

// Type 条件类型
func (MinItemsCondition) Type() string { return models.ConditionTypeMinItems }

// Matches 购物车总件数达到下限时通过
func (c MinItemsCondition) Matches(octx *OrderContext) bool {
	total := 0
	for _, line := range octx.Lines {
		total += line.Quantity
	}
	return total >= c.MinItems
}

// SpecificCategoryCondition 指定分类条件
type SpecificCategoryCondition struct {
	AllowedCategoryIDs []int64 `json:"allowed_category_ids"`
}

// Type 条件类型
func (SpecificCategoryCondition) Type() string { return models.ConditionTypeSpecificCategory }

// Matches 至少一个商品行属于允许分类时通过
func (c SpecificCategoryCondition) Matches(octx *OrderContext) bool {
	for _, line := range octx.Lines {
		if c.containsCategory(line.CategoryID) {
			return true
		}
	}
	return false
}

func (c SpecificCategoryCondition) containsCategory(categoryID int64) bool {
	for _, id := range c.AllowedCategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// PaymentMethodCondition 支付方式条件
type PaymentMethodCondition struct {
	AllowedMethods []string `json:"allowed_methods"`
}

// Type 条件类型
func (PaymentMethodCondition) Type() string { return models.ConditionTypePaymentMethod }

// Matches 支付方式在允许列表内时通过
func (c PaymentMethodCondition) Matches(octx *OrderContext) bool {
	for _, method := range c.AllowedMethods {
		if method == octx.PaymentMethod {
			return true
		}
	}
	return false
}

// ParseCondition 根据条件类型解析 JSONB 参数为对应的条件变体
// 参数缺失或不合法时返回错误，供创建/更新时校验
func ParseCondition(conditionType string, value models.JSON) (Condition, error) {
	switch conditionType {
	case models.ConditionTypeNone, "":
		return NoneCondition{}, nil
	case models.ConditionTypeFirstOrder:
		return FirstOrderCondition{}, nil
	case models.ConditionTypeLocation:
		var c LocationCondition
		if err := value.Unmarshal(&c); err != nil {
			return nil, err
		}
		if len(c.AllowedLocations) == 0 {
			return nil, fmt.Errorf("location 条件缺少 allowed_locations")
		}
		return c, nil
	case models.ConditionTypeUserSegment:
		var c UserSegmentCondition
		if err := value.Unmarshal(&c); err != nil {
			return nil, err
		}
		if len(c.AllowedSegments) == 0 {
			return nil, fmt.Errorf("user_segment 条件缺少 allowed_segments")
		}
		return c, nil
	case models.ConditionTypeMinItems:
		var c MinItemsCondition
		if err := value.Unmarshal(&c); err != nil {
			return nil, err
		}
		if c.MinItems < 1 {
			return nil, fmt.Errorf("min_items 条件要求 min_items >= 1")
		}
		return c, nil
	case models.ConditionTypeSpecificCategory:
		var c SpecificCategoryCondition
		if err := value.Unmarshal(&c); err != nil {
			return nil, err
		}
		if len(c.AllowedCategoryIDs) == 0 {
			return nil, fmt.Errorf("specific_category 条件缺少 allowed_category_ids")
		}
		return c, nil
	case models.ConditionTypePaymentMethod:
		var c PaymentMethodCondition
		if err := value.Unmarshal(&c); err != nil {
			return nil, err
		}
		if len(c.AllowedMethods) == 0 {
			return nil, fmt.Errorf("payment_method 条件缺少 allowed_methods")
		}
		return c, nil
	default:
		return nil, fmt.Errorf("未知的条件类型: %s", conditionType)
	}
}

// perUserLimitPayload 条件参数中可选的单用户核销次数覆盖
type perUserLimitPayload struct {
	PerUserLimit int `json:"per_user_limit"`
}

// PerUserLimit 取券定义中的单用户核销次数，未配置时使用默认值
func PerUserLimit(value models.JSON, defaultLimit int) int {
	var payload perUserLimitPayload
	if err := value.Unmarshal(&payload); err != nil {
		return defaultLimit
	}
	if payload.PerUserLimit >= 1 {
		return payload.PerUserLimit
	}
	return defaultLimit
}
