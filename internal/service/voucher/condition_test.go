package voucher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/voucher-engine/internal/models"
)

func TestParseCondition(t *testing.T) {
	t.Run("空类型视为无条件", func(t *testing.T) {
		cond, err := ParseCondition("", nil)
		require.NoError(t, err)
		assert.Equal(t, models.ConditionTypeNone, cond.Type())
	})

	t.Run("首单条件无参数", func(t *testing.T) {
		cond, err := ParseCondition(models.ConditionTypeFirstOrder, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ConditionTypeFirstOrder, cond.Type())
	})

	t.Run("地区条件缺少参数报错", func(t *testing.T) {
		_, err := ParseCondition(models.ConditionTypeLocation, nil)
		assert.Error(t, err)
	})

	t.Run("件数条件下限校验", func(t *testing.T) {
		_, err := ParseCondition(models.ConditionTypeMinItems, models.JSON{"min_items": 0})
		assert.Error(t, err)

		cond, err := ParseCondition(models.ConditionTypeMinItems, models.JSON{"min_items": 3})
		require.NoError(t, err)
		assert.Equal(t, models.ConditionTypeMinItems, cond.Type())
	})

	t.Run("未知类型报错", func(t *testing.T) {
		_, err := ParseCondition("vip_only", nil)
		assert.Error(t, err)
	})
}

func TestCondition_Matches(t *testing.T) {
	t.Run("首单", func(t *testing.T) {
		cond := FirstOrderCondition{}
		assert.True(t, cond.Matches(&OrderContext{IsFirstOrder: true}))
		assert.False(t, cond.Matches(&OrderContext{IsFirstOrder: false}))
	})

	t.Run("配送地区", func(t *testing.T) {
		cond, err := ParseCondition(models.ConditionTypeLocation,
			models.JSON{"allowed_locations": []string{"杭州", "上海"}})
		require.NoError(t, err)
		assert.True(t, cond.Matches(&OrderContext{DeliveryLocation: "杭州"}))
		assert.False(t, cond.Matches(&OrderContext{DeliveryLocation: "北京"}))
	})

	t.Run("用户分群", func(t *testing.T) {
		cond, err := ParseCondition(models.ConditionTypeUserSegment,
			models.JSON{"allowed_segments": []string{"vip"}})
		require.NoError(t, err)
		assert.True(t, cond.Matches(&OrderContext{UserSegment: "vip"}))
		assert.False(t, cond.Matches(&OrderContext{UserSegment: "new"}))
	})

	t.Run("最低件数按总数计", func(t *testing.T) {
		cond, err := ParseCondition(models.ConditionTypeMinItems, models.JSON{"min_items": 3})
		require.NoError(t, err)
		octx := &OrderContext{Lines: []OrderLine{
			{Quantity: 2, UnitPrice: 10},
			{Quantity: 1, UnitPrice: 10},
		}}
		assert.True(t, cond.Matches(octx))
		assert.False(t, cond.Matches(&OrderContext{Lines: []OrderLine{{Quantity: 2}}}))
	})

	t.Run("指定分类命中任一行即可", func(t *testing.T) {
		cond, err := ParseCondition(models.ConditionTypeSpecificCategory,
			models.JSON{"allowed_category_ids": []int64{7, 8}})
		require.NoError(t, err)
		assert.True(t, cond.Matches(&OrderContext{Lines: []OrderLine{
			{CategoryID: 9}, {CategoryID: 8},
		}}))
		assert.False(t, cond.Matches(&OrderContext{Lines: []OrderLine{{CategoryID: 9}}}))
	})

	t.Run("支付方式", func(t *testing.T) {
		cond, err := ParseCondition(models.ConditionTypePaymentMethod,
			models.JSON{"allowed_methods": []string{"wallet"}})
		require.NoError(t, err)
		assert.True(t, cond.Matches(&OrderContext{PaymentMethod: "wallet"}))
		assert.False(t, cond.Matches(&OrderContext{PaymentMethod: "card"}))
	})
}

func TestPerUserLimit(t *testing.T) {
	t.Run("未配置用默认值", func(t *testing.T) {
		assert.Equal(t, 1, PerUserLimit(nil, 1))
		assert.Equal(t, 2, PerUserLimit(models.JSON{"min_items": 3}, 2))
	})

	t.Run("配置覆盖默认值", func(t *testing.T) {
		assert.Equal(t, 5, PerUserLimit(models.JSON{"per_user_limit": 5}, 1))
	})

	t.Run("非法配置回退默认值", func(t *testing.T) {
		assert.Equal(t, 1, PerUserLimit(models.JSON{"per_user_limit": 0}, 1))
	})
}
