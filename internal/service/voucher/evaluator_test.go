package voucher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/voucher-engine/internal/models"
)

func evalTestVoucher(opts ...func(*models.Voucher)) *models.Voucher {
	expiry := time.Now().Add(24 * time.Hour)
	v := &models.Voucher{
		ID:              1,
		Code:            "EVAL10",
		Name:            "评估测试券",
		DiscountType:    models.DiscountTypePercent,
		DiscountValue:   10,
		ApplicationType: models.ApplicationTypeOrder,
		ConditionType:   models.ConditionTypeNone,
		ExpiryDate:      &expiry,
		IsPublic:        true,
		UsageLimit:      100,
		IsActive:        true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func evalTestClaim(opts ...func(*models.Claim)) *models.Claim {
	c := &models.Claim{
		ID:          1,
		UserID:      1001,
		VoucherID:   1,
		UsageLimit:  1,
		UsedCount:   0,
		Status:      models.ClaimStatusActive,
		CollectedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func TestEvaluator_PercentDiscount(t *testing.T) {
	e := NewEvaluator()
	now := time.Now()

	t.Run("百分比按小计计算", func(t *testing.T) {
		v := evalTestVoucher()
		octx := &OrderContext{UserID: 1001, Subtotal: 200000}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		assert.Equal(t, 20000.0, result.DiscountAmount)
		assert.Equal(t, models.ApplicationTypeOrder, result.AppliedScope)
	})

	t.Run("超过封顶金额时取上限", func(t *testing.T) {
		cap := 15000.0
		v := evalTestVoucher(func(v *models.Voucher) {
			v.MaxDiscountAmount = &cap
		})
		octx := &OrderContext{UserID: 1001, Subtotal: 200000}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		assert.Equal(t, 15000.0, result.DiscountAmount)
	})

	t.Run("金额四舍五入到分", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.DiscountValue = 7.5
		})
		octx := &OrderContext{UserID: 1001, Subtotal: 99.99}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		// 99.99 * 7.5% = 7.49925 -> 7.50
		assert.Equal(t, 7.5, result.DiscountAmount)
	})
}

func TestEvaluator_AmountDiscount(t *testing.T) {
	e := NewEvaluator()
	now := time.Now()

	t.Run("固定金额优惠", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.DiscountType = models.DiscountTypeAmount
			v.DiscountValue = 50
		})
		octx := &OrderContext{UserID: 1001, Subtotal: 300}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		assert.Equal(t, 50.0, result.DiscountAmount)
	})

	t.Run("优惠不超过基数", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.DiscountType = models.DiscountTypeAmount
			v.DiscountValue = 500
		})
		octx := &OrderContext{UserID: 1001, Subtotal: 300}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		assert.Equal(t, 300.0, result.DiscountAmount)
	})
}

func TestEvaluator_MinOrderValue(t *testing.T) {
	e := NewEvaluator()
	now := time.Now()

	v := evalTestVoucher(func(v *models.Voucher) {
		v.MinOrderValue = 100
	})

	t.Run("低于门槛拒绝", func(t *testing.T) {
		result := e.Evaluate(v, evalTestClaim(), &OrderContext{Subtotal: 99.99}, now)
		require.False(t, result.OK)
		assert.Equal(t, ReasonBelowMinimumOrder, result.Reason)
	})

	t.Run("等于门槛通过", func(t *testing.T) {
		result := e.Evaluate(v, evalTestClaim(), &OrderContext{Subtotal: 100}, now)
		assert.True(t, result.OK)
	})
}

func TestEvaluator_ApplicationScope(t *testing.T) {
	e := NewEvaluator()
	now := time.Now()

	t.Run("运费券只作用于运费", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.ApplicationType = models.ApplicationTypeShipping
			v.DiscountType = models.DiscountTypeAmount
			v.DiscountValue = 30
		})
		octx := &OrderContext{UserID: 1001, Subtotal: 500, ShippingFee: 12}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		// 运费 12 封住 30 的面额
		assert.Equal(t, 12.0, result.DiscountAmount)
		assert.Equal(t, models.ApplicationTypeShipping, result.AppliedScope)
	})

	t.Run("商品券配合指定分类时只取命中行", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.ApplicationType = models.ApplicationTypeProduct
			v.ConditionType = models.ConditionTypeSpecificCategory
			v.ConditionValue = models.JSON{"allowed_category_ids": []int64{7}}
		})
		octx := &OrderContext{
			UserID:   1001,
			Subtotal: 400,
			Lines: []OrderLine{
				{ProductID: 1, CategoryID: 7, Quantity: 2, UnitPrice: 50},  // 命中 100
				{ProductID: 2, CategoryID: 9, Quantity: 1, UnitPrice: 300}, // 不命中
			},
		}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		// 10% * 100，而不是 10% * 400
		assert.Equal(t, 10.0, result.DiscountAmount)
	})

	t.Run("订单券配合指定分类时基数仍是全额小计", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.ConditionType = models.ConditionTypeSpecificCategory
			v.ConditionValue = models.JSON{"allowed_category_ids": []int64{7}}
		})
		octx := &OrderContext{
			UserID:   1001,
			Subtotal: 400,
			Lines: []OrderLine{
				{ProductID: 1, CategoryID: 7, Quantity: 2, UnitPrice: 50},
				{ProductID: 2, CategoryID: 9, Quantity: 1, UnitPrice: 300},
			},
		}

		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.True(t, result.OK)
		assert.Equal(t, 40.0, result.DiscountAmount)
	})
}

func TestEvaluator_UsabilityChecks(t *testing.T) {
	e := NewEvaluator()
	now := time.Now()
	octx := &OrderContext{UserID: 1001, Subtotal: 100}

	t.Run("券已停用", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) { v.IsActive = false })
		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.False(t, result.OK)
		assert.Equal(t, ReasonVoucherNotUsable, result.Reason)
	})

	t.Run("券已过期", func(t *testing.T) {
		past := now.Add(-time.Hour)
		v := evalTestVoucher(func(v *models.Voucher) { v.ExpiryDate = &past })
		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.False(t, result.OK)
		assert.Equal(t, ReasonVoucherNotUsable, result.Reason)
	})

	t.Run("未领取", func(t *testing.T) {
		result := e.Evaluate(evalTestVoucher(), nil, octx, now)
		require.False(t, result.OK)
		assert.Equal(t, ReasonClaimNotActive, result.Reason)
	})

	t.Run("领券记录已用完", func(t *testing.T) {
		claim := evalTestClaim(func(c *models.Claim) {
			c.UsedCount = 1
			c.Status = models.ClaimStatusUsedUp
		})
		result := e.Evaluate(evalTestVoucher(), claim, octx, now)
		require.False(t, result.OK)
		assert.Equal(t, ReasonClaimNotActive, result.Reason)
	})

	t.Run("条件不满足", func(t *testing.T) {
		v := evalTestVoucher(func(v *models.Voucher) {
			v.ConditionType = models.ConditionTypeFirstOrder
		})
		result := e.Evaluate(v, evalTestClaim(), octx, now)
		require.False(t, result.OK)
		assert.Equal(t, ReasonConditionNotMet, result.Reason)
	})
}

func TestEffectiveClaimStatus(t *testing.T) {
	now := time.Now()

	t.Run("券到期时惰性视为过期", func(t *testing.T) {
		past := now.Add(-time.Hour)
		v := evalTestVoucher(func(v *models.Voucher) { v.ExpiryDate = &past })
		claim := evalTestClaim()

		assert.Equal(t, models.ClaimStatusExpired, EffectiveClaimStatus(claim, v, now))
		// 存储中的记录不被修改
		assert.Equal(t, models.ClaimStatusActive, claim.Status)
	})

	t.Run("券未到期保持原状态", func(t *testing.T) {
		v := evalTestVoucher()
		assert.Equal(t, models.ClaimStatusActive, EffectiveClaimStatus(evalTestClaim(), v, now))
	})

	t.Run("已用完不受到期影响", func(t *testing.T) {
		past := now.Add(-time.Hour)
		v := evalTestVoucher(func(v *models.Voucher) { v.ExpiryDate = &past })
		claim := evalTestClaim(func(c *models.Claim) { c.Status = models.ClaimStatusUsedUp })

		assert.Equal(t, models.ClaimStatusUsedUp, EffectiveClaimStatus(claim, v, now))
	})
}
