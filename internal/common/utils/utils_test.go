package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== 优惠券编码测试 ====================

func TestGenerateVoucherCode(t *testing.T) {
	t.Run("带前缀生成", func(t *testing.T) {
		code := GenerateVoucherCode("SALE", 8)

		assert.True(t, strings.HasPrefix(code, "SALE"))
		assert.Len(t, code, 12)
	})

	t.Run("无前缀生成", func(t *testing.T) {
		code := GenerateVoucherCode("", 10)

		assert.Len(t, code, 10)
	})

	t.Run("排除易混淆字符", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			code := GenerateVoucherCode("", 16)
			assert.NotContains(t, code, "0")
			assert.NotContains(t, code, "O")
			assert.NotContains(t, code, "I")
			assert.NotContains(t, code, "1")
		}
	})

	t.Run("多次生成不重复", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			code := GenerateVoucherCode("V", 12)
			require.False(t, seen[code], "生成了重复编码: %s", code)
			seen[code] = true
		}
	})
}

func TestValidateVoucherCode(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"标准编码", "WELCOME10", true},
		{"带下划线", "SUMMER_SALE", true},
		{"带连字符", "NEW-USER-5", true},
		{"小写字母", "welcome10", true},
		{"最短长度", "ABC", true},
		{"过短", "AB", false},
		{"过长", strings.Repeat("A", 51), false},
		{"含空格", "WELCOME 10", false},
		{"含中文", "优惠券10", false},
		{"含特殊字符", "SALE@10", false},
		{"空字符串", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateVoucherCode(tt.code))
		})
	}
}

// ==================== 指针辅助函数测试 ====================

func TestPointerHelpers(t *testing.T) {
	t.Run("StringPtr", func(t *testing.T) {
		p := StringPtr("hello")
		require.NotNil(t, p)
		assert.Equal(t, "hello", *p)
	})

	t.Run("IntPtr", func(t *testing.T) {
		p := IntPtr(42)
		require.NotNil(t, p)
		assert.Equal(t, 42, *p)
	})

	t.Run("Int64Ptr", func(t *testing.T) {
		p := Int64Ptr(100)
		require.NotNil(t, p)
		assert.Equal(t, int64(100), *p)
	})

	t.Run("Float64Ptr", func(t *testing.T) {
		p := Float64Ptr(9.99)
		require.NotNil(t, p)
		assert.Equal(t, 9.99, *p)
	})

	t.Run("BoolPtr", func(t *testing.T) {
		p := BoolPtr(true)
		require.NotNil(t, p)
		assert.True(t, *p)
	})

	t.Run("TimePtr", func(t *testing.T) {
		now := time.Now()
		p := TimePtr(now)
		require.NotNil(t, p)
		assert.Equal(t, now, *p)
	})
}

func TestSafeHelpers(t *testing.T) {
	t.Run("SafeString", func(t *testing.T) {
		assert.Equal(t, "", SafeString(nil))
		assert.Equal(t, "code", SafeString(StringPtr("code")))
	})

	t.Run("SafeInt64", func(t *testing.T) {
		assert.Equal(t, int64(0), SafeInt64(nil))
		assert.Equal(t, int64(7), SafeInt64(Int64Ptr(7)))
	})

	t.Run("SafeFloat64", func(t *testing.T) {
		assert.Equal(t, float64(0), SafeFloat64(nil))
		assert.Equal(t, 19.9, SafeFloat64(Float64Ptr(19.9)))
	})
}

// ==================== 切片工具测试 ====================

func TestContains(t *testing.T) {
	t.Run("字符串切片", func(t *testing.T) {
		slice := []string{"shipping", "product", "order"}
		assert.True(t, Contains(slice, "product"))
		assert.False(t, Contains(slice, "bogo"))
	})

	t.Run("整数切片", func(t *testing.T) {
		slice := []int64{1, 2, 3}
		assert.True(t, Contains(slice, int64(2)))
		assert.False(t, Contains(slice, int64(4)))
	})

	t.Run("空切片", func(t *testing.T) {
		assert.False(t, Contains([]string{}, "any"))
	})
}

func TestUnique(t *testing.T) {
	t.Run("去重保持顺序", func(t *testing.T) {
		result := Unique([]int64{3, 1, 3, 2, 1})
		assert.Equal(t, []int64{3, 1, 2}, result)
	})

	t.Run("无重复元素", func(t *testing.T) {
		result := Unique([]string{"a", "b"})
		assert.Equal(t, []string{"a", "b"}, result)
	})

	t.Run("空切片", func(t *testing.T) {
		result := Unique([]int{})
		assert.Empty(t, result)
	})
}

func TestMaxMin(t *testing.T) {
	assert.Equal(t, 5, Max(3, 5))
	assert.Equal(t, 3, Min(3, 5))
	assert.Equal(t, 10.5, Max(10.5, 2.0))
	assert.Equal(t, 2.0, Min(10.5, 2.0))
	assert.Equal(t, int64(-1), Max(int64(-1), int64(-2)))
	assert.Equal(t, int64(-2), Min(int64(-1), int64(-2)))
}

// ==================== 分页测试 ====================

func TestPagination_GetOffset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.GetOffset())

	p = Pagination{Page: 1, PageSize: 20}
	assert.Equal(t, 0, p.GetOffset())
}

func TestPagination_GetLimit(t *testing.T) {
	p := Pagination{Page: 1, PageSize: 15}
	assert.Equal(t, 15, p.GetLimit())
}

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		name        string
		input       Pagination
		expPage     int
		expPageSize int
	}{
		{"正常参数", Pagination{Page: 2, PageSize: 20}, 2, 20},
		{"页码为零", Pagination{Page: 0, PageSize: 10}, 1, 10},
		{"页码为负", Pagination{Page: -5, PageSize: 10}, 1, 10},
		{"页大小为零", Pagination{Page: 1, PageSize: 0}, 1, 10},
		{"页大小超限", Pagination{Page: 1, PageSize: 500}, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Normalize()
			assert.Equal(t, tt.expPage, tt.input.Page)
			assert.Equal(t, tt.expPageSize, tt.input.PageSize)
		})
	}
}
