// Package errors 定义业务错误码和错误处理
package errors

import (
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrRateLimitExceed = New(1007, "请求过于频繁")
	ErrOperationFailed = New(1008, "操作失败")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
)

// 优惠券错误码 (3000-3999)
var (
	ErrVoucherNotFound      = New(3000, "优惠券不存在")
	ErrVoucherCodeExists    = New(3001, "优惠券编码已存在")
	ErrVoucherInvalid       = New(3002, "优惠券定义无效")
	ErrVoucherExpired       = New(3003, "优惠券已过期")
	ErrVoucherInactive      = New(3004, "优惠券已停用")
	ErrVoucherNotPublic     = New(3005, "优惠券不可自助领取")
	ErrVoucherUsedUp        = New(3006, "优惠券已领完")
	ErrVoucherNotApplicable = New(3007, "优惠券不适用")
	ErrVoucherNotClaimable  = New(3008, "优惠券当前不可领取")
)

// 领取记录错误码 (4000-4999)
var (
	ErrClaimNotFound  = New(4000, "领取记录不存在")
	ErrAlreadyClaimed = New(4001, "已领取过该优惠券")
	ErrClaimNotActive = New(4002, "优惠券不可用")
	ErrClaimUsedUp    = New(4003, "优惠券已用完")
	ErrClaimExpired   = New(4004, "优惠券已过期")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
