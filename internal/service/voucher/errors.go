// Package voucher 提供代金券生命周期服务
package voucher

import (
	apperrors "github.com/dumeirei/voucher-engine/internal/common/errors"
)

// 代金券模块错误定义，复用统一错误码便于 Handler 层直出
var (
	// 券目录相关错误
	ErrVoucherNotFound    = apperrors.ErrVoucherNotFound
	ErrCodeExists         = apperrors.ErrVoucherCodeExists
	ErrInvalidDefinition  = apperrors.ErrVoucherInvalid
	ErrUsageLimitExceeded = apperrors.ErrVoucherUsedUp

	// 领取相关错误
	ErrAlreadyClaimed      = apperrors.ErrAlreadyClaimed
	ErrVoucherNotClaimable = apperrors.ErrVoucherNotClaimable
	ErrVoucherNotPublic    = apperrors.ErrVoucherNotPublic

	// 核销相关错误
	ErrClaimNotFound  = apperrors.ErrClaimNotFound
	ErrClaimNotActive = apperrors.ErrClaimNotActive
)
