// Package voucher 提供代金券相关的 HTTP Handler
package voucher

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/voucher-engine/internal/common/cache"
	"github.com/dumeirei/voucher-engine/internal/common/config"
	"github.com/dumeirei/voucher-engine/internal/common/handler"
	"github.com/dumeirei/voucher-engine/internal/common/logger"
	"github.com/dumeirei/voucher-engine/internal/common/metrics"
	"github.com/dumeirei/voucher-engine/internal/common/response"
	voucherService "github.com/dumeirei/voucher-engine/internal/service/voucher"
)

// VoucherHandler 代金券处理器（用户端）
type VoucherHandler struct {
	catalog  *voucherService.CatalogService
	ledger   *voucherService.LedgerService
	cacheCfg *config.VoucherCache
}

// NewVoucherHandler 创建代金券处理器
func NewVoucherHandler(catalog *voucherService.CatalogService, ledger *voucherService.LedgerService, cacheCfg *config.VoucherCache) *VoucherHandler {
	return &VoucherHandler{
		catalog:  catalog,
		ledger:   ledger,
		cacheCfg: cacheCfg,
	}
}

// GetClaimableVouchers 获取可领取的代金券列表
// @Summary 获取可领取的代金券列表
// @Tags 代金券
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=voucher.VoucherListResponse}
// @Router /api/v1/vouchers [get]
func (h *VoucherHandler) GetClaimableVouchers(c *gin.Context) {
	p := handler.BindPagination(c)
	ctx := c.Request.Context()

	// 公开列表走缓存，领取和核销路径不缓存
	cacheKey := fmt.Sprintf("%s%d:%d", cache.KeyPrefixVoucherList, p.Page, p.PageSize)
	if h.cacheCfg != nil && h.cacheCfg.Enabled {
		var cached voucherService.VoucherListResponse
		if err := cache.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHitGlobal("voucher_list")
			response.SuccessPage(c, cached.List, cached.Total, p.Page, p.PageSize)
			return
		}
		metrics.RecordCacheMissGlobal("voucher_list")
	}

	result, err := h.catalog.GetClaimableVouchers(ctx, p.Page, p.PageSize)
	if handler.HandleError(c, err) {
		return
	}

	if h.cacheCfg != nil && h.cacheCfg.Enabled {
		ttl := time.Duration(h.cacheCfg.ListTTL) * time.Second
		if err := cache.Set(ctx, cacheKey, result, ttl); err != nil {
			logger.Warn("缓存代金券列表失败", logger.Err(err))
		}
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// GetVoucherByCode 按编码查询代金券
// @Summary 按编码查询代金券
// @Tags 代金券
// @Produce json
// @Param code path string true "代金券编码"
// @Success 200 {object} response.Response{data=voucher.VoucherItem}
// @Router /api/v1/vouchers/code/{code} [get]
func (h *VoucherHandler) GetVoucherByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, "请提供代金券编码")
		return
	}

	v, err := h.catalog.GetVoucherByCode(c.Request.Context(), code)
	if handler.HandleError(c, err) {
		return
	}

	response.Success(c, voucherService.BuildVoucherItem(v, time.Now()))
}

// ClaimVoucher 领取代金券
// @Summary 领取代金券
// @Tags 代金券
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Success 200 {object} response.Response
// @Router /api/v1/vouchers/{id}/claim [post]
func (h *VoucherHandler) ClaimVoucher(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	voucherID, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	claim, err := h.ledger.Claim(c.Request.Context(), userID, voucherID, time.Now())
	if err != nil {
		metrics.RecordClaimGlobal(claimResult(err))
		handler.HandleError(c, err)
		return
	}

	metrics.RecordClaimGlobal("ok")
	response.SuccessWithMessage(c, "领取成功", gin.H{
		"claim_id":     claim.ID,
		"voucher_id":   claim.VoucherID,
		"usage_limit":  claim.UsageLimit,
		"collected_at": claim.CollectedAt,
	})
}

// GetMyClaims 获取我的代金券
// @Summary 获取我的代金券列表
// @Tags 代金券
// @Produce json
// @Security Bearer
// @Param status query string false "状态: active/used_up/expired"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=voucher.ClaimListResponse}
// @Router /api/v1/claims [get]
func (h *VoucherHandler) GetMyClaims(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	req := &voucherService.ClaimListRequest{
		Page:     p.Page,
		PageSize: p.PageSize,
		Status:   c.Query("status"),
	}

	result, err := h.ledger.GetUserClaims(c.Request.Context(), userID, req)
	if handler.HandleError(c, err) {
		return
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// RedeemVoucher 核销一次代金券
// @Summary 核销一次代金券
// @Tags 代金券
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Success 200 {object} response.Response
// @Router /api/v1/vouchers/{id}/redeem [post]
func (h *VoucherHandler) RedeemVoucher(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	voucherID, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	claim, err := h.ledger.Redeem(c.Request.Context(), userID, voucherID, time.Now())
	if err != nil {
		metrics.RecordRedemptionGlobal(redeemResult(err))
		handler.HandleError(c, err)
		return
	}

	metrics.RecordRedemptionGlobal("ok")
	response.SuccessWithMessage(c, "核销成功", gin.H{
		"claim_id":    claim.ID,
		"used_count":  claim.UsedCount,
		"usage_limit": claim.UsageLimit,
		"status":      claim.Status,
	})
}

// ReleaseVoucher 回退一次核销（订单取消时调用）
// @Summary 回退一次核销
// @Tags 代金券
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Success 200 {object} response.Response
// @Router /api/v1/vouchers/{id}/release [post]
func (h *VoucherHandler) ReleaseVoucher(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	voucherID, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	err := h.ledger.Release(c.Request.Context(), userID, voucherID)
	handler.MustSucceedWithMessage(c, err, "已回退", nil)
}

// EvaluateRequest 优惠试算请求
type EvaluateRequest struct {
	Code  string                       `json:"code" binding:"required"`
	Order *voucherService.OrderContext `json:"order" binding:"required"`
}

// EvaluateVoucher 试算代金券优惠金额
// @Summary 试算代金券优惠金额
// @Tags 代金券
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body EvaluateRequest true "试算请求"
// @Success 200 {object} response.Response{data=voucher.EvaluationResult}
// @Router /api/v1/vouchers/evaluate [post]
func (h *VoucherHandler) EvaluateVoucher(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误：需要代金券编码和订单上下文")
		return
	}

	result, err := h.ledger.PreviewDiscount(c.Request.Context(), userID, req.Code, req.Order, time.Now())
	if handler.HandleError(c, err) {
		return
	}

	if result.OK {
		metrics.GetMetrics().RecordEvaluation("accepted")
	} else {
		metrics.GetMetrics().RecordEvaluation(result.Reason)
	}
	response.Success(c, result)
}

// claimResult 领取结果指标标签
func claimResult(err error) string {
	switch {
	case errors.Is(err, voucherService.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, voucherService.ErrUsageLimitExceeded):
		return "exhausted"
	case errors.Is(err, voucherService.ErrVoucherNotClaimable),
		errors.Is(err, voucherService.ErrVoucherNotPublic):
		return "not_claimable"
	case errors.Is(err, voucherService.ErrVoucherNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// redeemResult 核销结果指标标签
func redeemResult(err error) string {
	switch {
	case errors.Is(err, voucherService.ErrClaimNotActive):
		return "not_active"
	case errors.Is(err, voucherService.ErrClaimNotFound):
		return "not_found"
	default:
		return "error"
	}
}
