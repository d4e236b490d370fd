// Package admin 提供管理端 HTTP Handler
package admin

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/voucher-engine/internal/common/cache"
	"github.com/dumeirei/voucher-engine/internal/common/handler"
	"github.com/dumeirei/voucher-engine/internal/common/logger"
	"github.com/dumeirei/voucher-engine/internal/common/response"
	"github.com/dumeirei/voucher-engine/internal/repository"
	voucherService "github.com/dumeirei/voucher-engine/internal/service/voucher"
)

// VoucherHandler 代金券管理处理器
type VoucherHandler struct {
	catalog *voucherService.CatalogService
	ledger  *voucherService.LedgerService
}

// NewVoucherHandler 创建代金券管理处理器
func NewVoucherHandler(catalog *voucherService.CatalogService, ledger *voucherService.LedgerService) *VoucherHandler {
	return &VoucherHandler{
		catalog: catalog,
		ledger:  ledger,
	}
}

// invalidateListCache 定义变更后清除公开列表缓存
func (h *VoucherHandler) invalidateListCache(c *gin.Context) {
	if cache.GetClient() == nil {
		return
	}
	if err := cache.DeleteByPattern(c.Request.Context(), cache.KeyPrefixVoucherList+"*"); err != nil {
		logger.Warn("清除代金券列表缓存失败", logger.Err(err))
	}
}

// CreateVoucher 创建代金券
// @Summary 创建代金券
// @Tags 管理-代金券
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body voucher.CreateVoucherRequest true "代金券定义"
// @Success 200 {object} response.Response{data=voucher.VoucherItem}
// @Router /api/v1/admin/vouchers [post]
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req voucherService.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	v, err := h.catalog.CreateVoucher(c.Request.Context(), &req)
	if handler.HandleError(c, err) {
		return
	}

	logger.Info("代金券已创建",
		logger.AdminID(adminID),
		logger.VoucherID(v.ID),
		logger.VoucherCode(v.Code),
	)
	h.invalidateListCache(c)
	response.Success(c, voucherService.BuildVoucherItem(v, time.Now()))
}

// UpdateVoucher 更新代金券
// @Summary 更新代金券
// @Tags 管理-代金券
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Param request body voucher.UpdateVoucherRequest true "更新字段"
// @Success 200 {object} response.Response{data=voucher.VoucherItem}
// @Router /api/v1/admin/vouchers/{id} [put]
func (h *VoucherHandler) UpdateVoucher(c *gin.Context) {
	_, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	id, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	var req voucherService.UpdateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	v, err := h.catalog.UpdateVoucher(c.Request.Context(), id, &req)
	if handler.HandleError(c, err) {
		return
	}

	h.invalidateListCache(c)
	response.Success(c, voucherService.BuildVoucherItem(v, time.Now()))
}

// GetVoucherList 获取代金券列表（管理端，含未公开和已停用）
// @Summary 获取代金券列表
// @Tags 管理-代金券
// @Produce json
// @Security Bearer
// @Param is_active query bool false "是否启用"
// @Param application_type query string false "作用范围: order/product/shipping"
// @Param keyword query string false "按编码或名称搜索"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=voucher.VoucherListResponse}
// @Router /api/v1/admin/vouchers [get]
func (h *VoucherHandler) GetVoucherList(c *gin.Context) {
	_, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	params := repository.VoucherListParams{
		Offset:          p.GetOffset(),
		Limit:           p.GetLimit(),
		ApplicationType: c.Query("application_type"),
		DiscountType:    c.Query("discount_type"),
		Keyword:         c.Query("keyword"),
	}

	if s := c.Query("is_active"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			params.IsActive = &b
		}
	}
	if s := c.Query("is_public"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			params.IsPublic = &b
		}
	}

	result, err := h.catalog.GetVoucherList(c.Request.Context(), params)
	if handler.HandleError(c, err) {
		return
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// GetVoucherDetail 获取代金券详情
// @Summary 获取代金券详情
// @Tags 管理-代金券
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Success 200 {object} response.Response{data=voucher.VoucherItem}
// @Router /api/v1/admin/vouchers/{id} [get]
func (h *VoucherHandler) GetVoucherDetail(c *gin.Context) {
	_, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	id, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	v, err := h.catalog.GetVoucherByID(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}

	response.Success(c, voucherService.BuildVoucherItem(v, time.Now()))
}

// DeactivateVoucher 停用代金券
// @Summary 停用代金券
// @Tags 管理-代金券
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/vouchers/{id}/deactivate [post]
func (h *VoucherHandler) DeactivateVoucher(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	id, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	if err := h.catalog.Deactivate(c.Request.Context(), id); handler.HandleError(c, err) {
		return
	}

	logger.Info("代金券已停用", logger.AdminID(adminID), logger.VoucherID(id))
	h.invalidateListCache(c)
	response.SuccessWithMessage(c, "已停用", nil)
}

// AssignVoucherRequest 定向发放请求
type AssignVoucherRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// AssignVoucher 定向发放代金券给用户（不受公开标记限制）
// @Summary 定向发放代金券
// @Tags 管理-代金券
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "代金券ID"
// @Param request body AssignVoucherRequest true "目标用户"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/vouchers/{id}/assign [post]
func (h *VoucherHandler) AssignVoucher(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	voucherID, ok := handler.ParseID(c, "代金券")
	if !ok {
		return
	}

	var req AssignVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请提供目标用户ID")
		return
	}

	claim, err := h.ledger.Assign(c.Request.Context(), req.UserID, voucherID, time.Now())
	if handler.HandleError(c, err) {
		return
	}

	logger.Info("代金券已定向发放",
		logger.AdminID(adminID),
		logger.VoucherID(voucherID),
		logger.UserID(req.UserID),
	)
	response.SuccessWithMessage(c, "发放成功", gin.H{
		"claim_id": claim.ID,
	})
}

// RunSweep 手动触发清理任务
// @Summary 手动触发清理任务
// @Tags 管理-代金券
// @Produce json
// @Security Bearer
// @Param task path string true "任务: deactivate/expire/purge"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/sweeps/{task}/run [post]
func (h *VoucherHandler) RunSweep(c *gin.Context) {
	_, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	var (
		rows int64
		err  error
	)
	switch task := c.Param("task"); task {
	case "deactivate":
		rows, err = h.catalog.DeactivateExpired(ctx, now)
	case "expire":
		rows, err = h.ledger.ExpireStaleClaims(ctx, now)
	case "purge":
		rows, err = h.ledger.PurgeOldExpired(ctx, now, 0)
	default:
		response.BadRequest(c, "未知任务: "+task)
		return
	}
	if handler.HandleError(c, err) {
		return
	}

	response.Success(c, gin.H{"rows": rows})
}
