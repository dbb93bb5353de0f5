package handler

import (
	"errors"

	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// CreateOrder 创建订单
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.CreateOrder(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "SKU不存在: "+err.Error())
		case errors.Is(err, repository.ErrAllocationUnavailable):
			ServiceUnavailable(c, "编号服务不可用，请稍后重试")
		default:
			InternalError(c, "创建订单失败: "+err.Error())
		}
		return
	}

	Created(c, result)
}

// ListOrders 订单列表
// GET /api/v1/orders?status=xxx&type=xxx&search=xxx
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"type":   c.Query("type"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.ListOrders(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// GetOrder 订单详情
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "订单不存在")
		return
	}
	Success(c, order)
}

// DeleteOrder 删除订单
// DELETE /api/v1/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	err := h.svc.DeleteOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		InternalError(c, "删除订单失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// CreateJobRequest 追加任务请求
type CreateJobRequest struct {
	SKUID string `json:"sku_id" binding:"required"`
	Size  string `json:"size"`
}

// CreateJob 向订单追加单个任务
// POST /api/v1/orders/:id/jobs
func (h *OrderHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), c.Param("id"), req.SKUID, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "订单或SKU不存在")
		case errors.Is(err, repository.ErrAllocationUnavailable):
			ServiceUnavailable(c, "编号服务不可用，请稍后重试")
		default:
			InternalError(c, "创建任务失败: "+err.Error())
		}
		return
	}

	Created(c, job)
}
