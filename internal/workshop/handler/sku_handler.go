package handler

import (
	"errors"

	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/service"
	"github.com/gin-gonic/gin"
)

// SKUHandler SKU处理器
type SKUHandler struct {
	svc *service.SKUService
}

func NewSKUHandler(svc *service.SKUService) *SKUHandler {
	return &SKUHandler{svc: svc}
}

// CreateSKU 创建SKU
// POST /api/v1/skus
func (h *SKUHandler) CreateSKU(c *gin.Context) {
	var req service.CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	sku, err := h.svc.CreateSKU(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, repository.ErrAllocationUnavailable) {
			ServiceUnavailable(c, "编号服务不可用，请稍后重试")
			return
		}
		InternalError(c, "创建SKU失败: "+err.Error())
		return
	}

	Created(c, sku)
}

// ListSKUs SKU列表
// GET /api/v1/skus?category=xxx&collection=xxx&search=xxx
func (h *SKUHandler) ListSKUs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"category":   c.Query("category"),
		"collection": c.Query("collection"),
		"search":     c.Query("search"),
	}

	items, total, err := h.svc.ListSKUs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取SKU列表失败: "+err.Error())
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

// GetSKU SKU详情
// GET /api/v1/skus/:id
func (h *SKUHandler) GetSKU(c *gin.Context) {
	sku, err := h.svc.GetSKU(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "SKU不存在")
		return
	}
	Success(c, sku)
}

// NextNumber 取下一个SKU序号（消耗）
// GET /api/v1/skus/next-number
func (h *SKUHandler) NextNumber(c *gin.Context) {
	n, err := h.svc.NextNumber(c.Request.Context())
	if err != nil {
		ServiceUnavailable(c, "编号服务不可用，请稍后重试")
		return
	}
	Success(c, gin.H{"next_number": n})
}

// PeekNextNumber 预览下一个SKU序号，不消耗；结果仅供展示
// GET /api/v1/skus/next-number/preview
func (h *SKUHandler) PeekNextNumber(c *gin.Context) {
	n, err := h.svc.PeekNextNumber(c.Request.Context())
	if err != nil {
		ServiceUnavailable(c, "编号服务不可用，请稍后重试")
		return
	}
	Success(c, gin.H{"next_number": n})
}
