package handler

import (
	"errors"

	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/service"
	"github.com/gin-gonic/gin"
)

// JobHandler 生产任务处理器
type JobHandler struct {
	svc *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// ListJobs 任务列表
// GET /api/v1/jobs?order_id=xxx&status=xxx&phase=xxx&search=xxx
func (h *JobHandler) ListJobs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"order_id": c.Query("order_id"),
		"status":   c.Query("status"),
		"phase":    c.Query("phase"),
		"search":   c.Query("search"),
	}

	items, total, err := h.svc.ListJobs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取任务列表失败: "+err.Error())
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

// GetJob 任务详情
// GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.svc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "任务不存在")
		return
	}
	Success(c, job)
}

// GetJobHistory 任务流转记录
// GET /api/v1/jobs/:id/history
func (h *JobHandler) GetJobHistory(c *gin.Context) {
	entries, err := h.svc.ListJobHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "任务不存在")
			return
		}
		InternalError(c, "获取流转记录失败: "+err.Error())
		return
	}
	Success(c, entries)
}

// AdvancePhase 提交环节数据，推进任务状态
// POST /api/v1/jobs/:id/advance
func (h *JobHandler) AdvancePhase(c *gin.Context) {
	var req service.AdvancePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.svc.AdvancePhase(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "任务不存在")
		case errors.Is(err, service.ErrInvalidPhase):
			BadRequest(c, "不支持的环节: "+req.Phase)
		case errors.Is(err, service.ErrValidationFailed):
			BadRequest(c, "环节数据不完整: "+err.Error())
		case errors.Is(err, service.ErrPhaseConflict):
			Conflict(c, "环节与任务当前进度不符: "+err.Error())
		default:
			InternalError(c, "提交环节失败: "+err.Error())
		}
		return
	}

	Success(c, gin.H{
		"job":           job,
		"status":        job.Status,
		"current_phase": job.CurrentPhase,
	})
}
