package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/sse"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JobService 任务环节状态机与订单状态聚合
type JobService struct {
	jobRepo   *repository.JobRepository
	orderRepo *repository.OrderRepository
	rdb       *redis.Client
	logger    *zap.Logger
}

func NewJobService(jobRepo *repository.JobRepository, orderRepo *repository.OrderRepository, rdb *redis.Client, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		jobRepo:   jobRepo,
		orderRepo: orderRepo,
		rdb:       rdb,
		logger:    logger,
	}
}

// AdvancePhaseRequest 环节提交请求
type AdvancePhaseRequest struct {
	Phase   string       `json:"phase" binding:"required"`
	Payload entity.JSONB `json:"payload"`
}

// transition 环节提交 → (结果状态, 下一环节)
type transition struct {
	status    string
	nextPhase string
}

// 固定流转表；quality_check按payload.passed分叉，在resolveTransition内处理
var phaseTransitions = map[string]transition{
	entity.JobPhaseStone:        {entity.JobStatusStoneSelected, entity.JobPhaseDiamond},
	entity.JobPhaseDiamond:      {entity.JobStatusDiamondSelected, entity.JobPhaseManufacturer},
	entity.JobPhaseManufacturer: {entity.JobStatusSentToManufacturer, entity.JobPhaseQualityCheck},
	entity.JobPhaseComplete:     {entity.JobStatusCompleted, entity.JobPhaseComplete},
}

// 任务状态→订单状态映射；任何非new状态都视为订单进行中
var jobStatusToOrderStatus = map[string]string{
	entity.JobStatusNew:                entity.OrderStatusNew,
	entity.JobStatusStoneSelected:      entity.OrderStatusPending,
	entity.JobStatusDiamondSelected:    entity.OrderStatusPending,
	entity.JobStatusSentToManufacturer: entity.OrderStatusPending,
	entity.JobStatusQCPassed:           entity.OrderStatusPending,
	entity.JobStatusQCFailed:           entity.OrderStatusPending,
	entity.JobStatusCompleted:          entity.OrderStatusPending,
}

func resolveTransition(phase string, payload entity.JSONB) (transition, error) {
	if phase == entity.JobPhaseQualityCheck {
		passed, ok := payload["passed"].(bool)
		if !ok {
			return transition{}, fmt.Errorf("%w: quality check payload requires passed", ErrValidationFailed)
		}
		if passed {
			return transition{entity.JobStatusQCPassed, entity.JobPhaseComplete}, nil
		}
		// 质检不通过回到工厂环节，可重复返工，无次数上限
		return transition{entity.JobStatusQCFailed, entity.JobPhaseManufacturer}, nil
	}
	t, ok := phaseTransitions[phase]
	if !ok {
		return transition{}, fmt.Errorf("%w: %s", ErrInvalidPhase, phase)
	}
	return t, nil
}

// stripNoneAllocations 过滤lot_number为"None"的占位配料行；
// 入参不修改，返回过滤后的副本。
func stripNoneAllocations(payload entity.JSONB) entity.JSONB {
	if payload == nil {
		return nil
	}
	cleaned := make(entity.JSONB, len(payload))
	for k, v := range payload {
		cleaned[k] = v
	}
	rows, ok := cleaned["allocations"].([]interface{})
	if !ok {
		return cleaned
	}
	kept := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]interface{}); ok {
			if lot, _ := m["lot_number"].(string); lot == "None" {
				continue
			}
		}
		kept = append(kept, row)
	}
	cleaned["allocations"] = kept
	return cleaned
}

// AdvancePhase 推进任务到下一环节。
// 主写是任务行本身，失败即整体失败；流转记录、订单状态重算、
// 缓存失效均为尽力而为，失败只记日志不回滚。
func (s *JobService) AdvancePhase(ctx context.Context, jobID, userID string, req *AdvancePhaseRequest) (*entity.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	t, err := resolveTransition(req.Phase, req.Payload)
	if err != nil {
		return nil, err
	}

	// 提交环节必须与任务当前环节一致，防止越序提交
	if req.Phase != job.CurrentPhase {
		return nil, fmt.Errorf("%w: job is at %s, got %s", ErrPhaseConflict, job.CurrentPhase, req.Phase)
	}

	job.Status = t.status
	job.CurrentPhase = t.nextPhase
	switch req.Phase {
	case entity.JobPhaseStone:
		job.StoneData = stripNoneAllocations(req.Payload)
	case entity.JobPhaseDiamond:
		job.DiamondData = stripNoneAllocations(req.Payload)
	case entity.JobPhaseManufacturer:
		job.ManufacturerData = req.Payload
	case entity.JobPhaseQualityCheck:
		job.QCData = req.Payload
	}

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job transition: %w", err)
	}

	// 流转记录保存完整提交数据（未过滤），作为审计回放日志
	history := &entity.JobHistoryEntry{
		JobID:     job.ID,
		Status:    job.Status,
		Action:    fmt.Sprintf("Completed %s", req.Phase),
		Payload:   req.Payload,
		CreatedBy: userID,
	}
	if err := s.jobRepo.AppendHistory(ctx, history); err != nil {
		s.logger.Warn("Failed to append job history",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}

	if _, err := s.RecomputeOrderStatus(ctx, job.OrderID); err != nil {
		s.logger.Warn("Failed to recompute order status",
			zap.String("order_id", job.OrderID),
			zap.Error(err),
		)
	}

	s.invalidateCache(ctx, job.OrderID, job.ID)
	sse.PublishJobUpdate(job.OrderID, job.ID, job.Status)

	return job, nil
}

// RecomputeOrderStatus 由全部子任务状态重算订单状态。
// 不做增量维护，每次全量重算，并发重算幂等收敛。
func (s *JobService) RecomputeOrderStatus(ctx context.Context, orderID string) (string, error) {
	jobs, err := s.jobRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	status := aggregateStatus(jobs)

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		// 订单状态是派生投影，持久化失败不上抛
		s.logger.Warn("Failed to persist recomputed order status",
			zap.String("order_id", orderID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
	sse.PublishOrderUpdate(orderID, "status_recomputed")
	return status, nil
}

// aggregateStatus 订单状态 = 子任务状态集合的纯函数
func aggregateStatus(jobs []entity.Job) string {
	if len(jobs) == 0 {
		// 空集不视为全部完成
		return entity.OrderStatusNew
	}
	allCompleted := true
	anyPending := false
	for _, j := range jobs {
		if j.Status != entity.JobStatusCompleted {
			allCompleted = false
		}
		if jobStatusToOrderStatus[j.Status] == entity.OrderStatusPending {
			anyPending = true
		}
	}
	if allCompleted {
		return entity.OrderStatusCompleted
	}
	if anyPending {
		return entity.OrderStatusPending
	}
	return entity.OrderStatusNew
}

// invalidateCache 删除订单/任务读视图缓存，失败只记日志
func (s *JobService) invalidateCache(ctx context.Context, orderID, jobID string) {
	if s.rdb == nil {
		return
	}
	keys := []string{
		"aurum:order:" + orderID,
		"aurum:job:" + jobID,
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("Failed to invalidate read cache",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}

// GetJob 任务详情
func (s *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	return s.jobRepo.FindByID(ctx, id)
}

// GetJobByCode 按展示编号取任务
func (s *JobService) GetJobByCode(ctx context.Context, code string) (*entity.Job, error) {
	return s.jobRepo.FindByCode(ctx, code)
}

// ListJobs 任务列表
func (s *JobService) ListJobs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Job, int64, error) {
	return s.jobRepo.FindAll(ctx, page, pageSize, filters)
}

// ListJobHistory 任务流转记录
func (s *JobService) ListJobHistory(ctx context.Context, jobID string) ([]entity.JobHistoryEntry, error) {
	if _, err := s.jobRepo.FindByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobRepo.FindHistoryByJob(ctx, jobID)
}
