package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/aurum/internal/workshop/codes"
	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/sse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService 订单服务与批量任务生成
type OrderService struct {
	orderRepo *repository.OrderRepository
	jobRepo   *repository.JobRepository
	skuRepo   *repository.SKURepository
	seqRepo   *repository.SequenceRepository
	jobSvc    *JobService
	logger    *zap.Logger
}

func NewOrderService(orderRepo *repository.OrderRepository, jobRepo *repository.JobRepository, skuRepo *repository.SKURepository, seqRepo *repository.SequenceRepository, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo: orderRepo,
		jobRepo:   jobRepo,
		skuRepo:   skuRepo,
		seqRepo:   seqRepo,
		logger:    logger,
	}
}

// SetJobService 注入任务服务（订单状态重算用）
func (s *OrderService) SetJobService(jobSvc *JobService) {
	s.jobSvc = jobSvc
}

// CreateOrderItemRequest 订单行项请求
type CreateOrderItemRequest struct {
	SKUID          string     `json:"sku_id" binding:"required"`
	Quantity       int        `json:"quantity"`
	Size           string     `json:"size"`
	Remarks        string     `json:"remarks"`
	ProductionDate *time.Time `json:"production_date"`
	DueDate        *time.Time `json:"due_date"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Type           string                   `json:"type" binding:"required"` // stock/customer
	CustomerName   string                   `json:"customer_name"`
	ProductionDate *time.Time               `json:"production_date"`
	DueDate        *time.Time               `json:"due_date"`
	Remarks        string                   `json:"remarks"`
	SaveAsDraft    bool                     `json:"save_as_draft"`
	Items          []CreateOrderItemRequest `json:"items"`
}

// CreateOrderResult 创建订单结果
type CreateOrderResult struct {
	Order       *entity.Order `json:"order"`
	JobsCreated int           `json:"jobs_created"`
}

// CreateOrder 创建订单。编号走全局原子序列；非草稿时按 行项×数量
// 展开生产任务。草稿订单不生成任务，状态保持draft直到正式下单。
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*CreateOrderResult, error) {
	for i := range req.Items {
		if req.Items[i].Quantity <= 0 {
			req.Items[i].Quantity = 1
		}
		if _, err := s.skuRepo.FindByID(ctx, req.Items[i].SKUID); err != nil {
			return nil, fmt.Errorf("sku %s: %w", req.Items[i].SKUID, err)
		}
	}

	seq, err := s.seqRepo.Next(ctx, repository.SKUSequence)
	if err != nil {
		return nil, err
	}

	status := entity.OrderStatusNew
	if req.SaveAsDraft {
		status = entity.OrderStatusDraft
	}

	order := &entity.Order{
		ID:             uuid.New().String()[:32],
		OrderCode:      codes.OrderCode(seq),
		Seq:            seq,
		Type:           req.Type,
		Status:         status,
		CustomerName:   req.CustomerName,
		ProductionDate: req.ProductionDate,
		DueDate:        req.DueDate,
		Remarks:        req.Remarks,
		CreatedBy:      userID,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, entity.OrderItem{
			ID:             uuid.New().String()[:32],
			OrderID:        order.ID,
			SKUID:          item.SKUID,
			Quantity:       item.Quantity,
			Size:           item.Size,
			Remarks:        item.Remarks,
			ProductionDate: item.ProductionDate,
			DueDate:        item.DueDate,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	jobsCreated := 0
	if !req.SaveAsDraft {
		jobs, err := s.GenerateJobs(ctx, order, order.Items)
		if err != nil {
			return nil, err
		}
		jobsCreated = len(jobs)
	}

	sse.PublishOrderUpdate(order.ID, "created")
	return &CreateOrderResult{Order: order, JobsCreated: jobsCreated}, nil
}

// GenerateJobs 按 行项×数量 展开生产任务。任务编号计数器走订单级
// 原子序列，先全部在内存构建，再单次批量写入，最后批量写初始流转记录。
// 流转记录写入失败只记日志。
func (s *OrderService) GenerateJobs(ctx context.Context, order *entity.Order, items []entity.OrderItem) ([]entity.Job, error) {
	var jobs []entity.Job
	for _, item := range items {
		prodDate := item.ProductionDate
		if prodDate == nil {
			prodDate = order.ProductionDate
		}
		dueDate := item.DueDate
		if dueDate == nil {
			dueDate = order.DueDate
		}

		for i := 0; i < item.Quantity; i++ {
			n, err := s.seqRepo.Next(ctx, repository.JobSequenceName(order.ID))
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, entity.Job{
				ID:             uuid.New().String()[:32],
				JobCode:        codes.JobCode(order.Seq, n),
				JobSeq:         n,
				OrderID:        order.ID,
				OrderItemID:    item.ID,
				SKUID:          item.SKUID,
				Size:           item.Size,
				Status:         entity.JobStatusNew,
				CurrentPhase:   entity.JobPhaseStone,
				ProductionDate: prodDate,
				DueDate:        dueDate,
			})
		}
	}

	if err := s.jobRepo.BulkCreate(ctx, jobs); err != nil {
		return nil, fmt.Errorf("failed to create jobs: %w", err)
	}

	entries := make([]entity.JobHistoryEntry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, entity.JobHistoryEntry{
			JobID:  job.ID,
			Status: entity.JobStatusNew,
			Action: "Job created",
		})
	}
	if err := s.jobRepo.BulkCreateHistory(ctx, entries); err != nil {
		s.logger.Warn("Failed to seed job history",
			zap.String("order_id", order.ID),
			zap.Int("jobs", len(jobs)),
			zap.Error(err),
		)
	}

	return jobs, nil
}

// CreateJob 向已有订单追加单个任务，编号沿用订单级序列
func (s *OrderService) CreateJob(ctx context.Context, orderID, skuID, size string) (*entity.Job, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.skuRepo.FindByID(ctx, skuID); err != nil {
		return nil, fmt.Errorf("sku %s: %w", skuID, err)
	}

	n, err := s.seqRepo.Next(ctx, repository.JobSequenceName(order.ID))
	if err != nil {
		return nil, err
	}

	job := &entity.Job{
		ID:             uuid.New().String()[:32],
		JobCode:        codes.JobCode(order.Seq, n),
		JobSeq:         n,
		OrderID:        order.ID,
		SKUID:          skuID,
		Size:           size,
		Status:         entity.JobStatusNew,
		CurrentPhase:   entity.JobPhaseStone,
		ProductionDate: order.ProductionDate,
		DueDate:        order.DueDate,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.jobRepo.AppendHistory(ctx, &entity.JobHistoryEntry{
		JobID:  job.ID,
		Status: entity.JobStatusNew,
		Action: "Job created",
	}); err != nil {
		s.logger.Warn("Failed to seed job history", zap.String("job_id", job.ID), zap.Error(err))
	}

	// 新任务可能把已完成订单拉回进行中
	if s.jobSvc != nil {
		if _, err := s.jobSvc.RecomputeOrderStatus(ctx, order.ID); err != nil {
			s.logger.Warn("Failed to recompute order status", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	return job, nil
}

// GetOrder 订单详情
func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// ListOrders 订单列表
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	return s.orderRepo.FindAll(ctx, page, pageSize, filters)
}

// DeleteOrder 删除订单，级联删除行项
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.orderRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.orderRepo.Delete(ctx, id)
}
