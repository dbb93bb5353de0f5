package service

import (
	"errors"

	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrInvalidPhase 环节名不在状态机支持范围内
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrPhaseConflict 提交环节与任务当前环节不一致
	ErrPhaseConflict = errors.New("submitted phase does not match job's current phase")
	// ErrValidationFailed 环节数据缺少必填字段
	ErrValidationFailed = errors.New("phase payload validation failed")
)

// Services 服务集合
type Services struct {
	Order *OrderService
	Job   *JobService
	SKU   *SKUService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *Services {
	jobSvc := NewJobService(repos.Job, repos.Order, rdb, logger)
	orderSvc := NewOrderService(repos.Order, repos.Job, repos.SKU, repos.Sequence, logger)
	orderSvc.SetJobService(jobSvc)

	return &Services{
		Order: orderSvc,
		Job:   jobSvc,
		SKU:   NewSKUService(repos.SKU, repos.Sequence),
	}
}
