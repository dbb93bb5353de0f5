package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrAllocationUnavailable 计数器不可用；调用方不得本地猜测编号
	ErrAllocationUnavailable = errors.New("sequence counter unavailable")
)

// Repositories 车间仓库集合
type Repositories struct {
	Order    *OrderRepository
	Job      *JobRepository
	SKU      *SKURepository
	Sequence *SequenceRepository
}

// NewRepositories 创建车间仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:    NewOrderRepository(db),
		Job:      NewJobRepository(db),
		SKU:      NewSKURepository(db),
		Sequence: NewSequenceRepository(db),
	}
}
