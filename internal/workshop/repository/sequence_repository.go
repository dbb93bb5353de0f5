package repository

import (
	"context"
	"fmt"

	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"gorm.io/gorm"
)

// SKUSequence 订单与SKU共用的全局序列名
const SKUSequence = "sku_number"

// JobSequenceName 订单内任务计数器序列名
func JobSequenceName(orderID string) string {
	return "jobs:" + orderID
}

// SequenceRepository 编号计数器仓库
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next 原子取下一个序号。单条UPSERT自增，并发调用不会取到重复值；
// 不允许在应用层做"读最大值+1"。
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO sequence_counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		 RETURNING value`, name).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAllocationUnavailable, err)
	}
	return value, nil
}

// Peek 预览下一个序号，不消耗。仅供UI展示，结果不具权威性。
func (r *SequenceRepository) Peek(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).
		Model(&entity.SequenceCounter{}).
		Where("name = ?", name).
		Select("COALESCE(MAX(value), 0)").
		Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAllocationUnavailable, err)
	}
	return value + 1, nil
}
