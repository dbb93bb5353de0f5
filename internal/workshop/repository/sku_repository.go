package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"gorm.io/gorm"
)

// SKURepository SKU仓库
type SKURepository struct {
	db *gorm.DB
}

func NewSKURepository(db *gorm.DB) *SKURepository {
	return &SKURepository{db: db}
}

// FindAll 查询SKU列表
func (r *SKURepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SKU, int64, error) {
	var items []entity.SKU
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SKU{})

	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if collection := filters["collection"]; collection != "" {
		query = query.Where("collection = ?", collection)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("sku_code LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找SKU
func (r *SKURepository) FindByID(ctx context.Context, id string) (*entity.SKU, error) {
	var sku entity.SKU
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sku).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sku, nil
}

// Create 创建SKU
func (r *SKURepository) Create(ctx context.Context, sku *entity.SKU) error {
	return r.db.WithContext(ctx).Create(sku).Error
}

// Update 更新SKU
func (r *SKURepository) Update(ctx context.Context, sku *entity.SKU) error {
	return r.db.WithContext(ctx).Save(sku).Error
}
