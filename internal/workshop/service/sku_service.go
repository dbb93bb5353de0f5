package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/aurum/internal/workshop/codes"
	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/google/uuid"
)

// SKUService SKU服务
type SKUService struct {
	repo    *repository.SKURepository
	seqRepo *repository.SequenceRepository
}

func NewSKUService(repo *repository.SKURepository, seqRepo *repository.SequenceRepository) *SKUService {
	return &SKUService{repo: repo, seqRepo: seqRepo}
}

// CreateSKURequest 创建SKU请求
type CreateSKURequest struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Collection  string   `json:"collection"`
	Size        string   `json:"size"`
	GoldType    string   `json:"gold_type"`
	GoldColor   string   `json:"gold_color"`
	WeightGrams *float64 `json:"weight_grams"`
	ImageURL    string   `json:"image_url"`
}

// CreateSKU 创建SKU，编号取自全局原子序列
func (s *SKUService) CreateSKU(ctx context.Context, userID string, req *CreateSKURequest) (*entity.SKU, error) {
	seq, err := s.seqRepo.Next(ctx, repository.SKUSequence)
	if err != nil {
		return nil, err
	}

	sku := &entity.SKU{
		ID:          uuid.New().String()[:32],
		SKUCode:     codes.SKUCode(seq, req.Category),
		Seq:         seq,
		Name:        req.Name,
		Category:    req.Category,
		Collection:  req.Collection,
		Size:        req.Size,
		GoldType:    req.GoldType,
		GoldColor:   req.GoldColor,
		WeightGrams: req.WeightGrams,
		ImageURL:    req.ImageURL,
		CreatedBy:   userID,
	}
	if err := s.repo.Create(ctx, sku); err != nil {
		return nil, fmt.Errorf("failed to create sku: %w", err)
	}
	return sku, nil
}

// NextNumber 取下一个SKU序号（消耗序列）
func (s *SKUService) NextNumber(ctx context.Context) (int64, error) {
	return s.seqRepo.Next(ctx, repository.SKUSequence)
}

// PeekNextNumber 预览下一个SKU序号，不消耗，仅供UI展示
func (s *SKUService) PeekNextNumber(ctx context.Context) (int64, error) {
	return s.seqRepo.Peek(ctx, repository.SKUSequence)
}

// GetSKU SKU详情
func (s *SKUService) GetSKU(ctx context.Context, id string) (*entity.SKU, error) {
	return s.repo.FindByID(ctx, id)
}

// ListSKUs SKU列表
func (s *SKUService) ListSKUs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SKU, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}
