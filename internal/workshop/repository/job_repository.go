package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRepository 生产任务仓库
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// FindAll 查询任务列表
func (r *JobRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Job, int64, error) {
	var items []entity.Job
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Job{})

	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if phase := filters["phase"]; phase != "" {
		query = query.Where("current_phase = ?", phase)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("job_code LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("SKU").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找任务
func (r *JobRepository) FindByID(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindByCode 根据展示编号查找任务
func (r *JobRepository) FindByCode(ctx context.Context, code string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("job_code = ?", code).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindByOrder 查询订单下全部任务
func (r *JobRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("job_seq ASC").
		Find(&jobs).Error
	return jobs, err
}

// Create 创建单个任务
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// BulkCreate 批量创建任务（单次写入）
func (r *JobRepository) BulkCreate(ctx context.Context, jobs []entity.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&jobs).Error
}

// Update 更新任务
func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// AppendHistory 追加一条流转记录，插入后不再修改
func (r *JobRepository) AppendHistory(ctx context.Context, h *entity.JobHistoryEntry) error {
	if h.ID == "" {
		h.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(h).Error
}

// BulkCreateHistory 批量追加流转记录
func (r *JobRepository) BulkCreateHistory(ctx context.Context, entries []entity.JobHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.New().String()[:32]
		}
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindHistoryByJob 查询任务流转记录，按时间正序
func (r *JobRepository) FindHistoryByJob(ctx context.Context, jobID string) ([]entity.JobHistoryEntry, error) {
	var entries []entity.JobHistoryEntry
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
