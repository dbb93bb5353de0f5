package entity

import "time"

// Job 生产任务（订单行项 × 数量展开，每件独立走完整生产流程）
type Job struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	JobCode string `json:"job_code" gorm:"size:32;uniqueIndex;not null"` // J0042-3
	JobSeq  int64  `json:"job_seq" gorm:"not null"`                      // 订单内序号，从1起

	OrderID     string `json:"order_id" gorm:"size:32;not null;index"`
	OrderItemID string `json:"order_item_id" gorm:"size:32;not null;index"`
	SKUID       string `json:"sku_id" gorm:"size:32;not null;index"`
	Size        string `json:"size" gorm:"size:20"`

	Status       string `json:"status" gorm:"size:30;default:new"`          // 状态机
	CurrentPhase string `json:"current_phase" gorm:"size:20;default:stone"` // 当前待提交环节

	// 各环节数据，每环节写入一次，互不合并
	StoneData        JSONB `json:"stone_data" gorm:"type:jsonb"`
	DiamondData      JSONB `json:"diamond_data" gorm:"type:jsonb"`
	ManufacturerData JSONB `json:"manufacturer_data" gorm:"type:jsonb"`
	QCData           JSONB `json:"qc_data" gorm:"type:jsonb"`

	ProductionDate *time.Time `json:"production_date"`
	DueDate        *time.Time `json:"due_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SKU *SKU `json:"sku,omitempty" gorm:"foreignKey:SKUID"`
}

func (Job) TableName() string {
	return "jobs"
}

// 任务状态
const (
	JobStatusNew                = "new"
	JobStatusStoneSelected      = "stone_selected"
	JobStatusDiamondSelected    = "diamond_selected"
	JobStatusSentToManufacturer = "sent_to_manufacturer"
	JobStatusQCPassed           = "qc_passed"
	JobStatusQCFailed           = "qc_failed"
	JobStatusCompleted          = "completed"
)

// 任务环节
const (
	JobPhaseStone        = "stone"
	JobPhaseDiamond      = "diamond"
	JobPhaseManufacturer = "manufacturer"
	JobPhaseQualityCheck = "quality_check"
	JobPhaseComplete     = "complete"
)

// JobHistoryEntry 任务流转记录，只追加不修改
type JobHistoryEntry struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	JobID   string `json:"job_id" gorm:"size:32;not null;index"`
	Status  string `json:"status" gorm:"size:30;not null"`
	Action  string `json:"action" gorm:"size:100;not null"` // "Job created" / "Completed stone" 等
	Payload JSONB  `json:"payload" gorm:"type:jsonb"`       // 提交的完整环节数据

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (JobHistoryEntry) TableName() string {
	return "job_histories"
}
