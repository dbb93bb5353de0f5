package entity

import "time"

// SKU 产品SKU，生命周期独立于订单/任务
type SKU struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	SKUCode string `json:"sku_code" gorm:"size:32;uniqueIndex;not null"` // RG-0042
	Seq     int64  `json:"seq" gorm:"not null"`

	Name       string `json:"name" gorm:"size:200;not null"`
	Category   string `json:"category" gorm:"size:50;not null;index"` // ring/necklace/bracelet/...
	Collection string `json:"collection" gorm:"size:100"`
	Size       string `json:"size" gorm:"size:20"`

	// 材质属性
	GoldType    string   `json:"gold_type" gorm:"size:20"`  // 18K/14K/22K
	GoldColor   string   `json:"gold_color" gorm:"size:20"` // yellow/white/rose
	WeightGrams *float64 `json:"weight_grams" gorm:"type:decimal(10,2)"`

	ImageURL string `json:"image_url" gorm:"size:500"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SKU) TableName() string {
	return "skus"
}
