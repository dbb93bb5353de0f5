package entity

import "time"

// Order 定制首饰生产订单
type Order struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	OrderCode string `json:"order_code" gorm:"size:32;uniqueIndex;not null"` // O-0042
	Seq       int64  `json:"seq" gorm:"not null"`                           // 全局序列号
	Type      string `json:"type" gorm:"size:20;not null"`                  // stock/customer
	Status    string `json:"status" gorm:"size:20;default:new"`             // draft/new/pending/completed

	CustomerName string `json:"customer_name" gorm:"size:200"`

	// 交期
	ProductionDate *time.Time `json:"production_date"`
	DueDate        *time.Time `json:"due_date"`

	Remarks   string    `json:"remarks" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Jobs  []Job       `json:"jobs,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// 订单类型
const (
	OrderTypeStock    = "stock"
	OrderTypeCustomer = "customer"
)

// 订单状态
const (
	OrderStatusDraft     = "draft"
	OrderStatusNew       = "new"
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// OrderItem 订单行项
type OrderItem struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	OrderID  string `json:"order_id" gorm:"size:32;not null;index"`
	SKUID    string `json:"sku_id" gorm:"size:32;not null;index"`
	Quantity int    `json:"quantity" gorm:"not null;default:1"`
	Size     string `json:"size" gorm:"size:20"`
	Remarks  string `json:"remarks" gorm:"type:text"`

	// 行项级交期覆盖（为空时继承订单默认）
	ProductionDate *time.Time `json:"production_date"`
	DueDate        *time.Time `json:"due_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SKU *SKU `json:"sku,omitempty" gorm:"foreignKey:SKUID"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
