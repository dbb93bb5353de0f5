package entity

// SequenceCounter 编号计数器，由存储层原子自增
type SequenceCounter struct {
	Name  string `json:"name" gorm:"primaryKey;size:64"`
	Value int64  `json:"value" gorm:"not null;default:0"`
}

func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
