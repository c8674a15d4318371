package postgres

import "time"

// ClosedOrderRecord is one journaled close notification. ExternalID is the
// downstream ticket decoded from the order comment.
type ClosedOrderRecord struct {
	ID uint `gorm:"primaryKey"`

	ExternalID int64 `gorm:"not null;uniqueIndex:idx_closed_order_external_id"`

	ClosePrice float64 `gorm:"type:numeric;not null"`
	Volume     float64 `gorm:"type:numeric;not null"`

	ClosedAt time.Time `gorm:"not null;index:idx_closed_order_closed_at"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (ClosedOrderRecord) TableName() string {
	return "closed_order_record"
}
