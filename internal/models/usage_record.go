package models

import "time"

// UsageRecord: an immutable ledger entry of consumption. Append-only,
// never updated or deleted; SupplyID is a weak reference and may outlive
// the supply itself.
type UsageRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SupplyID     uint      `gorm:"index;not null" json:"supply_id"`
	QuantityUsed int       `gorm:"not null" json:"quantity_used"`
	UsedBy       string    `gorm:"size:100;not null" json:"used_by"`
	Department   string    `gorm:"size:100;not null;index" json:"department"`
	Purpose      string    `gorm:"size:255" json:"purpose,omitempty"`
	UsedAt       time.Time `gorm:"index;not null" json:"used_at"`
}
