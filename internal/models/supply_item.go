package models

import "time"

// SupplyItem: a trackable consumable (cartridge, toner, paper...) with a
// current quantity and a reorder threshold.
type SupplyItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Type        string    `gorm:"size:50;not null;index" json:"type"` // free-form category, e.g. "cartridge"
	Model       string    `gorm:"size:100" json:"model"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	MinQuantity int       `gorm:"not null;default:0" json:"min_quantity"` // reorder threshold
	Unit        string    `gorm:"size:20;not null" json:"unit"`           // pcs, box, pack...
	Location    string    `gorm:"size:100" json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type StockStatus string

const (
	StockStatusOut StockStatus = "out_of_stock"
	StockStatusLow StockStatus = "low"
	StockStatusIn  StockStatus = "in_stock"
)

// LowStockCond is the SQL predicate behind the low-stock listing and the
// dashboard low_stock_count. Must stay in sync with StockStatusOf.
const LowStockCond = "quantity <= min_quantity"

// StockStatusOf is the canonical three-way stock classification shared by
// the supply listing and the dashboard counts.
func StockStatusOf(quantity, minQuantity int) StockStatus {
	switch {
	case quantity == 0:
		return StockStatusOut
	case quantity <= minQuantity:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}
