package models

import "time"

// StockItem is an ingredient or supply kept in inventory.
type StockItem struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name" binding:"required"`
	Quantity         float64   `json:"quantity" db:"quantity"`                             // In the item's native unit
	Unit             string    `json:"unit" db:"unit" binding:"required"`                  // e.g., g, kg, ml, l, each
	TotalCost        float64   `json:"total_cost" db:"total_cost"`                         // Cost of the quantity on hand
	PricePerBaseUnit float64   `json:"price_per_base_unit" db:"price_per_base_unit"`       // Derived from TotalCost and Quantity
	ReorderThreshold *float64  `json:"reorder_threshold,omitempty" db:"reorder_threshold"` // Base units of the unit's family
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// StockItemUpdate carries the fields to change on a stock item. Nil fields are left untouched.
type StockItemUpdate struct {
	Name             *string
	Quantity         *float64
	Unit             *string
	TotalCost        *float64
	PricePerBaseUnit *float64
	ReorderThreshold *float64
	ClearThreshold   bool
}

// InventoryMovement records a change in stock for an item.
type InventoryMovement struct {
	ID              string     `json:"id" db:"id"`
	StockItemID     string     `json:"stock_item_id" db:"stock_item_id" binding:"required"`
	MovementType    string     `json:"movement_type" db:"movement_type"` // cook, adjustment, restock
	QuantityChanged float64    `json:"quantity_changed" db:"quantity_changed"`
	Reason          *string    `json:"reason,omitempty" db:"reason"`
	ReferenceID     *string    `json:"reference_id,omitempty" db:"reference_id"` // Recipe or order that caused the movement
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	StockItem       *StockItem `json:"stock_item,omitempty"`
}

// MovementFilters narrows a movement listing.
type MovementFilters struct {
	StockItemID  *string `form:"stock_item_id"`
	MovementType *string `form:"movement_type"`
	Page         int     `form:"page"`
	PageSize     int     `form:"page_size"`
}

// NewNullString is a helper for string pointers, returning nil if string is empty.
func NewNullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
