package models

import "time"

const (
	OrderStatusCompleted = "completed" // every line cooked
	OrderStatusPartial   = "partial"   // some lines short on stock
	OrderStatusRejected  = "rejected"  // no line could be cooked
)

// Order is a point-of-sale ticket. Each line cooks its recipe for Quantity servings.
type Order struct {
	ID        string      `json:"id" db:"id"`
	Status    string      `json:"status" db:"status"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
	Lines     []OrderLine `json:"lines"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// OrderLine is a single recipe on an order.
type OrderLine struct {
	ID         string  `json:"id" db:"id"`
	OrderID    string  `json:"order_id" db:"order_id"`
	RecipeID   string  `json:"recipe_id" db:"recipe_id"`
	RecipeName string  `json:"recipe_name" db:"recipe_name"`
	Quantity   float64 `json:"quantity" db:"quantity"`
	Cooked     bool    `json:"cooked" db:"cooked"`

	Shortages []ShortageEntry `json:"shortages,omitempty" db:"shortages"` // Stored as a JSON array
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	Status   *string `form:"status"`
	Date     *string `form:"date"` // Expected format YYYY-MM-DD
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}
