package models

import "time"

// RecipeIngredient references a stock item by id. The reference is weak: it may be
// empty (name only) or point at an item that no longer exists.
type RecipeIngredient struct {
	ID          string  `json:"id,omitempty" db:"id"`
	StockItemID *string `json:"stock_item_id,omitempty" db:"stock_item_id"`
	Name        string  `json:"name" db:"name" binding:"required"`
	Quantity    float64 `json:"quantity" db:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit" db:"unit" binding:"required"`
	Position    int     `json:"position" db:"position"`
}

// Recipe is a dish with an ordered ingredient list. TotalCost is cached when the
// recipe is saved and is not re-derived afterwards.
type Recipe struct {
	ID           string             `json:"id" db:"id"`
	Name         string             `json:"name" db:"name"`
	DishType     string             `json:"dish_type" db:"dish_type"`
	Instructions string             `json:"instructions" db:"instructions"`
	Ingredients  []RecipeIngredient `json:"ingredients"`
	TotalCost    float64            `json:"total_cost" db:"total_cost"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}
