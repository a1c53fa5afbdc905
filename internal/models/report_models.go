package models

// InventoryReportItem is one row of the inventory valuation report.
type InventoryReportItem struct {
	StockItemID      string   `json:"stock_item_id"`
	Name             string   `json:"name"`
	Quantity         float64  `json:"quantity"`
	Unit             string   `json:"unit"`
	BaseQuantity     float64  `json:"base_quantity"`
	BaseUnit         string   `json:"base_unit"`
	PricePerBaseUnit float64  `json:"price_per_base_unit"`
	Value            string   `json:"value"` // Money, 2 decimal places
	ReorderThreshold *float64 `json:"reorder_threshold,omitempty"`
	Status           string   `json:"status"` // "In Stock", "Low Stock", "Out of Stock"
}

// InventoryReport summarises stock on hand.
type InventoryReport struct {
	Items         []InventoryReportItem `json:"items"`
	TotalValue    string                `json:"total_value"`
	LowStockCount int                   `json:"low_stock_count"`
}
