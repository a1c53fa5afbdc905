package services

import (
	"context"
	"fmt"

	"kitchen_backoffice/internal/costing"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/internal/units"

	"github.com/shopspring/decimal"
)

const (
	StockStatusInStock    = "In Stock"
	StockStatusLowStock   = "Low Stock"
	StockStatusOutOfStock = "Out of Stock"
)

// ReportService builds read-only summaries of the inventory.
type ReportService interface {
	GetInventoryReport(ctx context.Context, lowStockOnly bool) (*models.InventoryReport, error)
}

type reportService struct {
	itemRepo repositories.StockItemRepository
}

// NewReportService creates a new instance of ReportService.
func NewReportService(ir repositories.StockItemRepository) ReportService {
	return &reportService{itemRepo: ir}
}

// StockStatus classifies an item against its reorder threshold.
func StockStatus(item models.StockItem) string {
	if item.Quantity <= 0 {
		return StockStatusOutOfStock
	}
	if item.ReorderThreshold != nil && costing.Round3(units.ToBaseQuantity(item.Quantity, item.Unit)) <= *item.ReorderThreshold {
		return StockStatusLowStock
	}
	return StockStatusInStock
}

// GetInventoryReport values every item at quantity * price per base unit. The price
// is re-derived from total cost with the same formula used when items are saved.
func (s *reportService) GetInventoryReport(ctx context.Context, lowStockOnly bool) (*models.InventoryReport, error) {
	items, err := s.itemRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock items for report: %w", err)
	}

	report := &models.InventoryReport{Items: []models.InventoryReportItem{}}
	total := decimal.Zero
	for _, item := range items {
		status := StockStatus(item)
		if status != StockStatusInStock {
			report.LowStockCount++
		}
		if lowStockOnly && status == StockStatusInStock {
			continue
		}

		baseQty := units.ToBaseQuantity(item.Quantity, item.Unit)
		ppu := item.PricePerBaseUnit
		if item.Quantity > 0 {
			ppu = costing.PricePerBaseUnit(item.TotalCost, item.Quantity, item.Unit)
		}
		value := costing.Money(baseQty * ppu)
		total = total.Add(value)

		report.Items = append(report.Items, models.InventoryReportItem{
			StockItemID:      item.ID,
			Name:             item.Name,
			Quantity:         item.Quantity,
			Unit:             item.Unit,
			BaseQuantity:     costing.Round3(baseQty),
			BaseUnit:         units.BaseUnit(item.Unit),
			PricePerBaseUnit: ppu,
			Value:            value.StringFixed(2),
			ReorderThreshold: item.ReorderThreshold,
			Status:           status,
		})
	}
	report.TotalValue = total.StringFixed(2)
	return report, nil
}
