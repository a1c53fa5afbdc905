package costing

import (
	"math"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/units"
	"kitchen_backoffice/pkg/utils"

	"github.com/shopspring/decimal"
)

// PricePerBaseUnit returns the cost of one base unit (gram, milliliter, each) of a
// batch of quantity `unit` that cost totalCost. A zero or non-finite denominator
// is treated as 1, so the result degrades to totalCost.
func PricePerBaseUnit(totalCost, quantity float64, unit string) float64 {
	denominator := units.ToBaseQuantity(quantity, unit)
	if denominator == 0 || math.IsNaN(denominator) || math.IsInf(denominator, 0) {
		utils.LogWarn("Price per base unit computed with fallback denominator 1", map[string]interface{}{
			"total_cost": totalCost,
			"quantity":   quantity,
			"unit":       unit,
		})
		denominator = 1
	}
	return totalCost / denominator
}

// RecipeCost sums base quantity * price per base unit over the ingredients that
// resolve to a stock item in index. Unresolved ingredients, ingredients whose unit
// is not compatible with the item, and non-finite terms contribute zero.
func RecipeCost(ingredients []models.RecipeIngredient, index map[string]models.StockItem) float64 {
	total := 0.0
	for _, ing := range ingredients {
		if ing.StockItemID == nil {
			continue
		}
		item, ok := index[*ing.StockItemID]
		if !ok {
			continue
		}
		if !units.Compatible(ing.Unit, item.Unit) {
			continue
		}
		term := units.ToBaseQuantity(ing.Quantity, ing.Unit) * item.PricePerBaseUnit
		if math.IsNaN(term) || math.IsInf(term, 0) {
			continue
		}
		total += term
	}
	return total
}

// Round3 rounds x half away from zero to 3 decimal places.
func Round3(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(3).InexactFloat64()
}

// Money rounds a currency amount to 2 decimal places.
func Money(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}
