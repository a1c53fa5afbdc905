package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"kitchen_backoffice/internal/costing"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/units"
	"kitchen_backoffice/pkg/utils"
)

// MovementTypeCook marks stock consumed by cooking a recipe.
const MovementTypeCook = "cook"

// InventoryAccessor reads and writes stock items.
type InventoryAccessor interface {
	// GetMany returns the items found among ids; missing ids are simply absent.
	GetMany(ctx context.Context, ids []string) ([]models.StockItem, error)
	Get(ctx context.Context, id string) (*models.StockItem, error)
	Update(ctx context.Context, id string, fields models.StockItemUpdate) error
}

// NotificationSink appends entries to the audit notification log.
type NotificationSink interface {
	Append(ctx context.Context, entry models.Notification) error
}

// MovementRecorder records applied stock changes.
type MovementRecorder interface {
	Record(ctx context.Context, movement *models.InventoryMovement) error
}

// CookTx is the set of accessors bound to one storage transaction.
type CookTx interface {
	Inventory() InventoryAccessor
	Notifications() NotificationSink
	Movements() MovementRecorder
}

// CookStore is the storage the engine runs against. Accessors returned directly by
// the store are not transactional; WithinTx commits only when fn returns nil.
type CookStore interface {
	CookTx
	WithinTx(ctx context.Context, fn func(tx CookTx) error) error
}

// PlannedUpdate is one row of a deduction plan.
type PlannedUpdate struct {
	StockItemID  string
	Name         string
	Unit         string
	Previous     float64
	NewQuantity  float64 // rounded to 3 decimals
	NewTotalCost float64
	LowStock     bool
}

// CookPlan is everything cooking a recipe would do, computed before any mutation.
type CookPlan struct {
	RecipeID      string
	Servings      float64
	Updates       []PlannedUpdate
	Shortages     []models.ShortageEntry
	Notifications []models.Notification
}

// OK reports whether the plan can be applied.
func (p CookPlan) OK() bool {
	return len(p.Shortages) == 0
}

// Result converts the plan into what callers of CookRecipe receive.
func (p CookPlan) Result() *models.CookResult {
	return &models.CookResult{
		OK:            p.OK(),
		Shortages:     p.Shortages,
		Notifications: p.Notifications,
	}
}

// NormalizeServings clamps zero, negative and NaN servings to 1.
func NormalizeServings(servings float64) float64 {
	if math.IsNaN(servings) || math.IsInf(servings, 0) || servings <= 0 {
		utils.LogWarn("Servings out of range, using 1", map[string]interface{}{"servings": servings})
		return 1
	}
	return servings
}

// PlanCook validates the recipe against items and computes the deduction plan,
// the shortages and the notifications to emit. It performs no I/O.
func PlanCook(recipe *models.Recipe, servings float64, items []models.StockItem, now time.Time) CookPlan {
	servings = NormalizeServings(servings)
	plan := CookPlan{RecipeID: recipe.ID, Servings: servings}
	stamp := now.UTC().Format(time.RFC3339)

	if len(recipe.Ingredients) == 0 {
		plan.Shortages = append(plan.Shortages, models.ShortageEntry{Name: recipe.Name, Reason: models.ReasonNoIngredients})
		plan.Notifications = append(plan.Notifications, models.Notification{
			Tone:     models.ToneError,
			Message:  fmt.Sprintf("Cannot cook %q: recipe has no ingredients", recipe.Name),
			LoggedAt: stamp,
		})
		return plan
	}

	index := make(map[string]models.StockItem, len(items))
	for _, item := range items {
		index[item.ID] = item
	}

	// Ingredients sharing a stock item draw from the same running availability.
	available := make(map[string]float64)
	planned := make(map[string]int)

	for _, ing := range recipe.Ingredients {
		if ing.StockItemID == nil {
			plan.Shortages = append(plan.Shortages, models.ShortageEntry{Name: ing.Name, Reason: models.ReasonMissingFromInventory})
			continue
		}
		item, ok := index[*ing.StockItemID]
		if !ok {
			plan.Shortages = append(plan.Shortages, models.ShortageEntry{Name: ing.Name, Reason: models.ReasonMissingFromInventory})
			continue
		}

		needed := units.ConvertQuantity(ing.Quantity*servings, ing.Unit, item.Unit)
		if math.IsNaN(needed) {
			plan.Shortages = append(plan.Shortages, models.ShortageEntry{Name: item.Name, Reason: models.ReasonIncompatibleUnits})
			continue
		}

		have, seen := available[item.ID]
		if !seen {
			have = item.Quantity
		}
		if have < needed {
			neededOut, availableOut := costing.Round3(needed), costing.Round3(have)
			plan.Shortages = append(plan.Shortages, models.ShortageEntry{
				Name:      item.Name,
				Reason:    models.ReasonInsufficientStock,
				Needed:    &neededOut,
				Available: &availableOut,
				Unit:      item.Unit,
			})
			continue
		}

		available[item.ID] = have - needed
		if i, ok := planned[item.ID]; ok {
			plan.Updates[i].NewQuantity = have - needed
			continue
		}
		planned[item.ID] = len(plan.Updates)
		plan.Updates = append(plan.Updates, PlannedUpdate{
			StockItemID: item.ID,
			Name:        item.Name,
			Unit:        item.Unit,
			Previous:    item.Quantity,
			NewQuantity: have - needed,
		})
	}

	if !plan.OK() {
		plan.Updates = nil
		names := make([]string, 0, len(plan.Shortages))
		for _, s := range plan.Shortages {
			names = append(names, s.Name)
		}
		plan.Notifications = append(plan.Notifications, models.Notification{
			Tone:     models.ToneError,
			Message:  fmt.Sprintf("Cannot cook %q x%s: short on %s", recipe.Name, formatQuantity(servings), strings.Join(names, ", ")),
			LoggedAt: stamp,
		})
		return plan
	}

	for i := range plan.Updates {
		u := &plan.Updates[i]
		item := index[u.StockItemID]
		u.NewQuantity = costing.Round3(u.NewQuantity)
		if u.NewQuantity < 0 {
			u.NewQuantity = 0
		}
		u.NewTotalCost = item.PricePerBaseUnit * units.ToBaseQuantity(u.NewQuantity, item.Unit)

		if item.ReorderThreshold != nil {
			base := costing.Round3(units.ToBaseQuantity(u.NewQuantity, item.Unit))
			if base <= *item.ReorderThreshold {
				u.LowStock = true
				plan.Notifications = append(plan.Notifications, models.Notification{
					Tone:     models.ToneError,
					Message:  lowStockMessage(item, u.NewQuantity),
					LoggedAt: stamp,
				})
			}
		}
	}

	plan.Notifications = append(plan.Notifications, models.Notification{
		Tone:     models.ToneInfo,
		Message:  fmt.Sprintf("Cooked %q x%s", recipe.Name, formatQuantity(servings)),
		LoggedAt: stamp,
	})
	return plan
}

func lowStockMessage(item models.StockItem, quantity float64) string {
	return fmt.Sprintf("Low stock: %s is at %s %s (reorder at %s %s)",
		item.Name, formatQuantity(quantity), item.Unit,
		formatQuantity(*item.ReorderThreshold), units.BaseUnit(item.Unit))
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(costing.Round3(q), 'f', -1, 64)
}

// CookService cooks recipes against the inventory.
type CookService interface {
	// CookRecipe deducts the recipe's ingredients for servings, all or nothing.
	// Shortages are reported in the result; only storage failures return an error.
	CookRecipe(ctx context.Context, recipe *models.Recipe, servings float64) (*models.CookResult, error)
	// CookRecipeWithReference is CookRecipe with the movements tagged by referenceID.
	CookRecipeWithReference(ctx context.Context, recipe *models.Recipe, servings float64, referenceID string) (*models.CookResult, error)
}

type cookService struct {
	store CookStore
	now   func() time.Time
}

// NewCookService creates a new instance of CookService.
func NewCookService(store CookStore) CookService {
	return &cookService{store: store, now: time.Now}
}

func (s *cookService) CookRecipe(ctx context.Context, recipe *models.Recipe, servings float64) (*models.CookResult, error) {
	return s.CookRecipeWithReference(ctx, recipe, servings, recipe.ID)
}

func (s *cookService) CookRecipeWithReference(ctx context.Context, recipe *models.Recipe, servings float64, referenceID string) (*models.CookResult, error) {
	if len(recipe.Ingredients) == 0 {
		plan := PlanCook(recipe, servings, nil, s.now())
		s.emit(ctx, s.store.Notifications(), plan.Notifications)
		return plan.Result(), nil
	}

	ids := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		if ing.StockItemID != nil {
			ids = append(ids, *ing.StockItemID)
		}
	}

	var plan CookPlan
	err := s.store.WithinTx(ctx, func(tx CookTx) error {
		items, err := tx.Inventory().GetMany(ctx, ids)
		if err != nil {
			return fmt.Errorf("resolving stock items for recipe %s: %w", recipe.ID, err)
		}

		plan = PlanCook(recipe, servings, items, s.now())
		if !plan.OK() {
			return nil
		}

		reason := fmt.Sprintf("Cooked %s x%s", recipe.Name, formatQuantity(plan.Servings))
		for _, u := range plan.Updates {
			newQty, newCost := u.NewQuantity, u.NewTotalCost
			if err := tx.Inventory().Update(ctx, u.StockItemID, models.StockItemUpdate{Quantity: &newQty, TotalCost: &newCost}); err != nil {
				return fmt.Errorf("deducting stock item %s: %w", u.StockItemID, err)
			}
			movement := &models.InventoryMovement{
				StockItemID:     u.StockItemID,
				MovementType:    MovementTypeCook,
				QuantityChanged: costing.Round3(u.NewQuantity - u.Previous),
				Reason:          models.NewNullString(reason),
				ReferenceID:     models.NewNullString(referenceID),
			}
			if err := tx.Movements().Record(ctx, movement); err != nil {
				return fmt.Errorf("recording cook movement for %s: %w", u.StockItemID, err)
			}
		}
		s.emit(ctx, tx.Notifications(), plan.Notifications)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !plan.OK() {
		s.emit(ctx, s.store.Notifications(), plan.Notifications)
		utils.LogInfo("Recipe not cooked", map[string]interface{}{"recipe_id": recipe.ID, "shortages": len(plan.Shortages)})
	} else {
		utils.LogInfo("Recipe cooked", map[string]interface{}{"recipe_id": recipe.ID, "servings": plan.Servings, "items": len(plan.Updates)})
	}
	return plan.Result(), nil
}

// emit writes notifications best-effort; a failed write never changes the outcome.
func (s *cookService) emit(ctx context.Context, sink NotificationSink, entries []models.Notification) {
	for _, entry := range entries {
		if err := sink.Append(ctx, entry); err != nil {
			utils.LogError(err, "Failed to write notification", map[string]interface{}{"tone": entry.Tone, "message": entry.Message})
		}
	}
}
