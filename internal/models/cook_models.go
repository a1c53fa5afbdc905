package models

// Shortage reasons reported when a recipe cannot be cooked.
const (
	ReasonNoIngredients        = "no-ingredients"
	ReasonMissingFromInventory = "missing-from-inventory"
	ReasonIncompatibleUnits    = "incompatible-units"
	ReasonInsufficientStock    = "insufficient-stock"
)

// ShortageEntry explains why one ingredient blocks a cook. Needed, Available and
// Unit are only set for insufficient-stock and are expressed in the stock item's unit.
type ShortageEntry struct {
	Name      string   `json:"name"`
	Reason    string   `json:"reason"`
	Needed    *float64 `json:"needed,omitempty"`
	Available *float64 `json:"available,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// CookResult is the outcome of cooking a recipe.
type CookResult struct {
	OK            bool            `json:"ok"`
	Shortages     []ShortageEntry `json:"shortages,omitempty"`
	Notifications []Notification  `json:"notifications,omitempty"`
}

// CookRequest is the body of a cook call.
type CookRequest struct {
	Servings float64 `json:"servings"`
}
