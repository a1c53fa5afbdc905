package units

import (
	"math"
	"strings"

	"kitchen_backoffice/pkg/utils"
)

// Family groups units that can be converted into each other.
type Family string

const (
	FamilyMass    Family = "mass"
	FamilyVolume  Family = "volume"
	FamilyCount   Family = "count"
	FamilyUnknown Family = "unknown"
)

// Canonical unit codes stored on stock items and recipe ingredients.
const (
	Gram       = "g"
	Kilogram   = "kg"
	Milliliter = "ml"
	Liter      = "l"
	Each       = "each"
)

type unitDef struct {
	family Family
	base   string
	factor float64 // qty in this unit * factor = qty in base unit
}

var unitTable = map[string]unitDef{
	Gram:       {family: FamilyMass, base: Gram, factor: 1},
	Kilogram:   {family: FamilyMass, base: Gram, factor: 1000},
	Milliliter: {family: FamilyVolume, base: Milliliter, factor: 1},
	Liter:      {family: FamilyVolume, base: Milliliter, factor: 1000},
	Each:       {family: FamilyCount, base: Each, factor: 1},
}

var aliases = map[string]string{
	"gram":        Gram,
	"grams":       Gram,
	"kilogram":    Kilogram,
	"kilograms":   Kilogram,
	"milliliter":  Milliliter,
	"milliliters": Milliliter,
	"millilitre":  Milliliter,
	"liter":       Liter,
	"liters":      Liter,
	"litre":       Liter,
	"ea":          Each,
	"pcs":         Each,
	"pc":          Each,
	"piece":       Each,
	"pieces":      Each,
}

// Normalize maps an alias such as "kilogram" or "KG" to its canonical code.
// Unrecognized units are returned trimmed and lower-cased.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := aliases[u]; ok {
		return canonical
	}
	return u
}

func lookup(unit string) (unitDef, bool) {
	def, ok := unitTable[Normalize(unit)]
	return def, ok
}

// Known reports whether unit belongs to one of the supported families.
func Known(unit string) bool {
	_, ok := lookup(unit)
	return ok
}

// FamilyOf returns the measurement family of unit, FamilyUnknown if unrecognized.
func FamilyOf(unit string) Family {
	if def, ok := lookup(unit); ok {
		return def.family
	}
	return FamilyUnknown
}

// BaseUnit returns the base unit of the unit's family. An unrecognized unit is
// its own base unit, so it only ever matches itself.
func BaseUnit(unit string) string {
	if def, ok := lookup(unit); ok {
		return def.base
	}
	return Normalize(unit)
}

// Factor returns the multiplier from unit to its base unit. Unrecognized units
// fall back to 1 and the fallback is logged.
func Factor(unit string) float64 {
	if def, ok := lookup(unit); ok {
		return def.factor
	}
	utils.LogWarn("Unrecognized unit, using conversion factor 1", map[string]interface{}{"unit": unit})
	return 1
}

// ToBaseQuantity converts qty expressed in unit into the family's base unit.
func ToBaseQuantity(qty float64, unit string) float64 {
	return qty * Factor(unit)
}

// Compatible reports whether quantities in a and b can be converted into each other.
func Compatible(a, b string) bool {
	return BaseUnit(a) == BaseUnit(b)
}

// ConvertQuantity converts qty from one unit to another. When the units belong to
// different families the result is NaN; callers must check with math.IsNaN.
func ConvertQuantity(qty float64, fromUnit, toUnit string) float64 {
	if !Compatible(fromUnit, toUnit) {
		return math.NaN()
	}
	return qty * Factor(fromUnit) / Factor(toUnit)
}
