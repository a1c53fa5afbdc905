package services

import "errors"

// Service-level sentinels shared by several services. Handlers map them to HTTP statuses.
var (
	ErrValidation        = errors.New("validation error") // Generic validation error
	ErrStockItemNotFound = errors.New("stock item not found")
	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrOrderNotFound     = errors.New("order not found")
)

func normalizePaging(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
