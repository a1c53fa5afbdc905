package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
)

// memoryStore is an in-memory CookStore. Transactions work on a copy of the items
// and are swapped in on commit.
type memoryStore struct {
	mu            sync.Mutex
	items         map[string]models.StockItem
	notifications []models.Notification
	movements     []models.InventoryMovement

	failNotifications bool
	failGetMany       error
	failUpdateFor     string
}

func newMemoryStore(items ...models.StockItem) *memoryStore {
	s := &memoryStore{items: make(map[string]models.StockItem)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *memoryStore) item(id string) models.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

type memoryView struct {
	store         *memoryStore
	items         map[string]models.StockItem
	notifications *[]models.Notification
	movements     *[]models.InventoryMovement
}

func (s *memoryStore) direct() *memoryView {
	return &memoryView{store: s, items: s.items, notifications: &s.notifications, movements: &s.movements}
}

func (s *memoryStore) Inventory() InventoryAccessor    { return s.direct() }
func (s *memoryStore) Notifications() NotificationSink { return s.direct() }
func (s *memoryStore) Movements() MovementRecorder     { return s.direct() }

func (s *memoryStore) WithinTx(ctx context.Context, fn func(tx CookTx) error) error {
	s.mu.Lock()
	items := make(map[string]models.StockItem, len(s.items))
	for id, item := range s.items {
		items[id] = item
	}
	notifications := append([]models.Notification(nil), s.notifications...)
	movements := append([]models.InventoryMovement(nil), s.movements...)
	s.mu.Unlock()

	view := &memoryView{store: s, items: items, notifications: &notifications, movements: &movements}
	if err := fn(view); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.notifications = notifications
	s.movements = movements
	return nil
}

func (v *memoryView) Inventory() InventoryAccessor    { return v }
func (v *memoryView) Notifications() NotificationSink { return v }
func (v *memoryView) Movements() MovementRecorder     { return v }

func (v *memoryView) GetMany(ctx context.Context, ids []string) ([]models.StockItem, error) {
	if v.store.failGetMany != nil {
		return nil, v.store.failGetMany
	}
	var out []models.StockItem
	seen := map[string]bool{}
	for _, id := range ids {
		if item, ok := v.items[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *memoryView) Get(ctx context.Context, id string) (*models.StockItem, error) {
	item, ok := v.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &item, nil
}

func (v *memoryView) Update(ctx context.Context, id string, fields models.StockItemUpdate) error {
	if v.store.failUpdateFor == id {
		return errors.New("disk full")
	}
	item, ok := v.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if fields.Name != nil {
		item.Name = *fields.Name
	}
	if fields.Quantity != nil {
		item.Quantity = *fields.Quantity
	}
	if fields.Unit != nil {
		item.Unit = *fields.Unit
	}
	if fields.TotalCost != nil {
		item.TotalCost = *fields.TotalCost
	}
	if fields.PricePerBaseUnit != nil {
		item.PricePerBaseUnit = *fields.PricePerBaseUnit
	}
	if fields.ClearThreshold {
		item.ReorderThreshold = nil
	} else if fields.ReorderThreshold != nil {
		item.ReorderThreshold = fields.ReorderThreshold
	}
	v.items[id] = item
	return nil
}

func (v *memoryView) Append(ctx context.Context, entry models.Notification) error {
	if v.store.failNotifications {
		return errors.New("notification log unavailable")
	}
	*v.notifications = append(*v.notifications, entry)
	return nil
}

func (v *memoryView) Record(ctx context.Context, movement *models.InventoryMovement) error {
	*v.movements = append(*v.movements, *movement)
	return nil
}
