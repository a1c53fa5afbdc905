package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"kitchen_backoffice/internal/database"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db            *sql.DB
	items         repositories.StockItemRepository
	notifications repositories.NotificationRepository
	movements     repositories.InventoryMovementRepository
	inventory     InventoryService
	recipes       RecipeService
	orders        OrderService
	reports       ReportService
	auth          AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "kitchen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "sqlite3"))

	dialect := repositories.DialectSQLite
	env := &testEnv{
		db:            db,
		items:         repositories.NewStockItemRepository(db, dialect),
		notifications: repositories.NewNotificationRepository(db, dialect),
		movements:     repositories.NewInventoryMovementRepository(db, dialect),
	}
	recipeRepo := repositories.NewRecipeRepository(db, dialect)
	cook := NewCookService(NewSQLCookStore(db, env.items, env.notifications, env.movements))

	env.inventory = NewInventoryService(env.items, env.movements, env.notifications, db)
	env.recipes = NewRecipeService(recipeRepo, env.items, cook, db)
	env.orders = NewOrderService(repositories.NewOrderRepository(db, dialect), recipeRepo, env.items, env.movements, cook, db)
	env.reports = NewReportService(env.items)
	env.auth = NewAuthService(repositories.NewAuthRepository(db, dialect), db, utils.NewTokenManager("test-secret", time.Hour))
	return env
}

func (e *testEnv) addItem(t *testing.T, req CreateStockItemRequest) *models.StockItem {
	t.Helper()
	item, err := e.inventory.CreateStockItem(context.Background(), req)
	require.NoError(t, err)
	return item
}

func TestInventoryService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("CreateComputesPricePerBaseUnit", func(t *testing.T) {
		item := env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 20, Unit: "Kilogram", TotalCost: 50})
		assert.Equal(t, "kg", item.Unit)
		assert.InDelta(t, 0.0025, item.PricePerBaseUnit, 1e-12)

		movements, total, err := env.inventory.GetMovements(ctx, models.MovementFilters{StockItemID: &item.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, MovementTypeRestock, movements[0].MovementType)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := env.inventory.CreateStockItem(ctx, CreateStockItemRequest{Name: " ", Unit: "g"})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = env.inventory.CreateStockItem(ctx, CreateStockItemRequest{Name: "Oil", Quantity: -1, Unit: "l"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("UpdateRecomputesPrice", func(t *testing.T) {
		item := env.addItem(t, CreateStockItemRequest{Name: "Milk", Quantity: 10, Unit: "l", TotalCost: 10})
		qty, cost := 5.0, 10.0
		updated, err := env.inventory.UpdateStockItem(ctx, item.ID, UpdateStockItemRequest{Quantity: &qty, TotalCost: &cost})
		require.NoError(t, err)
		assert.InDelta(t, 0.002, updated.PricePerBaseUnit, 1e-12)

		movements, _, err := env.inventory.GetMovements(ctx, models.MovementFilters{StockItemID: &item.ID, MovementType: strPtr(MovementTypeAdjustment)})
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, -5.0, movements[0].QuantityChanged)

		_, err = env.inventory.UpdateStockItem(ctx, "missing", UpdateStockItemRequest{Quantity: &qty})
		assert.ErrorIs(t, err, ErrStockItemNotFound)
	})

	t.Run("AdjustKeepsPriceAndRestockBlendsIt", func(t *testing.T) {
		item := env.addItem(t, CreateStockItemRequest{Name: "Sugar", Quantity: 2, Unit: "kg", TotalCost: 4, ReorderThreshold: floatPtr(1500)})

		adjusted, err := env.inventory.AdjustStock(ctx, item.ID, AdjustStockRequest{QuantityChange: -0.5, Reason: "spilled"})
		require.NoError(t, err)
		assert.Equal(t, 1.5, adjusted.Quantity)
		assert.InDelta(t, 0.002, adjusted.PricePerBaseUnit, 1e-12)
		assert.InDelta(t, 3.0, adjusted.TotalCost, 1e-9)

		low, _, err := env.notifications.List(ctx, strPtr(models.ToneError), 1, 10)
		require.NoError(t, err)
		require.Len(t, low, 1)
		assert.Contains(t, low[0].Message, "Low stock: Sugar")

		restocked, err := env.inventory.AdjustStock(ctx, item.ID, AdjustStockRequest{QuantityChange: 0.5, MovementType: MovementTypeRestock, Cost: floatPtr(2)})
		require.NoError(t, err)
		assert.Equal(t, 2.0, restocked.Quantity)
		assert.InDelta(t, 5.0, restocked.TotalCost, 1e-9)
		assert.InDelta(t, 0.0025, restocked.PricePerBaseUnit, 1e-12)

		_, err = env.inventory.AdjustStock(ctx, item.ID, AdjustStockRequest{QuantityChange: -3})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = env.inventory.AdjustStock(ctx, item.ID, AdjustStockRequest{QuantityChange: -1, MovementType: MovementTypeRestock})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Delete", func(t *testing.T) {
		item := env.addItem(t, CreateStockItemRequest{Name: "Temp", Quantity: 1, Unit: "each"})
		require.NoError(t, env.inventory.DeleteStockItem(ctx, item.ID))
		assert.ErrorIs(t, env.inventory.DeleteStockItem(ctx, item.ID), ErrStockItemNotFound)
	})
}

func TestRecipeServiceCachesCostAndCooks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 20, Unit: "kg", TotalCost: 40, ReorderThreshold: floatPtr(19700)})
	tomato := env.addItem(t, CreateStockItemRequest{Name: "Tomato", Quantity: 10, Unit: "each", TotalCost: 5})

	recipe, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{
		Name:     "Margherita",
		DishType: "pizza",
		Ingredients: []RecipeIngredientInput{
			{StockItemID: &flour.ID, Name: "Flour", Quantity: 0.3, Unit: "kg"},
			{StockItemID: &tomato.ID, Name: "Tomato", Quantity: 2, Unit: "pcs"},
			{Name: "Basil", Quantity: 3, Unit: "g"},
		},
	})
	require.NoError(t, err)
	// 300 g * 0.002 + 2 * 0.5
	assert.Equal(t, 1.6, recipe.TotalCost)

	// price change is not reflected in the cached cost, only in the live cost
	_, err = env.inventory.UpdateStockItem(ctx, flour.ID, UpdateStockItemRequest{TotalCost: floatPtr(80)})
	require.NoError(t, err)
	cost, err := env.recipes.GetLiveCost(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.60", cost.CachedCost)
	assert.Equal(t, "2.20", cost.LiveCost)
	assert.Equal(t, []string{"Basil"}, cost.Unresolved)

	// Basil is unresolved, so the cook is refused and nothing moves
	result, err := env.recipes.CookRecipe(ctx, recipe.ID, 1)
	require.NoError(t, err)
	assert.False(t, result.OK)
	got, err := env.inventory.GetStockItemByID(ctx, flour.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Quantity)

	updated, err := env.recipes.UpdateRecipe(ctx, recipe.ID, SaveRecipeRequest{
		Name:     "Margherita",
		DishType: "pizza",
		Ingredients: []RecipeIngredientInput{
			{StockItemID: &flour.ID, Name: "Flour", Quantity: 0.3, Unit: "kg"},
			{StockItemID: &tomato.ID, Name: "Tomato", Quantity: 2, Unit: "each"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.2, updated.TotalCost)

	result, err = env.recipes.CookRecipe(ctx, recipe.ID, 1)
	require.NoError(t, err)
	require.True(t, result.OK)

	got, err = env.inventory.GetStockItemByID(ctx, flour.ID)
	require.NoError(t, err)
	assert.Equal(t, 19.7, got.Quantity)
	assert.InDelta(t, 0.004, got.PricePerBaseUnit, 1e-12)
	assert.InDelta(t, 78.8, got.TotalCost, 1e-9)

	movements, _, err := env.inventory.GetMovements(ctx, models.MovementFilters{MovementType: strPtr(MovementTypeCook)})
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	// flour hit its threshold: one low-stock entry plus the cooked entry
	entries, _, err := env.notifications.List(ctx, nil, 1, 20)
	require.NoError(t, err)
	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, `Cooked "Margherita" x1`)
	assert.Contains(t, messages, "Low stock: Flour is at 19.7 kg (reorder at 19700 g)")

	_, err = env.recipes.CookRecipe(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestSQLCookStoreRollsBackOnShortage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 20, Unit: "kg", TotalCost: 50})
	eggs := env.addItem(t, CreateStockItemRequest{Name: "Eggs", Quantity: 1, Unit: "each", TotalCost: 0.3})

	recipe, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{
		Name: "Pasta",
		Ingredients: []RecipeIngredientInput{
			{StockItemID: &flour.ID, Name: "Flour", Quantity: 100, Unit: "g"},
			{StockItemID: &eggs.ID, Name: "Eggs", Quantity: 1, Unit: "each"},
		},
	})
	require.NoError(t, err)

	result, err := env.recipes.CookRecipe(ctx, recipe.ID, 2)
	require.NoError(t, err)
	assert.False(t, result.OK)
	require.Len(t, result.Shortages, 1)
	assert.Equal(t, "Eggs", result.Shortages[0].Name)
	assert.Equal(t, 2.0, *result.Shortages[0].Needed)
	assert.Equal(t, 1.0, *result.Shortages[0].Available)

	got, err := env.inventory.GetStockItemByID(ctx, flour.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Quantity)

	entries, _, err := env.notifications.List(ctx, strPtr(models.ToneError), 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "short on Eggs")
}

func TestOrderService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 1, Unit: "kg", TotalCost: 2})
	cheese := env.addItem(t, CreateStockItemRequest{Name: "Cheese", Quantity: 100, Unit: "g", TotalCost: 3})

	pizza, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{Name: "Pizza", Ingredients: []RecipeIngredientInput{
		{StockItemID: &flour.ID, Name: "Flour", Quantity: 300, Unit: "g"},
	}})
	require.NoError(t, err)
	lasagna, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{Name: "Lasagna", Ingredients: []RecipeIngredientInput{
		{StockItemID: &cheese.ID, Name: "Cheese", Quantity: 0.25, Unit: "kg"},
	}})
	require.NoError(t, err)

	order, err := env.orders.CreateOrder(ctx, CreateOrderRequest{Lines: []CreateOrderLineRequest{
		{RecipeID: pizza.ID, Quantity: 2},
		{RecipeID: lasagna.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartial, order.Status)
	require.Len(t, order.Lines, 2)
	assert.True(t, order.Lines[0].Cooked)
	assert.False(t, order.Lines[1].Cooked)
	assert.NotEmpty(t, order.Lines[1].Shortages)

	got, err := env.inventory.GetStockItemByID(ctx, flour.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.Quantity)

	movements, _, err := env.inventory.GetMovements(ctx, models.MovementFilters{StockItemID: &flour.ID, MovementType: strPtr(MovementTypeCook)})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.NotNil(t, movements[0].ReferenceID)
	assert.Equal(t, order.ID, *movements[0].ReferenceID)

	stored, err := env.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Nil(t, stored.Lines[0].Shortages)
	require.Len(t, stored.Lines[1].Shortages, 1)
	assert.Equal(t, order.Lines[1].Shortages, stored.Lines[1].Shortages)
	assert.Equal(t, "Cheese", stored.Lines[1].Shortages[0].Name)

	_, err = env.orders.CreateOrder(ctx, CreateOrderRequest{Lines: []CreateOrderLineRequest{{RecipeID: "nope", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	require.NoError(t, env.orders.DeleteOrder(ctx, order.ID))
	_, err = env.orders.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReportService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 20, Unit: "kg", TotalCost: 50})
	env.addItem(t, CreateStockItemRequest{Name: "Milk", Quantity: 0.5, Unit: "l", TotalCost: 0.6, ReorderThreshold: floatPtr(1000)})
	env.addItem(t, CreateStockItemRequest{Name: "Yeast", Quantity: 0, Unit: "g", TotalCost: 0})

	report, err := env.reports.GetInventoryReport(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Items, 3)
	assert.Equal(t, "50.60", report.TotalValue)
	assert.Equal(t, 2, report.LowStockCount)

	byName := map[string]models.InventoryReportItem{}
	for _, it := range report.Items {
		byName[it.Name] = it
	}
	assert.Equal(t, StockStatusInStock, byName["Flour"].Status)
	assert.Equal(t, 20000.0, byName["Flour"].BaseQuantity)
	assert.Equal(t, "g", byName["Flour"].BaseUnit)
	assert.Equal(t, StockStatusLowStock, byName["Milk"].Status)
	assert.Equal(t, StockStatusOutOfStock, byName["Yeast"].Status)

	low, err := env.reports.GetInventoryReport(ctx, true)
	require.NoError(t, err)
	assert.Len(t, low.Items, 2)
	assert.Equal(t, "0.60", low.TotalValue)
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.auth.EnsureAdmin(ctx, "admin", "admin-password"))
	require.NoError(t, env.auth.EnsureAdmin(ctx, "other", "other-password"))

	resp, err := env.auth.LoginUser(ctx, LoginRequest{Username: "admin", Password: "admin-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Empty(t, resp.User.PasswordHash)

	_, err = env.auth.LoginUser(ctx, LoginRequest{Username: "other", Password: "other-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.LoginUser(ctx, LoginRequest{Username: "admin", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := env.auth.RegisterUser(ctx, RegisterUserRequest{Username: "cook", Password: "cook-password", FullName: "Line Cook"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)

	_, err = env.auth.RegisterUser(ctx, RegisterUserRequest{Username: "cook", Password: "cook-password"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	_, err = env.auth.RegisterUser(ctx, RegisterUserRequest{Username: "boss", Password: "boss-password", Role: "owner"})
	assert.ErrorIs(t, err, ErrRoleNotFound)
	_, err = env.auth.RegisterUser(ctx, RegisterUserRequest{Username: "short", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	profile, err := env.auth.GetUserProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cook", profile.Username)
	_, err = env.auth.GetUserProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestNotificationService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewNotificationService(env.notifications)

	require.NoError(t, env.notifications.Append(ctx, env.db, &models.Notification{Tone: models.ToneInfo, Message: "Cooked \"Soup\" x1", LoggedAt: time.Now().UTC().Format(time.RFC3339)}))
	require.NoError(t, env.notifications.Append(ctx, env.db, &models.Notification{Tone: models.ToneError, Message: "Low stock: Salt", LoggedAt: time.Now().UTC().Format(time.RFC3339)}))

	all, total, err := svc.GetNotifications(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	errorsOnly, total, err := svc.GetNotifications(ctx, strPtr(models.ToneError), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Low stock: Salt", errorsOnly[0].Message)

	_, _, err = svc.GetNotifications(ctx, strPtr("warning"), 1, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSQLCookStoreSwallowsNotificationFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 20, Unit: "kg", TotalCost: 50})
	recipe, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{Name: "Margherita", Ingredients: []RecipeIngredientInput{
		{StockItemID: &flour.ID, Name: "Flour", Quantity: 0.3, Unit: "kg"},
	}})
	require.NoError(t, err)

	_, err = env.db.ExecContext(ctx, "DROP TABLE notifications")
	require.NoError(t, err)

	result, err := env.recipes.CookRecipe(ctx, recipe.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.OK)

	got, err := env.inventory.GetStockItemByID(ctx, flour.ID)
	require.NoError(t, err)
	assert.Equal(t, 19.7, got.Quantity)

	movements, err := env.movements.ListByReference(ctx, env.db, recipe.ID, MovementTypeCook)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, -0.3, movements[0].QuantityChanged)
}

func TestOrderServiceRestoresStockWhenOrderIsNotSaved(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *models.StockItem, *models.StockItem, *models.Recipe, *models.Recipe) {
		env := newTestEnv(t)
		flour := env.addItem(t, CreateStockItemRequest{Name: "Flour", Quantity: 20, Unit: "kg", TotalCost: 50})
		cheese := env.addItem(t, CreateStockItemRequest{Name: "Cheese", Quantity: 1, Unit: "kg", TotalCost: 12})
		pizza, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{Name: "Pizza", Ingredients: []RecipeIngredientInput{
			{StockItemID: &flour.ID, Name: "Flour", Quantity: 0.3, Unit: "kg"},
		}})
		require.NoError(t, err)
		lasagna, err := env.recipes.CreateRecipe(ctx, SaveRecipeRequest{Name: "Lasagna", Ingredients: []RecipeIngredientInput{
			{StockItemID: &cheese.ID, Name: "Cheese", Quantity: 200, Unit: "g"},
		}})
		require.NoError(t, err)
		return env, flour, cheese, pizza, lasagna
	}

	assertRestored := func(t *testing.T, env *testEnv, flour *models.StockItem) {
		got, err := env.inventory.GetStockItemByID(ctx, flour.ID)
		require.NoError(t, err)
		assert.Equal(t, 20.0, got.Quantity)
		assert.InDelta(t, 50.0, got.TotalCost, 1e-9)

		all, _, err := env.inventory.GetMovements(ctx, models.MovementFilters{StockItemID: &flour.ID, Page: 1, PageSize: 20})
		require.NoError(t, err)
		net := 0.0
		var cooked, restored int
		for _, m := range all {
			switch m.MovementType {
			case MovementTypeCook:
				cooked++
				net += m.QuantityChanged
			case MovementTypeAdjustment:
				restored++
				net += m.QuantityChanged
				require.NotNil(t, m.ReferenceID)
			}
		}
		assert.Equal(t, 1, cooked)
		assert.Equal(t, 1, restored)
		assert.InDelta(t, 0, net, 1e-9)

		orders, total, err := env.orders.GetOrders(ctx, models.OrderFilters{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, orders)
	}

	t.Run("SaveFails", func(t *testing.T) {
		env, flour, _, pizza, _ := setup(t)
		_, err := env.db.ExecContext(ctx, "DROP TABLE order_lines")
		require.NoError(t, err)

		_, err = env.orders.CreateOrder(ctx, CreateOrderRequest{Lines: []CreateOrderLineRequest{{RecipeID: pizza.ID, Quantity: 1}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save order")

		assertRestored(t, env, flour)
	})

	t.Run("LaterLineHitsStorageError", func(t *testing.T) {
		env, flour, cheese, pizza, lasagna := setup(t)
		_, err := env.db.ExecContext(ctx, `CREATE TRIGGER cheese_locked BEFORE UPDATE ON stock_items
			WHEN NEW.id = '`+cheese.ID+`' BEGIN SELECT RAISE(ABORT, 'cheese locked'); END`)
		require.NoError(t, err)

		_, err = env.orders.CreateOrder(ctx, CreateOrderRequest{Lines: []CreateOrderLineRequest{
			{RecipeID: pizza.ID, Quantity: 1},
			{RecipeID: lasagna.ID, Quantity: 1},
		}})
		require.Error(t, err)
		assert.ErrorIs(t, err, repositories.ErrDatabaseError)

		assertRestored(t, env, flour)
		got, err := env.inventory.GetStockItemByID(ctx, cheese.ID)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Quantity)
	})
}
