package repositories_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"kitchen_backoffice/internal/database"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "kitchen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "sqlite3"))
	return db
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestDialectRebind(t *testing.T) {
	q := `UPDATE t SET a = $1, b = $2 WHERE id = $10`
	assert.Equal(t, q, repositories.DialectPostgres.Rebind(q))
	assert.Equal(t, `UPDATE t SET a = ?1, b = ?2 WHERE id = ?10`, repositories.DialectSQLite.Rebind(q))
	assert.Equal(t, repositories.DialectSQLite, repositories.DialectFor("sqlite3"))
	assert.Equal(t, repositories.DialectPostgres, repositories.DialectFor("postgres"))
}

func TestStockItemRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := repositories.NewStockItemRepository(db, repositories.DialectSQLite)

	flour := &models.StockItem{ID: "flour", Name: "Flour", Quantity: 20, Unit: "kg", TotalCost: 50, PricePerBaseUnit: 0.0025, ReorderThreshold: floatPtr(5000)}
	require.NoError(t, repo.Create(ctx, db, flour))
	require.NoError(t, repo.Create(ctx, db, &models.StockItem{ID: "milk", Name: "Milk", Quantity: 4, Unit: "l", TotalCost: 4, PricePerBaseUnit: 0.001}))

	t.Run("Duplicate", func(t *testing.T) {
		err := repo.Create(ctx, db, &models.StockItem{ID: "flour", Name: "Again", Unit: "kg"})
		assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
	})

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, db, "flour")
		require.NoError(t, err)
		assert.Equal(t, "Flour", got.Name)
		assert.Equal(t, 20.0, got.Quantity)
		require.NotNil(t, got.ReorderThreshold)
		assert.Equal(t, 5000.0, *got.ReorderThreshold)
		assert.False(t, got.CreatedAt.IsZero())

		_, err = repo.GetByID(ctx, db, "nope")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("GetManySkipsUnknownIDs", func(t *testing.T) {
		items, err := repo.GetMany(ctx, db, []string{"milk", "ghost", "flour"})
		require.NoError(t, err)
		assert.Len(t, items, 2)

		items, err = repo.GetMany(ctx, db, nil)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, db, "flour", models.StockItemUpdate{Quantity: floatPtr(19.7), TotalCost: floatPtr(49.25)}))
		got, err := repo.GetByID(ctx, db, "flour")
		require.NoError(t, err)
		assert.Equal(t, 19.7, got.Quantity)
		assert.Equal(t, 49.25, got.TotalCost)
		assert.Equal(t, "kg", got.Unit)
		assert.NotNil(t, got.ReorderThreshold)

		require.NoError(t, repo.Update(ctx, db, "flour", models.StockItemUpdate{ClearThreshold: true}))
		got, err = repo.GetByID(ctx, db, "flour")
		require.NoError(t, err)
		assert.Nil(t, got.ReorderThreshold)

		assert.ErrorIs(t, repo.Update(ctx, db, "ghost", models.StockItemUpdate{Name: strPtr("x")}), repositories.ErrNotFound)
	})

	t.Run("NegativeQuantityRejected", func(t *testing.T) {
		err := repo.Update(ctx, db, "milk", models.StockItemUpdate{Quantity: floatPtr(-1)})
		assert.ErrorIs(t, err, repositories.ErrDatabaseError)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		items, total, err := repo.List(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "Flour", items[0].Name)

		require.NoError(t, repo.Delete(ctx, db, "milk"))
		assert.ErrorIs(t, repo.Delete(ctx, db, "milk"), repositories.ErrNotFound)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestStockItemUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := repositories.NewStockItemRepository(db, repositories.DialectSQLite)
	require.NoError(t, repo.Create(ctx, db, &models.StockItem{ID: "eggs", Name: "Eggs", Quantity: 12, Unit: "each"}))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, tx, "eggs", models.StockItemUpdate{Quantity: floatPtr(10)}))
	inTx, err := repo.GetByID(ctx, tx, "eggs")
	require.NoError(t, err)
	assert.Equal(t, 10.0, inTx.Quantity)
	require.NoError(t, tx.Rollback())

	got, err := repo.GetByID(ctx, db, "eggs")
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.Quantity)
}

func TestRecipeRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := repositories.NewRecipeRepository(db, repositories.DialectSQLite)

	recipe := &models.Recipe{
		ID:       "margherita",
		Name:     "Margherita",
		DishType: "pizza",
		Ingredients: []models.RecipeIngredient{
			{StockItemID: strPtr("flour"), Name: "Flour", Quantity: 0.3, Unit: "kg"},
			{Name: "Basil", Quantity: 5, Unit: "g"},
		},
		TotalCost: 0.75,
	}
	require.NoError(t, repo.Create(ctx, db, recipe))

	got, err := repo.GetByID(ctx, nil, "margherita")
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "Flour", got.Ingredients[0].Name)
	assert.Equal(t, 0, got.Ingredients[0].Position)
	require.NotNil(t, got.Ingredients[0].StockItemID)
	assert.Equal(t, "flour", *got.Ingredients[0].StockItemID)
	assert.Nil(t, got.Ingredients[1].StockItemID)
	assert.Equal(t, 0.75, got.TotalCost)

	got.Ingredients = got.Ingredients[:1]
	got.Name = "Margherita Classic"
	require.NoError(t, repo.Update(ctx, db, got))

	list, total, err := repo.List(ctx, strPtr("pizza"), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Margherita Classic", list[0].Name)
	assert.Len(t, list[0].Ingredients, 1)

	require.NoError(t, repo.Delete(ctx, db, "margherita"))
	_, err = repo.GetByID(ctx, nil, "margherita")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestNotificationAndMovementRepositories(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	notifications := repositories.NewNotificationRepository(db, repositories.DialectSQLite)
	movements := repositories.NewInventoryMovementRepository(db, repositories.DialectSQLite)
	items := repositories.NewStockItemRepository(db, repositories.DialectSQLite)

	require.NoError(t, notifications.Append(ctx, db, &models.Notification{Tone: models.ToneInfo, Message: "Cooked Margherita x1", LoggedAt: "2024-05-01T10:00:00Z"}))
	require.NoError(t, notifications.Append(ctx, db, &models.Notification{Tone: models.ToneError, Message: "Low stock: Flour", LoggedAt: "2024-05-01T10:00:01Z"}))

	all, total, err := notifications.List(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, "Low stock: Flour", all[0].Message)

	errorsOnly, total, err := notifications.List(ctx, strPtr(models.ToneError), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, errorsOnly, 1)

	require.NoError(t, items.Create(ctx, db, &models.StockItem{ID: "flour", Name: "Flour", Quantity: 20, Unit: "kg"}))
	require.NoError(t, movements.CreateMovement(ctx, db, &models.InventoryMovement{
		StockItemID: "flour", MovementType: "cook", QuantityChanged: -0.3, ReferenceID: strPtr("margherita"),
	}))
	require.NoError(t, movements.CreateMovement(ctx, db, &models.InventoryMovement{
		StockItemID: "gone", MovementType: "adjustment", QuantityChanged: 1, Reason: strPtr("count"),
	}))

	list, total, err := movements.GetMovements(ctx, models.MovementFilters{StockItemID: strPtr("flour"), Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, -0.3, list[0].QuantityChanged)
	require.NotNil(t, list[0].StockItem)
	assert.Equal(t, "Flour", list[0].StockItem.Name)

	list, _, err = movements.GetMovements(ctx, models.MovementFilters{MovementType: strPtr("adjustment"), Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].StockItem)
}

func TestOrderAndAuthRepositories(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	orders := repositories.NewOrderRepository(db, repositories.DialectSQLite)
	users := repositories.NewAuthRepository(db, repositories.DialectSQLite)

	order := &models.Order{Status: models.OrderStatusPartial, Lines: []models.OrderLine{
		{RecipeID: "margherita", RecipeName: "Margherita", Quantity: 2, Cooked: true},
		{RecipeID: "lasagna", RecipeName: "Lasagna", Quantity: 1, Cooked: false, Shortages: []models.ShortageEntry{
			{Name: "Cheese", Reason: models.ReasonInsufficientStock, Needed: floatPtr(250), Available: floatPtr(100), Unit: "g"},
			{Name: "pasta sheets", Reason: models.ReasonMissingFromInventory},
		}},
	}}
	require.NoError(t, orders.CreateOrder(ctx, db, order))
	assert.NotEmpty(t, order.ID)

	got, err := orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartial, got.Status)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Margherita", got.Lines[0].RecipeName)
	assert.Nil(t, got.Lines[0].Shortages)
	assert.Equal(t, order.Lines[1].Shortages, got.Lines[1].Shortages)

	list, total, err := orders.GetOrders(ctx, models.OrderFilters{Status: strPtr(models.OrderStatusPartial), Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Lines, 2)

	require.NoError(t, orders.DeleteOrder(ctx, db, order.ID))
	_, err = orders.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	count, err := users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	user := &models.User{ID: "u1", Username: "chef", PasswordHash: "hash", Role: models.RoleStaff, IsActive: true}
	require.NoError(t, users.CreateUser(ctx, db, user))
	err = users.CreateUser(ctx, db, &models.User{ID: "u2", Username: "chef", PasswordHash: "x", Role: models.RoleStaff})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	found, err := users.FindUserByUsername(ctx, "chef")
	require.NoError(t, err)
	assert.Equal(t, "hash", found.PasswordHash)
	assert.True(t, found.IsActive)

	_, err = users.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
