package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen_backoffice/internal/models"

	"github.com/google/uuid"
)

// RecipeRepository stores recipes together with their ordered ingredient rows.
type RecipeRepository interface {
	Create(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error
	GetByID(ctx context.Context, executor SQLExecutor, id string) (*models.Recipe, error)
	List(ctx context.Context, dishType *string, page, pageSize int) ([]models.Recipe, int, error)
	Update(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error
	Delete(ctx context.Context, executor SQLExecutor, id string) error
}

type recipeRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewRecipeRepository creates a new instance of RecipeRepository.
func NewRecipeRepository(db *sql.DB, dialect Dialect) RecipeRepository {
	return &recipeRepository{db: db, dialect: dialect}
}

func (r *recipeRepository) Create(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error {
	query := `INSERT INTO recipes (id, name, dish_type, instructions, total_cost, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	currentTime := time.Now().UTC()
	recipe.CreatedAt = currentTime
	recipe.UpdatedAt = currentTime

	_, err := executor.ExecContext(ctx, r.dialect.Rebind(query),
		recipe.ID, recipe.Name, recipe.DishType, recipe.Instructions, recipe.TotalCost, recipe.CreatedAt, recipe.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: recipe '%s': %v", ErrDuplicateKey, recipe.ID, err)
		}
		return fmt.Errorf("%w: creating recipe: %v", ErrDatabaseError, err)
	}
	return r.insertIngredients(ctx, executor, recipe)
}

func (r *recipeRepository) insertIngredients(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error {
	query := r.dialect.Rebind(`INSERT INTO recipe_ingredients (id, recipe_id, stock_item_id, name, quantity, unit, position)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	for i := range recipe.Ingredients {
		ing := &recipe.Ingredients[i]
		ing.ID = uuid.NewString()
		ing.Position = i
		_, err := executor.ExecContext(ctx, query, ing.ID, recipe.ID, ing.StockItemID, ing.Name, ing.Quantity, ing.Unit, ing.Position)
		if err != nil {
			return fmt.Errorf("%w: inserting ingredient '%s' of recipe %s: %v", ErrDatabaseError, ing.Name, recipe.ID, err)
		}
	}
	return nil
}

func (r *recipeRepository) GetByID(ctx context.Context, executor SQLExecutor, id string) (*models.Recipe, error) {
	if executor == nil {
		executor = r.db
	}
	recipe := &models.Recipe{}
	query := `SELECT id, name, dish_type, instructions, total_cost, created_at, updated_at FROM recipes WHERE id = $1`
	err := executor.QueryRowContext(ctx, r.dialect.Rebind(query), id).Scan(
		&recipe.ID, &recipe.Name, &recipe.DishType, &recipe.Instructions, &recipe.TotalCost, &recipe.CreatedAt, &recipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting recipe by ID %s: %v", ErrDatabaseError, id, err)
	}

	byRecipe, err := r.loadIngredients(ctx, executor, []string{id})
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = byRecipe[id]
	if recipe.Ingredients == nil {
		recipe.Ingredients = []models.RecipeIngredient{}
	}
	return recipe, nil
}

func (r *recipeRepository) loadIngredients(ctx context.Context, executor SQLExecutor, recipeIDs []string) (map[string][]models.RecipeIngredient, error) {
	result := make(map[string][]models.RecipeIngredient, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(recipeIDs))
	args := make([]interface{}, len(recipeIDs))
	for i, id := range recipeIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT id, recipe_id, stock_item_id, name, quantity, unit, position
	          FROM recipe_ingredients
	          WHERE recipe_id IN (` + strings.Join(placeholders, ", ") + `)
	          ORDER BY recipe_id, position`

	rows, err := executor.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting recipe ingredients: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ing models.RecipeIngredient
		var recipeID string
		var stockItemID sql.NullString
		if err := rows.Scan(&ing.ID, &recipeID, &stockItemID, &ing.Name, &ing.Quantity, &ing.Unit, &ing.Position); err != nil {
			return nil, fmt.Errorf("%w: scanning recipe ingredient: %v", ErrDatabaseError, err)
		}
		if stockItemID.Valid {
			ing.StockItemID = &stockItemID.String
		}
		result[recipeID] = append(result[recipeID], ing)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating recipe ingredients: %v", ErrDatabaseError, err)
	}
	return result, nil
}

func (r *recipeRepository) List(ctx context.Context, dishType *string, page, pageSize int) ([]models.Recipe, int, error) {
	recipes := []models.Recipe{}
	totalCount := 0

	query := `SELECT id, name, dish_type, instructions, total_cost, created_at, updated_at, COUNT(*) OVER() AS total_count
	          FROM recipes`
	var args []interface{}
	argCount := 1
	if dishType != nil && *dishType != "" {
		query += fmt.Sprintf(" WHERE dish_type = $%d", argCount)
		args = append(args, *dishType)
		argCount++
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, pageSize, pageOffset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing recipes: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var recipe models.Recipe
		if err := rows.Scan(&recipe.ID, &recipe.Name, &recipe.DishType, &recipe.Instructions, &recipe.TotalCost,
			&recipe.CreatedAt, &recipe.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning recipe: %v", ErrDatabaseError, err)
		}
		recipes = append(recipes, recipe)
		ids = append(ids, recipe.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating recipes: %v", ErrDatabaseError, err)
	}
	rows.Close()

	byRecipe, err := r.loadIngredients(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range recipes {
		recipes[i].Ingredients = byRecipe[recipes[i].ID]
		if recipes[i].Ingredients == nil {
			recipes[i].Ingredients = []models.RecipeIngredient{}
		}
	}
	return recipes, totalCount, nil
}

// Update rewrites the recipe row and replaces its ingredient rows.
func (r *recipeRepository) Update(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()
	query := `UPDATE recipes SET name = $1, dish_type = $2, instructions = $3, total_cost = $4, updated_at = $5 WHERE id = $6`
	result, err := executor.ExecContext(ctx, r.dialect.Rebind(query),
		recipe.Name, recipe.DishType, recipe.Instructions, recipe.TotalCost, recipe.UpdatedAt, recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating recipe ID %s: %v", ErrDatabaseError, recipe.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := executor.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM recipe_ingredients WHERE recipe_id = $1`), recipe.ID); err != nil {
		return fmt.Errorf("%w: clearing ingredients of recipe %s: %v", ErrDatabaseError, recipe.ID, err)
	}
	return r.insertIngredients(ctx, executor, recipe)
}

func (r *recipeRepository) Delete(ctx context.Context, executor SQLExecutor, id string) error {
	if _, err := executor.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM recipe_ingredients WHERE recipe_id = $1`), id); err != nil {
		return fmt.Errorf("%w: deleting ingredients of recipe %s: %v", ErrDatabaseError, id, err)
	}
	result, err := executor.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM recipes WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("%w: deleting recipe ID %s: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
