package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kitchen_backoffice/internal/costing"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/internal/units"

	"github.com/google/uuid"
)

// --- Recipe DTOs ---
type RecipeIngredientInput struct {
	StockItemID *string `json:"stock_item_id"`
	Name        string  `json:"name" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit" binding:"required"`
}

type SaveRecipeRequest struct {
	Name         string                  `json:"name" binding:"required"`
	DishType     string                  `json:"dish_type"`
	Instructions string                  `json:"instructions"`
	Ingredients  []RecipeIngredientInput `json:"ingredients" binding:"dive"`
}

// RecipeCostResponse compares the cost cached at save time with today's prices.
type RecipeCostResponse struct {
	RecipeID   string   `json:"recipe_id"`
	CachedCost string   `json:"cached_cost"`
	LiveCost   string   `json:"live_cost"`
	Unresolved []string `json:"unresolved,omitempty"` // Ingredients that contribute nothing
}

// RecipeService manages recipes and cooks them through the CookService.
type RecipeService interface {
	CreateRecipe(ctx context.Context, req SaveRecipeRequest) (*models.Recipe, error)
	GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error)
	GetRecipes(ctx context.Context, dishType *string, page, pageSize int) ([]models.Recipe, int, error)
	UpdateRecipe(ctx context.Context, id string, req SaveRecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	GetLiveCost(ctx context.Context, id string) (*RecipeCostResponse, error)
	CookRecipe(ctx context.Context, id string, servings float64) (*models.CookResult, error)
}

type recipeService struct {
	recipeRepo repositories.RecipeRepository
	itemRepo   repositories.StockItemRepository
	cook       CookService
	db         *sql.DB
}

// NewRecipeService creates a new instance of RecipeService.
func NewRecipeService(rr repositories.RecipeRepository, ir repositories.StockItemRepository, cook CookService, db *sql.DB) RecipeService {
	return &recipeService{recipeRepo: rr, itemRepo: ir, cook: cook, db: db}
}

func (s *recipeService) buildIngredients(inputs []RecipeIngredientInput) ([]models.RecipeIngredient, error) {
	ingredients := make([]models.RecipeIngredient, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: ingredient %d has no name", ErrValidation, i+1)
		}
		if in.Quantity <= 0 || !validFinite(in.Quantity) {
			return nil, fmt.Errorf("%w: ingredient '%s' needs a positive quantity", ErrValidation, name)
		}
		unit := units.Normalize(in.Unit)
		if unit == "" {
			return nil, fmt.Errorf("%w: ingredient '%s' has no unit", ErrValidation, name)
		}
		var stockItemID *string
		if in.StockItemID != nil && strings.TrimSpace(*in.StockItemID) != "" {
			id := strings.TrimSpace(*in.StockItemID)
			stockItemID = &id
		}
		ingredients = append(ingredients, models.RecipeIngredient{
			StockItemID: stockItemID,
			Name:        name,
			Quantity:    in.Quantity,
			Unit:        unit,
			Position:    i,
		})
	}
	return ingredients, nil
}

// costOf prices ingredients against the current inventory and reports the ones
// that could not be priced.
func (s *recipeService) costOf(ctx context.Context, executor repositories.SQLExecutor, ingredients []models.RecipeIngredient) (float64, []string, error) {
	var ids []string
	for _, ing := range ingredients {
		if ing.StockItemID != nil {
			ids = append(ids, *ing.StockItemID)
		}
	}
	items, err := s.itemRepo.GetMany(ctx, executor, ids)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load stock items for costing: %w", err)
	}
	index := make(map[string]models.StockItem, len(items))
	for _, item := range items {
		index[item.ID] = item
	}

	var unresolved []string
	for _, ing := range ingredients {
		if ing.StockItemID == nil {
			unresolved = append(unresolved, ing.Name)
			continue
		}
		item, ok := index[*ing.StockItemID]
		if !ok || !units.Compatible(ing.Unit, item.Unit) {
			unresolved = append(unresolved, ing.Name)
		}
	}
	return costing.RecipeCost(ingredients, index), unresolved, nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, req SaveRecipeRequest) (*models.Recipe, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: recipe name cannot be empty", ErrValidation)
	}
	ingredients, err := s.buildIngredients(req.Ingredients)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	total, _, err := s.costOf(ctx, tx, ingredients)
	if err != nil {
		return nil, err
	}
	recipe := &models.Recipe{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		DishType:     strings.TrimSpace(req.DishType),
		Instructions: req.Instructions,
		Ingredients:  ingredients,
		TotalCost:    costing.Money(total).InexactFloat64(),
	}
	if err := s.recipeRepo.Create(ctx, tx, recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return recipe, nil
}

func (s *recipeService) GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	return recipe, nil
}

func (s *recipeService) GetRecipes(ctx context.Context, dishType *string, page, pageSize int) ([]models.Recipe, int, error) {
	page, pageSize = normalizePaging(page, pageSize)
	recipes, totalCount, err := s.recipeRepo.List(ctx, dishType, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get recipes: %w", err)
	}
	return recipes, totalCount, nil
}

// UpdateRecipe replaces the recipe and re-caches its cost at today's prices.
func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req SaveRecipeRequest) (*models.Recipe, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: recipe name cannot be empty", ErrValidation)
	}
	ingredients, err := s.buildIngredients(req.Ingredients)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	recipe, err := s.recipeRepo.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to find recipe for update: %w", err)
	}

	total, _, err := s.costOf(ctx, tx, ingredients)
	if err != nil {
		return nil, err
	}
	recipe.Name = strings.TrimSpace(req.Name)
	recipe.DishType = strings.TrimSpace(req.DishType)
	recipe.Instructions = req.Instructions
	recipe.Ingredients = ingredients
	recipe.TotalCost = costing.Money(total).InexactFloat64()

	if err := s.recipeRepo.Update(ctx, tx, recipe); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return recipe, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.recipeRepo.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return tx.Commit()
}

func (s *recipeService) GetLiveCost(ctx context.Context, id string) (*RecipeCostResponse, error) {
	recipe, err := s.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	total, unresolved, err := s.costOf(ctx, s.db, recipe.Ingredients)
	if err != nil {
		return nil, err
	}
	return &RecipeCostResponse{
		RecipeID:   recipe.ID,
		CachedCost: costing.Money(recipe.TotalCost).StringFixed(2),
		LiveCost:   costing.Money(total).StringFixed(2),
		Unresolved: unresolved,
	}, nil
}

func (s *recipeService) CookRecipe(ctx context.Context, id string, servings float64) (*models.CookResult, error) {
	recipe, err := s.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cook.CookRecipe(ctx, recipe, servings)
}
