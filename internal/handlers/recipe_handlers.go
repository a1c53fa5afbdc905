package handlers

import (
	"errors"
	"io"
	"net/http"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/services"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RecipeHandler serves recipes, their costing and cooking.
type RecipeHandler struct {
	recipeService services.RecipeService
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(rs services.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipeService: rs}
}

// CreateRecipe saves a recipe and caches its cost.
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req services.SaveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateRecipe: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create recipe")
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// GetRecipes lists recipes, optionally by dish_type.
func (h *RecipeHandler) GetRecipes(c *gin.Context) {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	var dishType *string
	if dt := c.Query("dish_type"); dt != "" {
		dishType = &dt
	}

	recipes, totalCount, err := h.recipeService.GetRecipes(c.Request.Context(), dishType, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "retrieve recipes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipes, "total": totalCount, "page": page, "page_size": pageSize})
}

// GetRecipeByID returns a recipe with its ingredients.
func (h *RecipeHandler) GetRecipeByID(c *gin.Context) {
	recipe, err := h.recipeService.GetRecipeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "retrieve recipe")
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// UpdateRecipe replaces a recipe and its ingredient list.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	var req services.SaveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateRecipe: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "update recipe")
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe removes a recipe.
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	if err := h.recipeService.DeleteRecipe(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err, "delete recipe")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

// GetRecipeCost prices the recipe against current inventory.
func (h *RecipeHandler) GetRecipeCost(c *gin.Context) {
	cost, err := h.recipeService.GetLiveCost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "cost recipe")
		return
	}
	c.JSON(http.StatusOK, cost)
}

// CookRecipe deducts the recipe's ingredients for the requested servings. A cook
// that is short on stock changes nothing and answers 409 with the shortages.
func (h *RecipeHandler) CookRecipe(c *gin.Context) {
	var req models.CookRequest
	// An empty body cooks a single serving.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.LogError(err, "CookRecipe: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	result, err := h.recipeService.CookRecipe(c.Request.Context(), c.Param("id"), req.Servings)
	if err != nil {
		respondServiceError(c, err, "cook recipe")
		return
	}
	if !result.OK {
		c.JSON(http.StatusConflict, gin.H{
			"error":  utils.NewAPIError(http.StatusConflict, utils.ErrCodeInsufficientStock, "Not enough stock to cook this recipe.", ""),
			"result": result,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}
