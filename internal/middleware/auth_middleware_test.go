package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedEngine(tokens *utils.TokenManager, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", AuthMiddleware(tokens), RoleAuthMiddleware(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetString(ContextUserID),
			"username": c.GetString(ContextUsername),
			"role":     c.GetString(ContextUserRole),
		})
	})
	return engine
}

func call(engine *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-secret", time.Hour)
	engine := newProtectedEngine(tokens, "admin", "staff")

	t.Run("MissingHeader", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(engine, "").Code)
	})

	t.Run("WrongScheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(engine, "Basic abc").Code)
	})

	t.Run("BadToken", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(engine, "Bearer not-a-jwt").Code)
	})

	t.Run("ValidTokenSetsContext", func(t *testing.T) {
		token, err := tokens.GenerateAccessToken("u-1", "chef", "Admin")
		require.NoError(t, err)
		w := call(engine, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"u-1","username":"chef","role":"Admin"}`, w.Body.String())
	})
}

func TestRoleAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-secret", time.Hour)
	engine := newProtectedEngine(tokens, "admin")

	token, err := tokens.GenerateAccessToken("u-2", "line-cook", "staff")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(engine, "Bearer "+token).Code)
}
