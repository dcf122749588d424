package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/database"
)

func setupAuthTestRouter(t *testing.T, users UserResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TokenAuthMiddleware(users))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	return router
}

func get(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenAuthMiddleware_SingleUserMode(t *testing.T) {
	router := setupAuthTestRouter(t, nil)

	w := get(router, "/whoami", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":1`)
}

func TestTokenAuthMiddleware_TokenMode(t *testing.T) {
	dbPath := "./test_auth_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	user, err := db.CreateUser("reader", "reader@example.com")
	require.NoError(t, err)

	router := setupAuthTestRouter(t, db)

	t.Run("missing token is unauthorized", func(t *testing.T) {
		w := get(router, "/whoami", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header is unauthorized", func(t *testing.T) {
		w := get(router, "/whoami", "Token "+user.Token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		w := get(router, "/whoami", "Bearer not-a-real-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token resolves the user", func(t *testing.T) {
		w := get(router, "/whoami", "Bearer "+user.Token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":`)
	})
}
