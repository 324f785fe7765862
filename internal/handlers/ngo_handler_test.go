package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"recircle-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupNGORouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop(), false))
	h := NewNGOHandler()
	router.GET("/api/ngo", h.ListNGOs)
	router.GET("/api/ngo/:id", h.GetNGO)
	return router
}

func TestNGOHandler_List(t *testing.T) {
	router := setupNGORouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ngo", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got []NGO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "Green Earth Foundation", got[0].Name)
}

func TestNGOHandler_Get(t *testing.T) {
	router := setupNGORouter()

	tests := []struct {
		path   string
		status int
		name   string
	}{
		{"/api/ngo/2", http.StatusOK, "Recycle Together"},
		{"/api/ngo/9", http.StatusNotFound, ""},
		{"/api/ngo/abc", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				var got NGO
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, tt.name, got.Name)
			} else {
				assert.Contains(t, w.Body.String(), "NGO not found")
			}
		})
	}
}
