package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recircle-service/internal/auth"
	"recircle-service/internal/cache"
	"recircle-service/internal/config"
	"recircle-service/internal/domain"
	"recircle-service/internal/events"
	"recircle-service/internal/query"
	"recircle-service/internal/repository"
	"recircle-service/internal/service"
	"recircle-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flowEnv wires the real store, cache, service and middleware chain
type flowEnv struct {
	router    *gin.Engine
	store     *repository.MemoryStore
	cache     *cache.MemoryCache
	publisher *events.InMemoryEventPublisher
}

func newFlowEnv(t *testing.T) *flowEnv {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := &config.Config{
		CacheTTL:        60,
		StoreTimeout:    time.Second,
		ListPageSize:    10,
		ListMaxPageSize: 100,
		KafkaGroupID:    "instance-a",
	}

	store := repository.NewMemoryStore()
	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { memCache.Close() })
	publisher := events.NewInMemoryEventPublisher(logger)

	itemService := service.NewItemService(store, memCache, publisher, cfg, logger)
	jwtManager := auth.NewJWTManager("integration-secret-key-min-32-chars", time.Hour, logger)
	authHandler := auth.NewAuthHandler(store, jwtManager, logger)
	itemHandler := NewItemHandler(itemService, logger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware(logger))
	router.Use(middleware.ErrorHandler(logger, false))

	requireAuth := middleware.AuthMiddleware(jwtManager, logger)
	idempotent := middleware.IdempotencyMiddleware(middleware.NewCacheRequestIDStore(memCache), logger, 5*time.Minute)
	api := router.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	items := api.Group("/items")
	items.GET("", itemHandler.ListItems)
	items.GET("/myitems", requireAuth, itemHandler.MyItems)
	items.GET("/:id", itemHandler.GetItem)
	items.POST("", requireAuth, idempotent, itemHandler.CreateItem)
	items.PUT("/:id", requireAuth, idempotent, itemHandler.UpdateItem)
	items.DELETE("/:id", requireAuth, idempotent, itemHandler.DeleteItem)

	return &flowEnv{router: router, store: store, cache: memCache, publisher: publisher}
}

func (e *flowEnv) do(method, path, token, requestID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *flowEnv) register(t *testing.T, name, email string) string {
	w := e.do(http.MethodPost, "/api/auth/register", "", "", auth.RegisterRequest{Name: name, Email: email, Password: "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func deskRequest(title string) CreateItemRequest {
	return CreateItemRequest{
		Title:       title,
		Description: "Solid oak",
		Category:    domain.CategoryFurniture,
		Condition:   domain.ConditionUsedGood,
		Images:      []string{"https://example.org/desk.jpg"},
	}
}

func TestItemFlow_Integration_CreateListUpdateDelete(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")

	w := env.do(http.MethodPost, "/api/items", alice, "", deskRequest("Oak desk"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// first list fills the cache, the second is served from it
	w = env.do(http.MethodGet, "/api/items", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hitsBefore := env.cache.Store().Stats().Hits
	w = env.do(http.MethodGet, "/api/items", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, env.cache.Store().Stats().Hits, hitsBefore)

	// a new listing invalidates cached pages
	w = env.do(http.MethodPost, "/api/items", alice, "", deskRequest("Pine shelf"))
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(http.MethodGet, "/api/items", "", "", nil)
	var page service.ItemPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, "Pine shelf", page.Items[0].Title)

	w = env.do(http.MethodPut, "/api/items/"+created.ID, bob, "", map[string]string{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, "/api/items/"+created.ID, alice, "", map[string]string{"title": "Standing desk"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/items/"+created.ID, "", "", nil)
	var fetched domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "Standing desk", fetched.Title)

	w = env.do(http.MethodDelete, "/api/items/"+created.ID, bob, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(http.MethodDelete, "/api/items/"+created.ID, alice, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/items/"+created.ID, "", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	total, err := env.store.CountItems(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	published := env.publisher.Events()
	require.Len(t, published, 4)
	assert.Equal(t, events.TypeItemCreated, events.EventType(published[0]))
	assert.Equal(t, events.TypeItemUpdated, events.EventType(published[2]))
	assert.Equal(t, events.TypeItemDeleted, events.EventType(published[3]))
	assert.Equal(t, created.ID, events.ItemID(published[3]))
}

func TestItemFlow_Integration_IdempotentCreate(t *testing.T) {
	env := newFlowEnv(t)
	token := env.register(t, "Alice", "alice@example.com")

	first := env.do(http.MethodPost, "/api/items", token, "retry-1", deskRequest("Oak desk"))
	require.Equal(t, http.StatusCreated, first.Code)
	second := env.do(http.MethodPost, "/api/items", token, "retry-1", deskRequest("Oak desk"))
	require.Equal(t, http.StatusCreated, second.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
	total, err := env.store.CountItems(context.Background(), query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, env.publisher.Events(), 1)
}

func TestItemFlow_Integration_RequestIDReusedByOtherCallers(t *testing.T) {
	env := newFlowEnv(t)
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")

	w := env.do(http.MethodPost, "/api/items", alice, "", deskRequest("Oak desk"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/api/items/" + created.ID

	w = env.do(http.MethodPut, path, alice, "req-1", map[string]string{"title": "Standing desk"})
	require.Equal(t, http.StatusOK, w.Code)

	// same request ID from a non-owner still hits the ownership check
	w = env.do(http.MethodPut, path, bob, "req-1", map[string]string{"title": "Standing desk"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, path, "", "req-1", map[string]string{"title": "Standing desk"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodDelete, path, bob, "req-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/items", alice, "req-2", deskRequest("Pine shelf"))
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(http.MethodPost, "/api/items", "", "req-2", deskRequest("Pine shelf"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// bob's own create with alice's request ID is a new write, not a replay
	w = env.do(http.MethodPost, "/api/items", bob, "req-2", deskRequest("Lamp"))
	require.Equal(t, http.StatusCreated, w.Code)
	var bobs domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bobs))
	assert.Equal(t, "Lamp", bobs.Title)

	total, err := env.store.CountItems(context.Background(), query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	fetched, err := env.store.FindItemByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standing desk", fetched.Title)
	assert.NotEqual(t, bobs.Owner, fetched.Owner)
}

func TestItemFlow_Integration_MyItems(t *testing.T) {
	env := newFlowEnv(t)
	alice := env.register(t, "Alice", "alice@example.com")
	bob := env.register(t, "Bob", "bob@example.com")

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/items", alice, "", deskRequest("Oak desk")).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/items", bob, "", deskRequest("Lamp")).Code)

	w := env.do(http.MethodGet, "/api/items/myitems", bob, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Lamp", mine[0].Title)

	w = env.do(http.MethodGet, "/api/items/myitems", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
