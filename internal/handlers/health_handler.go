package handlers

import (
	"context"
	"net/http"
	"time"

	"recircle-service/internal/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  Pinger
	cache  cache.Cache
	logger *zap.Logger
}

func NewHealthHandler(store Pinger, c cache.Cache, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		cache:  c,
		logger: logger,
	}
}

// Health godoc
// @Summary      Health check endpoint
// @Description  Reports the service status, the store connectivity and, for the in-process cache, its counters
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Service healthy"
// @Failure      503  {object}  HealthResponse  "Store unreachable"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Service:   "recircle-service",
		Store:     "up",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("Store health check failed", zap.Error(err))
		response.Status = "degraded"
		response.Store = "down"
		status = http.StatusServiceUnavailable
	}

	if memCache, ok := h.cache.(*cache.MemoryCache); ok {
		stats := memCache.Store().Stats()
		response.Cache = &CacheHealth{
			Entries:       memCache.Store().Len(),
			Hits:          stats.Hits,
			Misses:        stats.Misses,
			Expirations:   stats.Expirations,
			Invalidations: stats.Invalidations,
		}
	}

	c.JSON(status, response)
}
