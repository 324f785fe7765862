package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"recircle-service/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader is the HTTP header name for request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the context key for request ID
	RequestIDContextKey = "request_id"
	// requestIDProvidedKey marks requests whose ID came from the client
	requestIDProvidedKey = "request_id_provided"

	idempotencyKeyPrefix = "idempotency-"
)

var ErrRequestIDNotFound = stderrors.New("request ID not found")

// StoredResponse is a replayable response
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// RequestIDStore stores processed request IDs for idempotency
type RequestIDStore interface {
	Store(ctx context.Context, key string, response StoredResponse, ttl time.Duration) error
	// Get returns ErrRequestIDNotFound when nothing is stored under key
	Get(ctx context.Context, key string) (*StoredResponse, error)
}

// CacheRequestIDStore keeps responses in the shared cache, so replays work
// across instances when the cache is Redis
type CacheRequestIDStore struct {
	cache cache.Cache
}

func NewCacheRequestIDStore(c cache.Cache) *CacheRequestIDStore {
	return &CacheRequestIDStore{cache: c}
}

func (s *CacheRequestIDStore) Store(ctx context.Context, key string, response StoredResponse, ttl time.Duration) error {
	return cache.SetJSON(ctx, s.cache, idempotencyKeyPrefix+key, response, ttl)
}

func (s *CacheRequestIDStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	var response StoredResponse
	if err := cache.GetJSON(ctx, s.cache, idempotencyKeyPrefix+key, &response); err != nil {
		if stderrors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrRequestIDNotFound
		}
		return nil, err
	}
	return &response, nil
}

// RequestIDMiddleware extracts or generates X-Request-ID header
func RequestIDMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		} else {
			c.Set(requestIDProvidedKey, true)
		}

		c.Set(RequestIDContextKey, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDContextKey, requestID))
		c.Header(RequestIDHeader, requestID)

		logger.Debug("Request ID assigned",
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the Gin context
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDContextKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// IdempotencyMiddleware replays the stored 2xx response of a write request
// whose client-supplied X-Request-ID was already processed by the same
// caller, and stores the response of new ones for ttl. It must run after
// AuthMiddleware; requests without an authenticated caller are never
// replayed or stored.
func IdempotencyMiddleware(store RequestIDStore, logger *zap.Logger, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if !isWrite(c.Request.Method) || !c.GetBool(requestIDProvidedKey) || userID == "" {
			c.Next()
			return
		}

		requestID := GetRequestID(c)
		key := idempotencyKey(requestID, userID, c.Request.Method, c.Request.URL.Path)

		stored, err := store.Get(c.Request.Context(), key)
		switch {
		case err == nil:
			logger.Info("Duplicate request detected, returning stored response",
				zap.String("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		case !stderrors.Is(err, ErrRequestIDNotFound):
			// fail open
			logger.Warn("Error reading stored response",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}

		writer := &responseWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || len(writer.body) == 0 {
			return
		}
		response := StoredResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body,
		}
		if err := store.Store(c.Request.Context(), key, response, ttl); err != nil {
			logger.Warn("Failed to store response for idempotency",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
	}
}

// idempotencyKey scopes a request ID to the caller and the route
func idempotencyKey(requestID, userID, method, path string) string {
	return requestID + ":" + userID + ":" + method + ":" + path
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the response body
type responseWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, s...)
	return w.ResponseWriter.WriteString(s)
}

