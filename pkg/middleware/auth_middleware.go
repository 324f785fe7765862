package middleware

import (
	"strings"

	"recircle-service/internal/auth"
	"recircle-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDContextKey is the context key for the authenticated user ID
const UserIDContextKey = "user_id"

// AuthMiddleware validates JWT tokens and sets the caller's user ID
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.Error(errors.NewUnauthorized("not authorized, no token", "Header: Authorization"))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Warn("Invalid authorization header format",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.Error(errors.NewUnauthorized("invalid authorization header format", "Expected: Bearer <token>"))
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				logger.Warn("Token expired",
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.Error(errors.NewUnauthorized("token expired", "Token has expired, please login again"))
				c.Abort()
				return
			}

			logger.Warn("Invalid token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err),
			)
			c.Error(errors.NewUnauthorized("not authorized, token failed", err.Error()))
			c.Abort()
			return
		}

		c.Set(UserIDContextKey, claims.Subject)

		logger.Debug("Token validated",
			zap.String("user_id", claims.Subject),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)

		c.Next()
	}
}

// GetUserID returns the authenticated user ID, or "" when unauthenticated
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDContextKey)
}
