package auth

import (
	stderrors "errors"
	"net/http"
	"time"

	"recircle-service/internal/domain"
	"recircle-service/internal/repository"
	"recircle-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles registration, login and profile requests
type AuthHandler struct {
	users      repository.UserRepository
	jwtManager *JWTManager
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users repository.UserRepository, jwtManager *JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required" example:"Ada Lovelace"`
	Email    string `json:"email" binding:"required,email" example:"ada@example.com"`
	Password string `json:"password" binding:"required,min=6" example:"secret123"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// LoginResponse represents the response of register and login
type LoginResponse struct {
	ID        string    `json:"id" example:"5b1c7a4e-0c1f-4a44-9d3e-1f0c2b3a4d5e"`
	Name      string    `json:"name" example:"Ada Lovelace"`
	Email     string    `json:"email" example:"ada@example.com"`
	Role      string    `json:"role" example:"user"`
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Type      string    `json:"type" example:"Bearer"`
	ExpiresIn int       `json:"expires_in" example:"2592000"`
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-15T12:00:00Z"`
}

// ProfileResponse represents the authenticated user's profile
type ProfileResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register handles POST /api/auth/register
// @Summary      Register a new account
// @Description  Creates a user and returns a JWT token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "Account details"
// @Success      201      {object}  LoginResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      409      {object}  errors.StandardError
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid register request", zap.Error(err))
		c.Error(errors.NewInvalidRequest("invalid request body", err.Error()))
		c.Abort()
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.Error(errors.NewInternalError("failed to hash password", err))
		c.Abort()
		return
	}

	user := domain.NewUser(req.Name, req.Email, string(hash))
	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		if stderrors.Is(err, domain.ErrEmailTaken) {
			c.Error(errors.NewConflict("user already exists", "Field: email"))
		} else {
			c.Error(errors.NewInternalError("failed to create user", err))
		}
		c.Abort()
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID))
	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles POST /api/auth/login
// @Summary      Login and get JWT token
// @Description  Authenticates a user by email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Login credentials"
// @Success      200      {object}  LoginResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      401      {object}  errors.StandardError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request", zap.Error(err))
		c.Error(errors.NewValidationError("invalid request", "email or password"))
		c.Abort()
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), domain.NormalizeEmail(req.Email))
	if err != nil && !stderrors.Is(err, domain.ErrUserNotFound) {
		c.Error(errors.NewInternalError("failed to load user", err))
		c.Abort()
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn("Invalid credentials")
		c.Error(errors.NewUnauthorized("invalid email or password", ""))
		c.Abort()
		return
	}

	h.logger.Info("User logged in", zap.String("user_id", user.ID))
	h.respondWithToken(c, http.StatusOK, user)
}

// Profile handles GET /api/users/profile
// @Summary      Get the caller's profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ProfileResponse
// @Failure      401  {object}  errors.StandardError
// @Failure      404  {object}  errors.StandardError
// @Router       /users/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Error(errors.NewUnauthorized("not authorized", ""))
		c.Abort()
		return
	}

	user, err := h.users.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		if stderrors.Is(err, domain.ErrUserNotFound) {
			c.Error(errors.NewResourceNotFound("user", userID))
		} else {
			c.Error(errors.NewInternalError("failed to load user", err))
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *domain.User) {
	token, expiresAt, err := h.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token", err))
		c.Abort()
		return
	}

	c.JSON(status, LoginResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: int(h.jwtManager.TTL().Seconds()),
		ExpiresAt: expiresAt,
	})
}
