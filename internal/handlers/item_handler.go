package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"recircle-service/internal/commands"
	"recircle-service/internal/domain"
	"recircle-service/internal/service"
	"recircle-service/pkg/errors"
	"recircle-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemService is the part of service.ItemService the handler needs
type ItemService interface {
	List(ctx context.Context, params service.ListParams) (*service.ItemPage, error)
	Get(ctx context.Context, id string) (*domain.Item, error)
	Create(ctx context.Context, owner string, cmd commands.CreateItemCommand) (*domain.Item, error)
	Update(ctx context.Context, caller string, cmd commands.UpdateItemCommand) (*domain.Item, error)
	Delete(ctx context.Context, caller string, cmd commands.DeleteItemCommand) error
	ListByOwner(ctx context.Context, owner string) ([]domain.Item, error)
}

type ItemHandler struct {
	logger  *zap.Logger
	service ItemService
}

func NewItemHandler(service ItemService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		logger:  logger,
		service: service,
	}
}

// ListItems handles GET /api/items
// @Summary      List items
// @Description  Returns a page of items, newest first. Results are served from the cache when possible.
// @Tags         items
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 10, max 100)"
// @Param        category  query     string  false  "Exact category"
// @Param        search    query     string  false  "Case-insensitive text matched against title and description"
// @Param        keyword   query     string  false  "Alias of search"
// @Success      200       {object}  service.ItemPage
// @Failure      503       {object}  errors.StandardError  "Store unavailable"
// @Router       /items [get]
func (h *ItemHandler) ListItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	search := c.Query("search")
	if search == "" {
		search = c.Query("keyword")
	}

	result, err := h.service.List(c.Request.Context(), service.ListParams{
		Page:     page,
		Limit:    limit,
		Category: c.Query("category"),
		Search:   search,
	})
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetItem handles GET /api/items/:id
// @Summary      Get item by ID
// @Tags         items
// @Produce      json
// @Param        id   path      string  true  "Item ID (UUID)"
// @Success      200  {object}  domain.Item
// @Failure      400  {object}  errors.StandardError  "Malformed ID"
// @Failure      404  {object}  errors.StandardError  "Item not found"
// @Failure      503  {object}  errors.StandardError  "Store unavailable"
// @Router       /items/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, id)
		return
	}

	c.JSON(http.StatusOK, item)
}

// CreateItem handles POST /api/items
// @Summary      List a new item
// @Description  Creates an item owned by the caller. Send X-Request-ID to make retries idempotent for 5 minutes.
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string             false  "Idempotency key"
// @Param        request       body      CreateItemRequest  true   "Item"
// @Success      201           {object}  domain.Item
// @Failure      400           {object}  errors.StandardError  "Missing or invalid field"
// @Failure      401           {object}  errors.StandardError  "Not authenticated"
// @Failure      503           {object}  errors.StandardError  "Store unavailable"
// @Router       /items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request", zap.Error(err))
		c.Error(errors.NewInvalidRequest("invalid request body", err.Error()))
		c.Abort()
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.GetUserID(c), req.ToCommand())
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateItem handles PUT /api/items/:id
// @Summary      Update an item
// @Description  Partially updates an item. Only the owner may update it.
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Item ID (UUID)"
// @Param        request  body      UpdateItemRequest  true  "Fields to change"
// @Success      200      {object}  domain.Item
// @Failure      400      {object}  errors.StandardError  "Malformed ID or invalid field"
// @Failure      401      {object}  errors.StandardError  "Not authenticated"
// @Failure      403      {object}  errors.StandardError  "Caller is not the owner"
// @Failure      404      {object}  errors.StandardError  "Item not found"
// @Router       /items/{id} [put]
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request", zap.Error(err))
		c.Error(errors.NewInvalidRequest("invalid request body", err.Error()))
		c.Abort()
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.GetUserID(c), req.ToCommand(id))
	if err != nil {
		h.handleError(c, err, id)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/:id
// @Summary      Delete an item
// @Description  Permanently removes an item. Only the owner may delete it.
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Item ID (UUID)"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  errors.StandardError  "Malformed ID"
// @Failure      401  {object}  errors.StandardError  "Not authenticated"
// @Failure      403  {object}  errors.StandardError  "Caller is not the owner"
// @Failure      404  {object}  errors.StandardError  "Item not found"
// @Router       /items/{id} [delete]
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetUserID(c), commands.DeleteItemCommand{ID: id}); err != nil {
		h.handleError(c, err, id)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "item removed"})
}

// MyItems handles GET /api/items/myitems
// @Summary      List the caller's items
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Item
// @Failure      401  {object}  errors.StandardError  "Not authenticated"
// @Router       /items/myitems [get]
func (h *ItemHandler) MyItems(c *gin.Context) {
	items, err := h.service.ListByOwner(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, items)
}

// itemID parses the :id parameter, reporting 400 when it is not a UUID
func (h *ItemHandler) itemID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.Error(errors.NewInvalidRequest("invalid item ID", "ID must be a valid UUID"))
		c.Abort()
		return "", false
	}
	return id.String(), true
}

// handleError maps service errors onto standard responses
func (h *ItemHandler) handleError(c *gin.Context, err error, id string) {
	var validationErr *domain.ValidationError
	switch {
	case stderrors.Is(err, domain.ErrItemNotFound):
		c.Error(errors.NewItemNotFound(id))
	case stderrors.Is(err, domain.ErrForbidden):
		c.Error(errors.NewForbidden(err.Error(), ""))
	case stderrors.As(err, &validationErr):
		c.Error(errors.NewValidationError(validationErr.Message, validationErr.Field))
	case stderrors.Is(err, domain.ErrStoreUnavailable):
		c.Error(errors.NewServiceUnavailable("store unavailable, try again later", nil))
	default:
		h.logger.Error("Item request failed", zap.Error(err))
		c.Error(errors.NewInternalError("failed to process item request", err))
	}
	c.Abort()
}
