// Package service holds the item query service: cache-then-store reads and
// owner-checked writes that invalidate the cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"recircle-service/internal/cache"
	"recircle-service/internal/commands"
	"recircle-service/internal/config"
	"recircle-service/internal/domain"
	"recircle-service/internal/events"
	"recircle-service/internal/query"
	"recircle-service/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	listKeyPrefix = "items-"
	itemKeyPrefix = "item-"
)

// ListParams are the raw listing parameters of a request. Zero values
// select the defaults.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

// Pagination describes the window returned by List
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ItemPage is one page of a listing
type ItemPage struct {
	Items      []domain.Item `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// ItemService orchestrates item reads through the cache and owner-checked
// writes against the store
type ItemService struct {
	repo         repository.ItemRepository
	cache        cache.Cache
	publisher    events.EventPublisher
	logger       *zap.Logger
	cacheTTL     time.Duration
	storeTimeout time.Duration
	pageSize     int
	maxPageSize  int
	origin       string
	group        singleflight.Group
}

// NewItemService creates the service. publisher may be nil.
func NewItemService(repo repository.ItemRepository, c cache.Cache, publisher events.EventPublisher, cfg *config.Config, logger *zap.Logger) *ItemService {
	return &ItemService{
		repo:         repo,
		cache:        c,
		publisher:    publisher,
		logger:       logger,
		cacheTTL:     cache.TTL(cfg.CacheTTL),
		storeTimeout: cfg.StoreTimeout,
		pageSize:     cfg.ListPageSize,
		maxPageSize:  cfg.ListMaxPageSize,
		origin:       cfg.KafkaGroupID,
	}
}

// ListCacheKey is the cache key of a normalized listing request
func ListCacheKey(filter query.Filter, page query.Page) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page.Number))
	values.Set("limit", strconv.Itoa(page.Size))
	values.Set("category", filter.Category)
	values.Set("search", filter.Keyword)
	return listKeyPrefix + values.Encode()
}

// ItemCacheKey is the cache key of a single item
func ItemCacheKey(id string) string {
	return itemKeyPrefix + id
}

// List returns one page of matching items, newest first
func (s *ItemService) List(ctx context.Context, params ListParams) (*ItemPage, error) {
	filter := query.NewFilter(params.Category, params.Search)
	page := query.NewPage(params.Page, params.Limit, s.pageSize, s.maxPageSize)
	key := ListCacheKey(filter, page)

	var cached ItemPage
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()

		total, err := s.repo.CountItems(storeCtx, filter)
		if err != nil {
			return nil, s.storeError("count items", err)
		}
		items, err := s.repo.FindItems(storeCtx, filter, page)
		if err != nil {
			return nil, s.storeError("find items", err)
		}

		itemPage := &ItemPage{
			Items: items,
			Pagination: Pagination{
				Page:  page.Number,
				Limit: page.Size,
				Total: total,
				Pages: page.Pages(total),
			},
		}
		s.writeCache(ctx, key, itemPage)
		return itemPage, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ItemPage), nil
}

// Get returns one item by ID
func (s *ItemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	key := ItemCacheKey(id)

	var cached domain.Item
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()

		item, err := s.repo.FindItemByID(storeCtx, id)
		if err != nil {
			return nil, s.storeError("find item", err)
		}
		s.writeCache(ctx, key, item)
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Item), nil
}

// Create lists a new item owned by owner
func (s *ItemService) Create(ctx context.Context, owner string, cmd commands.CreateItemCommand) (*domain.Item, error) {
	item := cmd.ToItem(owner)
	if err := item.Validate(); err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.repo.CreateItem(storeCtx, item); err != nil {
		return nil, s.storeError("create item", err)
	}

	s.invalidateLists(ctx)
	s.publish(ctx, events.ItemCreatedEvent{
		ItemID:     item.ID,
		Owner:      item.Owner,
		Category:   item.Category,
		Origin:     s.origin,
		OccurredAt: item.CreatedAt,
	})

	s.logger.Info("Item created",
		zap.String("item_id", item.ID),
		zap.String("user_id", owner),
	)
	return item, nil
}

// Update applies a partial update. Only the owner may update an item.
func (s *ItemService) Update(ctx context.Context, caller string, cmd commands.UpdateItemCommand) (*domain.Item, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	item, err := s.ownedItem(storeCtx, caller, cmd.ID)
	if err != nil {
		return nil, err
	}

	updated, err := item.Apply(cmd.Changes())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItem(storeCtx, updated); err != nil {
		return nil, s.storeError("update item", err)
	}

	s.invalidate(ctx, updated.ID)
	s.publish(ctx, events.ItemUpdatedEvent{
		ItemID:     updated.ID,
		Owner:      updated.Owner,
		Category:   updated.Category,
		Origin:     s.origin,
		OccurredAt: updated.UpdatedAt,
	})

	s.logger.Info("Item updated",
		zap.String("item_id", updated.ID),
		zap.String("user_id", caller),
	)
	return updated, nil
}

// Delete permanently removes an item. Only the owner may delete it.
func (s *ItemService) Delete(ctx context.Context, caller string, cmd commands.DeleteItemCommand) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	item, err := s.ownedItem(storeCtx, caller, cmd.ID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(storeCtx, item.ID); err != nil {
		return s.storeError("delete item", err)
	}

	s.invalidate(ctx, item.ID)
	s.publish(ctx, events.ItemDeletedEvent{
		ItemID:     item.ID,
		Owner:      item.Owner,
		Origin:     s.origin,
		OccurredAt: time.Now().UTC(),
	})

	s.logger.Info("Item deleted",
		zap.String("item_id", item.ID),
		zap.String("user_id", caller),
	)
	return nil
}

// ListByOwner returns every item of owner, newest first. It is not cached.
func (s *ItemService) ListByOwner(ctx context.Context, owner string) ([]domain.Item, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	items, err := s.repo.FindItemsByOwner(storeCtx, owner)
	if err != nil {
		return nil, s.storeError("find items by owner", err)
	}
	return items, nil
}

// InvalidateItem drops the cached item and every cached list page
func (s *ItemService) InvalidateItem(ctx context.Context, id string) error {
	var errs []error
	if id != "" {
		if err := s.cache.Delete(ctx, ItemCacheKey(id)); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", ItemCacheKey(id), err))
		}
	}
	if _, err := s.cache.DeleteByPattern(ctx, cache.Prefix(listKeyPrefix)); err != nil {
		errs = append(errs, fmt.Errorf("delete list pages: %w", err))
	}
	return errors.Join(errs...)
}

// ownedItem loads an item from the store and checks that caller owns it.
// The check always runs before any mutation.
func (s *ItemService) ownedItem(ctx context.Context, caller, id string) (*domain.Item, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, s.storeError("find item", err)
	}
	if !item.IsOwnedBy(caller) {
		return nil, domain.ErrForbidden
	}
	return item, nil
}

// storeContext bounds a store call. The returned context survives caller
// cancellation so a shared singleflight fetch is not aborted by one caller.
func (s *ItemService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(context.WithoutCancel(ctx))
	}
	return context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
}

// storeError passes domain errors through and maps timeouts and
// connectivity failures to ErrStoreUnavailable.
func (s *ItemService) storeError(op string, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr != domain.ErrStoreUnavailable {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrStoreUnavailable) {
		s.logger.Error("Store unavailable", zap.String("operation", op), zap.Error(err))
		return domain.ErrStoreUnavailable
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *ItemService) readCache(ctx context.Context, key string, dest interface{}) bool {
	err := cache.GetJSON(ctx, s.cache, key, dest)
	if err == nil {
		s.logger.Debug("Cache hit", zap.String("key", key))
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Failed to read cache", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *ItemService) writeCache(ctx context.Context, key string, value interface{}) {
	if err := cache.SetJSON(ctx, s.cache, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *ItemService) invalidateLists(ctx context.Context) {
	if _, err := s.cache.DeleteByPattern(ctx, cache.Prefix(listKeyPrefix)); err != nil {
		s.logger.Error("Failed to invalidate list cache", zap.Error(err))
	}
}

func (s *ItemService) invalidate(ctx context.Context, id string) {
	if err := s.InvalidateItem(ctx, id); err != nil {
		s.logger.Error("Failed to invalidate item cache", zap.String("item_id", id), zap.Error(err))
	}
}

// publish sends an event without failing the write that produced it
func (s *ItemService) publish(ctx context.Context, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("event_type", events.EventType(event)),
			zap.Error(err),
		)
	}
}
