package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recircle-service/internal/cache"
	"recircle-service/internal/commands"
	"recircle-service/internal/config"
	"recircle-service/internal/domain"
	"recircle-service/internal/events"
	"recircle-service/internal/query"
	"recircle-service/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingStore counts store round-trips for list and get reads
type countingStore struct {
	*repository.MemoryStore
	counts atomic.Int32
	finds  atomic.Int32
}

func (s *countingStore) CountItems(ctx context.Context, filter query.Filter) (int, error) {
	s.counts.Add(1)
	return s.MemoryStore.CountItems(ctx, filter)
}

func (s *countingStore) FindItemByID(ctx context.Context, id string) (*domain.Item, error) {
	s.finds.Add(1)
	return s.MemoryStore.FindItemByID(ctx, id)
}

type fixture struct {
	service   *ItemService
	store     *countingStore
	cache     *cache.MemoryCache
	clock     clockwork.FakeClock
	publisher *events.InMemoryEventPublisher
}

func testConfig() *config.Config {
	return &config.Config{
		CacheTTL:        60,
		StoreTimeout:    time.Second,
		ListPageSize:    10,
		ListMaxPageSize: 100,
		KafkaGroupID:    "instance-a",
	}
}

func newFixture(t *testing.T) *fixture {
	clock := clockwork.NewFakeClock()
	memCache := cache.NewMemoryCache(cache.WithClock(clock))
	t.Cleanup(func() { memCache.Close() })
	store := &countingStore{MemoryStore: repository.NewMemoryStore()}
	publisher := events.NewInMemoryEventPublisher(zap.NewNop())

	return &fixture{
		service:   NewItemService(store, memCache, publisher, testConfig(), zap.NewNop()),
		store:     store,
		cache:     memCache,
		clock:     clock,
		publisher: publisher,
	}
}

func createCmd(title string) commands.CreateItemCommand {
	return commands.CreateItemCommand{
		Title:       title,
		Description: "in good shape",
		Category:    domain.CategoryFurniture,
		Condition:   domain.ConditionUsedGood,
		Images:      []string{"photo.jpg"},
	}
}

func strPtr(s string) *string { return &s }

func TestList_SecondCallServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)

	first, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	second, err := f.service.List(ctx, ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.store.counts.Load())
	assert.Equal(t, first.Pagination, second.Pagination)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Chair", second.Items[0].Title)
}

func TestList_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := f.service.Create(ctx, "owner", createCmd(fmt.Sprintf("Chair %d", i)))
		require.NoError(t, err)
	}

	last, err := f.service.List(ctx, ListParams{Page: 3, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, Pagination{Page: 3, Limit: 10, Total: 25, Pages: 3}, last.Pagination)
	assert.Len(t, last.Items, 5)
}

func TestList_EmptyResult(t *testing.T) {
	f := newFixture(t)

	page, err := f.service.List(context.Background(), ListParams{Category: domain.CategoryBooks})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Pagination.Pages)
	assert.Equal(t, 0, page.Pagination.Total)
}

func TestList_FilterByCategoryAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.Create(ctx, "owner", createCmd("Oak Chair"))
	require.NoError(t, err)
	_, err = f.service.Create(ctx, "owner", createCmd("Table"))
	require.NoError(t, err)

	page, err := f.service.List(ctx, ListParams{Category: domain.CategoryFurniture, Search: "chair"})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Oak Chair", page.Items[0].Title)
}

func TestList_CacheExpiresAfterTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	// write straight to the store so the cache is not invalidated
	item := createCmd("Lamp").ToItem("owner")
	require.NoError(t, f.store.CreateItem(ctx, item))

	cached, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, cached.Items)

	f.clock.Advance(61 * time.Second)

	fresh, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Len(t, fresh.Items, 1)
	assert.Equal(t, int32(2), f.store.counts.Load())
}

func TestCreate_InvalidatesListPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	_, err = f.service.List(ctx, ListParams{Page: 2})
	require.NoError(t, err)

	item, err := f.service.Create(ctx, "owner", createCmd("Bookshelf"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Store().Len())

	page, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, item.ID, page.Items[0].ID)
	assert.Equal(t, "owner", item.Owner)
	assert.Equal(t, domain.StatusAvailable, item.Status)
}

func TestCreate_ValidationError(t *testing.T) {
	f := newFixture(t)
	cmd := createCmd("Chair")
	cmd.Images = nil

	_, err := f.service.Create(context.Background(), "owner", cmd)

	assert.ErrorIs(t, err, domain.ErrImagesRequired)
	assert.Empty(t, f.publisher.Events())
}

func TestCreate_PublishesEvent(t *testing.T) {
	f := newFixture(t)

	item, err := f.service.Create(context.Background(), "owner", createCmd("Chair"))
	require.NoError(t, err)

	published := f.publisher.Events()
	require.Len(t, published, 1)
	event, ok := published[0].(events.ItemCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, item.ID, event.ItemID)
	assert.Equal(t, "instance-a", event.Origin)
}

func TestGet_CachesItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)

	_, err = f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	found, err := f.service.Get(ctx, item.ID)
	require.NoError(t, err)

	assert.Equal(t, item.ID, found.ID)
	assert.Equal(t, int32(1), f.store.finds.Load())
}

func TestGet_NotFoundIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = f.service.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.Equal(t, int32(2), f.store.finds.Load())
	assert.Equal(t, 0, f.cache.Store().Len())
}

func TestUpdate_ByOwnerInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)
	_, err = f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	_, err = f.service.List(ctx, ListParams{})
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, "owner", commands.UpdateItemCommand{
		ID:    item.ID,
		Title: strPtr("Rocking Chair"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Rocking Chair", updated.Title)
	assert.Equal(t, item.Description, updated.Description)
	found, err := f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rocking Chair", found.Title)
	page, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, "Rocking Chair", page.Items[0].Title)
	assert.IsType(t, events.ItemUpdatedEvent{}, f.publisher.Events()[1])
}

func TestUpdate_ByNonOwnerIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)
	_, err = f.service.Get(ctx, item.ID)
	require.NoError(t, err)

	_, err = f.service.Update(ctx, "intruder", commands.UpdateItemCommand{
		ID:    item.ID,
		Title: strPtr("Stolen"),
	})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	stored, err := f.store.MemoryStore.FindItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", stored.Title)
	_, err = f.cache.Get(ctx, ItemCacheKey(item.ID))
	assert.NoError(t, err)
	assert.Len(t, f.publisher.Events(), 1)
}

func TestUpdate_MissingItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(context.Background(), "owner", commands.UpdateItemCommand{ID: "missing"})

	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestUpdate_InvalidChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)

	_, err = f.service.Update(ctx, "owner", commands.UpdateItemCommand{
		ID:        item.ID,
		Condition: strPtr("Broken"),
	})

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDelete_ByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)
	_, err = f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	_, err = f.service.List(ctx, ListParams{})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, "owner", commands.DeleteItemCommand{ID: item.ID}))

	_, err = f.service.Get(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	page, err := f.service.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.IsType(t, events.ItemDeletedEvent{}, f.publisher.Events()[1])
}

func TestDelete_ByNonOwnerIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)

	err = f.service.Delete(ctx, "intruder", commands.DeleteItemCommand{ID: item.ID})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.store.MemoryStore.FindItemByID(ctx, item.ID)
	assert.NoError(t, err)
}

func TestDelete_MissingItem(t *testing.T) {
	f := newFixture(t)

	err := f.service.Delete(context.Background(), "owner", commands.DeleteItemCommand{ID: "missing"})

	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestListByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.Create(ctx, "owner", createCmd("Chair"))
	require.NoError(t, err)
	_, err = f.service.Create(ctx, "someone-else", createCmd("Table"))
	require.NoError(t, err)

	items, err := f.service.ListByOwner(ctx, "owner")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Chair", items[0].Title)
}

func TestInvalidateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, ItemCacheKey("a"), []byte("{}"), time.Minute))
	require.NoError(t, f.cache.Set(ctx, ItemCacheKey("b"), []byte("{}"), time.Minute))
	require.NoError(t, f.cache.Set(ctx, "items-page=1", []byte("{}"), time.Minute))
	require.NoError(t, f.cache.Set(ctx, "items-page=2", []byte("{}"), time.Minute))

	require.NoError(t, f.service.InvalidateItem(ctx, "a"))

	_, err := f.cache.Get(ctx, ItemCacheKey("b"))
	assert.NoError(t, err)
	assert.Equal(t, 1, f.cache.Store().Len())
}

func TestListCacheKey_Canonical(t *testing.T) {
	filter := query.NewFilter("Books", " old ")
	page := query.NewPage(0, 0, 10, 100)

	key := ListCacheKey(filter, page)

	assert.Equal(t, "items-category=Books&limit=10&page=1&search=old", key)
	assert.Equal(t, key, ListCacheKey(query.NewFilter("Books", "old"), query.NewPage(1, 10, 10, 100)))
}

// slowStore blocks reads until the context ends or release is closed
type slowStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
	once    sync.Once
}

func (s *slowStore) CountItems(ctx context.Context, filter query.Filter) (int, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
		return s.MemoryStore.CountItems(ctx, filter)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func newSlowStore() *slowStore {
	return &slowStore{
		MemoryStore: repository.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func TestList_StoreTimeout(t *testing.T) {
	store := newSlowStore()
	memCache := cache.NewMemoryCache()
	defer memCache.Close()
	cfg := testConfig()
	cfg.StoreTimeout = 20 * time.Millisecond
	service := NewItemService(store, memCache, nil, cfg, zap.NewNop())

	_, err := service.List(context.Background(), ListParams{})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 0, memCache.Store().Len())
}

func TestList_ConcurrentMissesShareOneFetch(t *testing.T) {
	store := newSlowStore()
	memCache := cache.NewMemoryCache()
	defer memCache.Close()
	service := NewItemService(store, memCache, nil, testConfig(), zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	run := func() {
		defer wg.Done()
		_, err := service.List(context.Background(), ListParams{})
		errs <- err
	}

	wg.Add(1)
	go run()
	<-store.entered
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go run()
	}
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestStoreError_PassesDomainErrors(t *testing.T) {
	service := NewItemService(repository.NewMemoryStore(), cache.NewMemoryCache(), nil, testConfig(), zap.NewNop())

	assert.Equal(t, domain.ErrItemNotFound, service.storeError("op", domain.ErrItemNotFound))
	assert.Equal(t, domain.ErrStoreUnavailable, service.storeError("op", fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	other := service.storeError("op", errors.New("disk full"))
	assert.NotErrorIs(t, other, domain.ErrStoreUnavailable)
	assert.ErrorContains(t, other, "disk full")
}
