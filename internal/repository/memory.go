package repository

import (
	"context"
	"sort"
	"sync"

	"recircle-service/internal/domain"
	"recircle-service/internal/query"
)

// MemoryStore keeps items and users in process memory. It is used for
// local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]domain.Item
	users map[string]domain.User
	// insertion order breaks ties between equal creation times
	seq  map[string]int64
	next int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]domain.Item),
		users: make(map[string]domain.User),
		seq:   make(map[string]int64),
	}
}

func (s *MemoryStore) CreateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.seq[item.ID] = s.next
	s.items[item.ID] = copyItem(*item)
	return nil
}

func (s *MemoryStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; !exists {
		return domain.ErrItemNotFound
	}
	s.items[item.ID] = copyItem(*item)
	return nil
}

func (s *MemoryStore) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return domain.ErrItemNotFound
	}
	delete(s.items, id)
	delete(s.seq, id)
	return nil
}

func (s *MemoryStore) FindItemByID(ctx context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, exists := s.items[id]
	if !exists {
		return nil, domain.ErrItemNotFound
	}
	found := copyItem(item)
	return &found, nil
}

func (s *MemoryStore) FindItems(ctx context.Context, filter query.Filter, page query.Page) ([]domain.Item, error) {
	matched := s.matching(func(item domain.Item) bool {
		return filter.Match(item.Category, item.Title, item.Description)
	})

	start := page.Skip()
	if start >= len(matched) {
		return []domain.Item{}, nil
	}
	end := start + page.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *MemoryStore) CountItems(ctx context.Context, filter query.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		if filter.Match(item.Category, item.Title, item.Description) {
			total++
		}
	}
	return total, nil
}

func (s *MemoryStore) FindItemsByOwner(ctx context.Context, owner string) ([]domain.Item, error) {
	return s.matching(func(item domain.Item) bool {
		return item.Owner == owner
	}), nil
}

// matching returns copies of the items accepted by keep, newest first.
func (s *MemoryStore) matching(keep func(domain.Item) bool) []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if keep(item) {
			items = append(items, copyItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return s.seq[items[i].ID] > s.seq[items[j].ID]
	})
	return items
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyItem(item domain.Item) domain.Item {
	item.Images = append([]string(nil), item.Images...)
	return item
}
