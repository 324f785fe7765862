package repository

import (
	"context"
	"fmt"

	"recircle-service/internal/config"
	"recircle-service/internal/domain"
	"recircle-service/internal/query"

	"go.uber.org/zap"
)

// ItemRepository defines the interface for item persistence
type ItemRepository interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	UpdateItem(ctx context.Context, item *domain.Item) error
	DeleteItem(ctx context.Context, id string) error
	FindItemByID(ctx context.Context, id string) (*domain.Item, error)
	// FindItems returns the window of matching items, newest first.
	FindItems(ctx context.Context, filter query.Filter, page query.Page) ([]domain.Item, error)
	CountItems(ctx context.Context, filter query.Filter) (int, error)
	FindItemsByOwner(ctx context.Context, owner string) ([]domain.Item, error)
}

// UserRepository defines the interface for account persistence
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Store is a backend serving both repositories
type Store interface {
	ItemRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}

// NewStore opens the backend selected by cfg.StoreDriver
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case config.StoreMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
