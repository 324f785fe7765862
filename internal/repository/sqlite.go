package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"recircle-service/internal/domain"
	"recircle-service/internal/query"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// timestamps are stored as fixed-width UTC text so that they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteDriver is go-sqlite3 with the functions the item queries need
const sqliteDriver = "sqlite3_recircle"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(query.SQLLowerFunc, strings.ToLower, true)
		},
	})
}

const itemColumns = `id, user_id, title, description, category, item_condition, item_type, status, images, created_at, updated_at`

// SQLiteStore persists items and users in SQLite. Writes go through a
// single writer lock; reads run concurrently under WAL.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex // single writer
}

// NewSQLiteStore opens the database at path and creates the schema
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriver, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite store ready", zap.String("path", path))
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		item_condition TEXT NOT NULL,
		item_type TEXT NOT NULL DEFAULT 'Item',
		status TEXT NOT NULL DEFAULT 'Available',
		images TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK(item_type IN ('Item', 'Scrap'))
	);

	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateItem inserts a new item
func (s *SQLiteStore) CreateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	images, err := json.Marshal(item.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}

	stmt := `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, stmt,
		item.ID, item.Owner, item.Title, item.Description,
		item.Category, item.Condition, item.ItemType, item.Status, string(images),
		item.CreatedAt.UTC().Format(timeLayout), item.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// UpdateItem overwrites the mutable fields of an item
func (s *SQLiteStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	images, err := json.Marshal(item.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}

	stmt := `
		UPDATE items
		SET title = ?, description = ?, category = ?, item_condition = ?, item_type = ?,
			status = ?, images = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, stmt,
		item.Title, item.Description, item.Category, item.Condition, item.ItemType,
		item.Status, string(images), item.UpdatedAt.UTC().Format(timeLayout),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireAffected(result, domain.ErrItemNotFound)
}

// DeleteItem removes an item permanently
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireAffected(result, domain.ErrItemNotFound)
}

// FindItemByID finds an item by ID
func (s *SQLiteStore) FindItemByID(ctx context.Context, id string) (*domain.Item, error) {
	stmt := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`

	item, err := scanItem(s.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item by ID: %w", err)
	}
	return item, nil
}

// FindItems lists matching items, newest first
func (s *SQLiteStore) FindItems(ctx context.Context, filter query.Filter, page query.Page) ([]domain.Item, error) {
	where, args := filter.SQL()
	stmt := `SELECT ` + itemColumns + ` FROM items`
	if where != "" {
		stmt += ` WHERE ` + where
	}
	stmt += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Skip())

	return s.queryItems(ctx, stmt, args...)
}

// CountItems counts matching items
func (s *SQLiteStore) CountItems(ctx context.Context, filter query.Filter) (int, error) {
	where, args := filter.SQL()
	stmt := `SELECT COUNT(*) FROM items`
	if where != "" {
		stmt += ` WHERE ` + where
	}

	var total int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, nil
}

// FindItemsByOwner lists every item of owner, newest first
func (s *SQLiteStore) FindItemsByOwner(ctx context.Context, owner string) ([]domain.Item, error) {
	stmt := `SELECT ` + itemColumns + ` FROM items WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`
	return s.queryItems(ctx, stmt, owner)
}

func (s *SQLiteStore) queryItems(ctx context.Context, stmt string, args ...any) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// CreateUser inserts a new account. A duplicate email yields ErrEmailTaken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, stmt,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID finds an account by ID
func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, `id = ?`, id)
}

// FindUserByEmail finds an account by its normalized email
func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, `email = ?`, email)
}

func (s *SQLiteStore) findUser(ctx context.Context, where string, arg string) (*domain.User, error) {
	stmt := `SELECT id, name, email, password_hash, role, created_at FROM users WHERE ` + where

	var user domain.User
	var createdAt string
	err := s.db.QueryRowContext(ctx, stmt, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.CreatedAt = parseTime(createdAt)
	return &user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var images, createdAt, updatedAt string

	err := row.Scan(
		&item.ID, &item.Owner, &item.Title, &item.Description,
		&item.Category, &item.Condition, &item.ItemType, &item.Status, &images,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
