package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recircle-service/internal/domain"
	"recircle-service/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	itemsCollection = "items"
	usersCollection = "users"
)

// newestFirst sorts by creation time, breaking ties by id
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// MongoStore persists items and users in MongoDB
type MongoStore struct {
	client *mongo.Client
	items  *mongo.Collection
	users  *mongo.Collection
	logger *zap.Logger
}

// NewMongoStore connects to uri and prepares the collections and indexes
func NewMongoStore(ctx context.Context, uri, database string, logger *zap.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	store := &MongoStore{
		client: client,
		items:  db.Collection(itemsCollection),
		users:  db.Collection(usersCollection),
		logger: logger,
	}

	if err := store.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Info("MongoDB store ready", zap.String("database", database))
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateItem(ctx context.Context, item *domain.Item) error {
	if _, err := s.items.InsertOne(ctx, item); err != nil {
		return wrapMongo("failed to create item", err)
	}
	return nil
}

func (s *MongoStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	result, err := s.items.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	if err != nil {
		return wrapMongo("failed to update item", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *MongoStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapMongo("failed to delete item", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *MongoStore) FindItemByID(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrItemNotFound
		}
		return nil, wrapMongo("failed to find item by ID", err)
	}
	return &item, nil
}

func (s *MongoStore) FindItems(ctx context.Context, filter query.Filter, page query.Page) ([]domain.Item, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit()))
	return s.findItems(ctx, filter.BSON(), opts)
}

func (s *MongoStore) CountItems(ctx context.Context, filter query.Filter) (int, error) {
	total, err := s.items.CountDocuments(ctx, filter.BSON())
	if err != nil {
		return 0, wrapMongo("failed to count items", err)
	}
	return int(total), nil
}

func (s *MongoStore) FindItemsByOwner(ctx context.Context, owner string) ([]domain.Item, error) {
	return s.findItems(ctx, bson.M{"user": owner}, options.Find().SetSort(newestFirst))
}

func (s *MongoStore) findItems(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Item, error) {
	cursor, err := s.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongo("failed to query items", err)
	}
	defer cursor.Close(ctx)

	items := make([]domain.Item, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, wrapMongo("failed to decode items", err)
	}
	return items, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *domain.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return wrapMongo("failed to create user", err)
	}
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, wrapMongo("failed to find user", err)
	}
	return &user, nil
}

// wrapMongo marks timeouts and network failures as ErrStoreUnavailable.
func wrapMongo(msg string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %v", msg, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
