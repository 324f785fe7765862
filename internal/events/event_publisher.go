package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event type names, carried in the event-type message header
const (
	TypeItemCreated = "ItemCreated"
	TypeItemUpdated = "ItemUpdated"
	TypeItemDeleted = "ItemDeleted"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// ItemCreatedEvent is published after an item is listed
type ItemCreatedEvent struct {
	ItemID     string    `json:"itemId"`
	Owner      string    `json:"user"`
	Category   string    `json:"category"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ItemUpdatedEvent is published after an owner edits an item
type ItemUpdatedEvent struct {
	ItemID     string    `json:"itemId"`
	Owner      string    `json:"user"`
	Category   string    `json:"category"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ItemDeletedEvent is published after an owner removes an item
type ItemDeletedEvent struct {
	ItemID     string    `json:"itemId"`
	Owner      string    `json:"user"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventType returns the header name of a known event, or "Unknown"
func EventType(event interface{}) string {
	switch event.(type) {
	case ItemCreatedEvent:
		return TypeItemCreated
	case ItemUpdatedEvent:
		return TypeItemUpdated
	case ItemDeletedEvent:
		return TypeItemDeleted
	default:
		return "Unknown"
	}
}

// ItemID returns the item an event refers to, used as the partition key
func ItemID(event interface{}) string {
	switch e := event.(type) {
	case ItemCreatedEvent:
		return e.ItemID
	case ItemUpdatedEvent:
		return e.ItemID
	case ItemDeletedEvent:
		return e.ItemID
	}
	return ""
}

// InMemoryEventPublisher records events in process. It is used when Kafka
// is disabled and in tests.
type InMemoryEventPublisher struct {
	logger *zap.Logger
	mu     sync.Mutex
	events []interface{}
}

func NewInMemoryEventPublisher(logger *zap.Logger) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		logger: logger,
		events: make([]interface{}, 0),
	}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.logger.Debug("Event published (in-memory)",
		zap.String("event-type", EventType(event)),
		zap.String("item_id", ItemID(event)),
	)
	return nil
}

// Events returns a snapshot of the recorded events
func (p *InMemoryEventPublisher) Events() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interface{}(nil), p.events...)
}
