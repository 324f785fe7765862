package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"recircle-service/internal/config"
	"recircle-service/internal/events"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Invalidator drops cached state for an item and every list page
type Invalidator interface {
	InvalidateItem(ctx context.Context, id string) error
}

// Consumer reads item events published by other instances and invalidates
// the local cache
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *cacheInvalidationHandler
	logger        *zap.Logger
	groupID       string
	topics        []string
	wg            sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer for cache invalidation
func NewConsumer(cfg *config.Config, invalidator Invalidator, logger *zap.Logger) (*Consumer, error) {
	logger.Info("Creating Kafka consumer",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	// only events newer than this instance's cache matter
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	consumerGroup, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaGroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		handler:       newCacheInvalidationHandler(invalidator, cfg.KafkaGroupID, logger),
		logger:        logger,
		groupID:       cfg.KafkaGroupID,
		topics:        []string{cfg.KafkaTopicItems},
	}, nil
}

// Start consumes in the background until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
				c.logger.Error("Error from consumer", zap.Error(err))
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		defer c.wg.Done()
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("Consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started for cache invalidation",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.groupID),
	)
}

// Close closes the consumer group and waits for the loops to exit
func (c *Consumer) Close() error {
	err := c.consumerGroup.Close()
	c.wg.Wait()
	return err
}

// cacheInvalidationHandler handles Kafka messages for cache invalidation
type cacheInvalidationHandler struct {
	invalidator Invalidator
	origin      string
	logger      *zap.Logger
}

func newCacheInvalidationHandler(invalidator Invalidator, origin string, logger *zap.Logger) *cacheInvalidationHandler {
	return &cacheInvalidationHandler{
		invalidator: invalidator,
		origin:      origin,
		logger:      logger,
	}
}

// Setup is run at the beginning of a new session
func (h *cacheInvalidationHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session
func (h *cacheInvalidationHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages for cache invalidation
func (h *cacheInvalidationHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := h.handleMessage(session.Context(), message); err != nil {
				h.logger.Error("Failed to invalidate cache",
					zap.String("topic", message.Topic),
					zap.Int64("offset", message.Offset),
					zap.Error(err),
				)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handleMessage invalidates the item named by an event. Events published
// by this instance are skipped; it already invalidated before publishing.
func (h *cacheInvalidationHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	eventType := header(message.Headers, "event-type")
	switch eventType {
	case events.TypeItemCreated, events.TypeItemUpdated, events.TypeItemDeleted:
	case "":
		h.logger.Warn("Message without event type, skipping",
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return nil
	default:
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	if origin := header(message.Headers, "origin"); origin != "" && origin == h.origin {
		return nil
	}

	var payload struct {
		ItemID string `json:"itemId"`
	}
	if err := json.Unmarshal(message.Value, &payload); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	h.logger.Debug("Invalidating item cache",
		zap.String("event_type", eventType),
		zap.String("item_id", payload.ItemID),
	)
	return h.invalidator.InvalidateItem(ctx, payload.ItemID)
}

func header(headers []*sarama.RecordHeader, key string) string {
	for _, h := range headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
