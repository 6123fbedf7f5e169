package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channels carrying bot lifecycle events.
const (
	PostPublishedChannel = "bot:post_published"
	PriceFetchedChannel  = "bot:price_fetched"
	NewsFetchedChannel   = "bot:news_fetched"
	BotStatusChannel     = "bot:status"

	defaultPublishTimeout = 5 * time.Second
)

var (
	ErrNilRedisClient  = errors.New("event broadcaster: redis client is not configured")
	ErrPublishFailed   = errors.New("event broadcaster: failed to publish message")
	ErrSubscribeFailed = errors.New("event broadcaster: failed to subscribe to channel")
)

// Message is the envelope every broadcast event is wrapped in.
type Message struct {
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// PostPublishedEvent is broadcast whenever the Publisher completes a cycle
// that ends in a successful post.
type PostPublishedEvent struct {
	ExternalPostID string  `json:"external_post_id"`
	ContentType    string  `json:"content_type"`
	PriceUSD       float64 `json:"price_usd"`
	ChangePct      float64 `json:"change_pct"`
}

// PriceFetchedEvent is broadcast every time a fresh BTC price is recorded.
type PriceFetchedEvent struct {
	PriceUSD  float64 `json:"price_usd"`
	ChangePct float64 `json:"change_pct"`
	Source    string  `json:"source"`
}

// NewsFetchedEvent is broadcast after a news ingestion cycle completes.
type NewsFetchedEvent struct {
	FetchedCount int `json:"fetched_count"`
	NewCount     int `json:"new_count"`
}

// MessageHandler is a callback invoked for each message received on a
// subscribed channel or pattern.
type MessageHandler func(channel string, message []byte) error

// EventBroadcaster publishes bot lifecycle events over Redis Pub/Sub and
// lets the admin websocket surface subscribe to them.
type EventBroadcaster interface {
	PublishPostPublished(ctx context.Context, event PostPublishedEvent) error
	PublishPriceFetched(ctx context.Context, event PriceFetchedEvent) error
	PublishNewsFetched(ctx context.Context, event NewsFetchedEvent) error
	Publish(ctx context.Context, channel string, message any) error

	Subscribe(ctx context.Context, channel string, handler MessageHandler) error
	SubscribePattern(ctx context.Context, pattern string, handler MessageHandler) error
	Unsubscribe(ctx context.Context, channels ...string) error
	GetSubscribedChannels() []string
	Close() error
}

type redisEventBroadcaster struct {
	client         *redis.Client
	logger         *slog.Logger
	pubsub         *redis.PubSub
	mu             sync.RWMutex
	subscriptions  map[string]MessageHandler
	publishTimeout time.Duration
	stopCh         chan struct{}
}

// EventBroadcasterConfig configures a Redis-backed EventBroadcaster.
type EventBroadcasterConfig struct {
	RedisClient    *redis.Client
	Logger         *slog.Logger
	PublishTimeout time.Duration
}

// NewEventBroadcaster constructs a Redis-backed EventBroadcaster.
func NewEventBroadcaster(cfg EventBroadcasterConfig) (EventBroadcaster, error) {
	if cfg.RedisClient == nil {
		return nil, ErrNilRedisClient
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &redisEventBroadcaster{
		client:         cfg.RedisClient,
		logger:         cfg.Logger.With(slog.String("component", "event_broadcaster")),
		subscriptions:  make(map[string]MessageHandler),
		publishTimeout: cfg.PublishTimeout,
		stopCh:         make(chan struct{}),
	}, nil
}

func (m *redisEventBroadcaster) Publish(ctx context.Context, channel string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, m.publishTimeout)
	defer cancel()

	if err := m.client.Publish(pubCtx, channel, payload).Err(); err != nil {
		m.logger.Error("failed to publish event", "channel", channel, "error", err)
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

func (m *redisEventBroadcaster) PublishPostPublished(ctx context.Context, event PostPublishedEvent) error {
	return m.Publish(ctx, PostPublishedChannel, Message{
		Event: "post_published",
		Data: map[string]any{
			"external_post_id": event.ExternalPostID,
			"content_type":     event.ContentType,
			"price_usd":        event.PriceUSD,
			"change_pct":       event.ChangePct,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (m *redisEventBroadcaster) PublishPriceFetched(ctx context.Context, event PriceFetchedEvent) error {
	return m.Publish(ctx, PriceFetchedChannel, Message{
		Event: "price_fetched",
		Data: map[string]any{
			"price_usd":  event.PriceUSD,
			"change_pct": event.ChangePct,
			"source":     event.Source,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (m *redisEventBroadcaster) PublishNewsFetched(ctx context.Context, event NewsFetchedEvent) error {
	return m.Publish(ctx, NewsFetchedChannel, Message{
		Event: "news_fetched",
		Data: map[string]any{
			"fetched_count": event.FetchedCount,
			"new_count":     event.NewCount,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (m *redisEventBroadcaster) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	if m.pubsub == nil {
		m.pubsub = m.client.Subscribe(ctx)
	}
	if err := m.pubsub.Subscribe(ctx, channel); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	m.mu.Lock()
	m.subscriptions[channel] = handler
	m.mu.Unlock()
	m.logger.Info("subscribed to channel", "channel", channel)
	go m.processMessages(ctx)
	return nil
}

func (m *redisEventBroadcaster) SubscribePattern(ctx context.Context, pattern string, handler MessageHandler) error {
	if m.pubsub == nil {
		m.pubsub = m.client.Subscribe(ctx)
	}
	if err := m.pubsub.PSubscribe(ctx, pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	m.mu.Lock()
	m.subscriptions[pattern] = handler
	m.mu.Unlock()
	m.logger.Info("subscribed to pattern", "pattern", pattern)
	go m.processMessages(ctx)
	return nil
}

func (m *redisEventBroadcaster) Unsubscribe(ctx context.Context, channels ...string) error {
	if m.pubsub == nil {
		return nil
	}
	if err := m.pubsub.Unsubscribe(ctx, channels...); err != nil {
		return fmt.Errorf("unsubscribe failed: %w", err)
	}
	m.mu.Lock()
	for _, ch := range channels {
		delete(m.subscriptions, ch)
	}
	m.mu.Unlock()
	return nil
}

func (m *redisEventBroadcaster) Close() error {
	close(m.stopCh)
	if m.pubsub != nil {
		return m.pubsub.Close()
	}
	return nil
}

func (m *redisEventBroadcaster) GetSubscribedChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channels := make([]string, 0, len(m.subscriptions))
	for ch := range m.subscriptions {
		channels = append(channels, ch)
	}
	return channels
}

func (m *redisEventBroadcaster) processMessages(ctx context.Context) {
	if m.pubsub == nil {
		return
	}
	ch := m.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			m.mu.RLock()
			handler, exists := m.subscriptions[msg.Channel]
			if !exists {
				for pattern, h := range m.subscriptions {
					if matchPattern(pattern, msg.Channel) {
						handler = h
						break
					}
				}
			}
			m.mu.RUnlock()
			if handler == nil {
				continue
			}
			if err := handler(msg.Channel, []byte(msg.Payload)); err != nil {
				m.logger.Error("failed to process event", "channel", msg.Channel, "error", err)
			}
		}
	}
}

func matchPattern(pattern, channel string) bool {
	if pattern == channel {
		return true
	}
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(channel) >= len(prefix) && channel[:len(prefix)] == prefix
	}
	return false
}
