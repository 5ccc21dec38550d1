package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"go-pos-access/internal/config"
	"go-pos-access/internal/event"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	Client *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

// Bus fans role and user events out to every API instance sharing the
// channel, so consoles connected elsewhere refresh too.
type Bus struct {
	client  *Client
	channel string
	origin  string
}

func NewBus(client *Client, channel string) *Bus {
	return &Bus{client: client, channel: channel, origin: uuid.NewString()}
}

// Publish stamps the event with this instance's origin and sends it.
func (b *Bus) Publish(ctx context.Context, e event.Event) error {
	e.Origin = b.origin
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.client.Client.Publish(ctx, b.channel, payload).Err()
}

// Forward relays events published by other instances to local until ctx is
// done. Events this instance sent are skipped; local already has them.
func (b *Bus) Forward(ctx context.Context, local event.Publisher) error {
	sub := b.client.Client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e, ok := decode(msg.Payload, b.origin)
			if !ok {
				continue
			}
			if err := local.Publish(ctx, e); err != nil {
				log.Printf("Warning: failed to relay %s: %v", e.Type, err)
			}
		}
	}
}

// decode parses a bus payload. It reports false for malformed payloads and
// for events that originated from self.
func decode(payload, self string) (event.Event, bool) {
	var e event.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		log.Printf("Warning: dropping malformed event: %v", err)
		return event.Event{}, false
	}
	if e.Type == "" || e.Origin == self {
		return event.Event{}, false
	}
	return e, true
}
