// Package redis publishes interaction graph snapshots to Redis.
//
// Each snapshot is stored under a key (so late subscribers can read the
// current graph) and published on a channel as JSON:
//
//	pub, err := redis.NewPublisher(ctx, redis.Config{Addr: "localhost:6379"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
//	agg := aggregate.New(g, pub, aggregate.Options{})
//
// Subscribers receive the same document that graph.MarshalSnapshot produces.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
)

// Defaults for Config.
const (
	DefaultKey     = "livegraph:snapshot"
	DefaultChannel = "livegraph:updates"
	DefaultTimeout = 2 * time.Second
)

// Config holds the Redis connection and naming settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Key receives the latest snapshot. Defaults to DefaultKey.
	Key string
	// Channel receives every snapshot. Defaults to DefaultChannel.
	Channel string
	// Timeout bounds each publish. Defaults to DefaultTimeout.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Key == "" {
		c.Key = DefaultKey
	}
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Publisher is a renderer that pushes snapshots to Redis.
type Publisher struct {
	client *goredis.Client
	cfg    Config
	logger *log.Logger
}

// NewPublisher connects to Redis and verifies the connection with PING.
func NewPublisher(ctx context.Context, cfg Config, logger *log.Logger) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is required")
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return &Publisher{client: client, cfg: cfg, logger: logger}, nil
}

// Render stores s under the configured key and publishes it on the channel.
// Failures are logged; the graph is not affected.
func (p *Publisher) Render(ctx context.Context, s graph.Snapshot) {
	start := time.Now()
	err := p.Publish(ctx, s)
	observability.Render().OnRender(ctx, "redis", s.NodeCount(), s.EdgeCount(), time.Since(start), err)
	if err != nil {
		p.logger.Error("publish failed", "addr", p.cfg.Addr, "err", err)
	}
}

// Publish stores and publishes s in a single pipeline.
func (p *Publisher) Publish(ctx context.Context, s graph.Snapshot) error {
	data, err := graph.MarshalSnapshot(s)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.cfg.Key, data, 0)
		pipe.Publish(ctx, p.cfg.Channel, data)
		return nil
	})
	return err
}

// Latest reads the most recently stored snapshot.
func (p *Publisher) Latest(ctx context.Context) (graph.Snapshot, error) {
	data, err := p.client.Get(ctx, p.cfg.Key).Bytes()
	if err != nil {
		return graph.Snapshot{}, err
	}
	return graph.UnmarshalSnapshot(data)
}

// Subscribe returns a subscription to the update channel.
// The caller must close it.
func (p *Publisher) Subscribe(ctx context.Context) *goredis.PubSub {
	return p.client.Subscribe(ctx, p.cfg.Channel)
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
