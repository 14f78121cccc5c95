// Package redisstream appends alerts to a Redis stream.
package redisstream

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/publish"
	"github.com/oshokin/posture-alarm/internal/service/common"
)

// client is the subset of *redis.Client used by the publisher.
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher appends one stream entry per alert.
type Publisher struct {
	client  client
	stream  string
	maxLen  int64
	timeout time.Duration
	host    *common.Host
}

// Connect creates a Redis client for cfg and checks it with PING.
func Connect(ctx context.Context, cfg *config.Redis, timeout time.Duration, host *common.Host) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return New(rdb, cfg.Stream, cfg.MaxLen, timeout, host), nil
}

// New wraps an existing client. maxLen trims the stream approximately; zero keeps everything.
func New(c client, stream string, maxLen int64, timeout time.Duration, host *common.Host) *Publisher {
	return &Publisher{
		client:  c,
		stream:  stream,
		maxLen:  maxLen,
		timeout: timeout,
		host:    host,
	}
}

// Name implements publish.Publisher.
func (p *Publisher) Name() string {
	return "redis"
}

// Publish implements publish.Publisher.
func (p *Publisher) Publish(ctx context.Context, alert *posture.Alert) error {
	data, err := publish.Payload(alert, p.host)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"alert_id":  alert.ID,
			"timestamp": alert.Timestamp.UnixMilli(),
			"data":      string(data),
		},
	}

	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err = p.client.XAdd(callCtx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	return nil
}

// Close implements publish.Publisher.
func (p *Publisher) Close() error {
	return p.client.Close()
}
