// Package redisnotify publishes UI notification envelopes on a Redis pub/sub channel.
package redisnotify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/notify"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "apierror:notifications"

// Publisher is the subset of *redis.Client used by the notifier.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string
	Password string
	Channel  string
}

// Notifier publishes envelopes as JSON.
type Notifier struct {
	pub     Publisher
	channel string
	closer  func() error
}

// New creates a notifier using pub. An empty channel selects DefaultChannel.
func New(pub Publisher, channel string) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{pub: pub, channel: channel}
}

// Connect creates a Redis client from cfg and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*Notifier, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse redis URL").
			UserAction().
			Build()
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to redis").
			WithContext("addr", opts.Addr).
			Build()
	}

	n := New(rdb, cfg.Channel)
	n.closer = rdb.Close
	return n, nil
}

// Notify publishes env on the configured channel. The receiver count is not checked:
// having no subscriber is not an error.
func (n *Notifier) Notify(ctx context.Context, env notify.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal notification").Build()
	}
	if err := n.pub.Publish(ctx, n.channel, data).Err(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to publish notification").
			WithContext("channel", n.channel).
			Build()
	}
	return nil
}

func (*Notifier) Name() string { return "redis" }

// Close closes the client opened by Connect.
func (n *Notifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
