// Package natsnotify publishes UI notification envelopes on a NATS subject.
package natsnotify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/notify"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "apierror.notifications"

// Publisher sends raw messages to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Config selects the NATS server and subject.
type Config struct {
	URL     string
	Subject string
	// JetStream publishes through JetStream and waits for the stream ack.
	JetStream bool
	Timeout   time.Duration
}

// Notifier publishes envelopes as JSON.
type Notifier struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

// New creates a notifier using pub. An empty subject selects DefaultSubject.
func New(pub Publisher, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{pub: pub, subject: subject}
}

// Connect dials the NATS server described by cfg.
func Connect(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, ferrors.ConfigError("nats url is required").Build()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("apierror"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.URL).
			Build()
	}

	var pub Publisher = corePublisher{conn: conn}
	if cfg.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to create JetStream context").
				Build()
		}
		pub = streamPublisher{js: js, timeout: cfg.Timeout}
	}

	n := New(pub, cfg.Subject)
	n.conn = conn
	slog.Info("NATS notifier connected", "url", cfg.URL, "subject", n.subject, "jetstream", cfg.JetStream)
	return n, nil
}

// Notify publishes env on the configured subject.
func (n *Notifier) Notify(ctx context.Context, env notify.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal notification").Build()
	}
	if err := n.pub.Publish(ctx, n.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to publish notification").
			WithContext("subject", n.subject).
			Build()
	}
	return nil
}

func (*Notifier) Name() string { return "nats" }

// Close drains and closes the connection opened by Connect.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

type corePublisher struct {
	conn *nats.Conn
}

func (p corePublisher) Publish(_ context.Context, subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

type streamPublisher struct {
	js      jetstream.JetStream
	timeout time.Duration
}

func (p streamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	_, err := p.js.Publish(ctx, subject, data)
	return err
}
