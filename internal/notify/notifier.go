package notify

import (
	"context"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/apierror/internal/events"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
)

// Notifier delivers UI notifications to the presentation layer.
type Notifier interface {
	Notify(ctx context.Context, env Envelope) error
}

// Named is implemented by notifiers that report a name for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns the notifier's name, or its type when it has none.
func NameOf(n Notifier) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", n)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, env Envelope) error

func (f NotifierFunc) Notify(ctx context.Context, env Envelope) error { return f(ctx, env) }
func (NotifierFunc) Name() string                                     { return "func" }

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Envelope) error { return nil }
func (NoopNotifier) Name() string                           { return "noop" }

// Multi fans a notification out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, env Envelope) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, env); err != nil {
			errs = append(errs, ferrors.WrapError(err, ferrors.CategoryNotify, "notifier failed").
				WithContext("notifier", NameOf(n)).
				Build())
		}
	}
	return errors.Join(errs...)
}

func (Multi) Name() string { return "multi" }

// BusNotifier publishes envelopes on the in-process event bus. Subscribers use
// events.Subscribe[notify.Envelope].
type BusNotifier struct {
	bus *events.Bus
}

// NewBusNotifier creates a notifier publishing on bus.
func NewBusNotifier(bus *events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Notify(ctx context.Context, env Envelope) error {
	return n.bus.Publish(ctx, env)
}

func (*BusNotifier) Name() string { return "bus" }
