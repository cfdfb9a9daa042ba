// Package events is the in-process, typed event bus of the engine host.
//
// Publishers hand values of any type to Publish; subscribers receive them on
// typed channels obtained from Subscribe. UI notification envelopes and config
// reloads travel over the bus so presentation and orchestration code stay
// decoupled from the engine.
package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
)

// Bus delivers events to typed subscribers. Delivery is not durable; Publish
// blocks until every matching subscriber accepted the event or ctx is done.
type Bus struct {
	mu        sync.RWMutex
	subs      map[reflect.Type]map[uint64]*subscription
	nextID    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

type subscription struct {
	deliver func(ctx context.Context, evt any) error
	close   func()
}

// NewBus creates an open bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscription)}
}

// Subscribe returns a channel receiving events assignable to T and a function that
// cancels the subscription. Interface types receive every event implementing them.
// Subscribing to a closed bus yields an already closed channel.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	typ := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	var closeCh sync.Once
	closeChannel := func() { closeCh.Do(func() { close(ch) }) }

	sub := &subscription{
		deliver: func(ctx context.Context, evt any) error {
			v, ok := evt.(T)
			if !ok {
				return ferrors.InternalError("event type mismatch").
					WithContext("expected", typ.String()).
					WithContext("actual", reflect.TypeOf(evt).String()).
					Build()
			}
			select {
			case ch <- v:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryEvents, "event delivery canceled").
					WithContext("event_type", typ.String()).
					Build()
			}
		},
		close: closeChannel,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		closeChannel()
		return ch, func() {}
	}

	id := b.nextID.Add(1)
	if b.subs[typ] == nil {
		b.subs[typ] = make(map[uint64]*subscription)
	}
	b.subs[typ][id] = sub

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if byID, ok := b.subs[typ]; ok {
				delete(byID, id)
				if len(byID) == 0 {
					delete(b.subs, typ)
				}
			}
			b.mu.Unlock()
			closeChannel()
		})
	}
}

// SubscriberCount returns the number of active subscriptions registered for exactly T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[reflect.TypeFor[T]()])
}

// Publish delivers evt to every matching subscriber in turn and stops at the
// first delivery failure.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	switch {
	case evt == nil:
		return ferrors.ValidationError("event cannot be nil").Build()
	case ctx == nil:
		return ferrors.ValidationError("context cannot be nil").Build()
	case b.closed.Load():
		return ferrors.EventsError("event bus is closed").Build()
	}

	for _, s := range b.targets(reflect.TypeOf(evt)) {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) targets(evtType reflect.Type) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*subscription
	for typ, byID := range b.subs {
		if typ != evtType && (typ.Kind() != reflect.Interface || !evtType.Implements(typ)) {
			continue
		}
		for _, s := range byID {
			out = append(out, s)
		}
	}
	return out
}

// Close closes the bus and every subscription channel. It is idempotent.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)

		b.mu.Lock()
		subs := b.subs
		b.subs = make(map[reflect.Type]map[uint64]*subscription)
		b.mu.Unlock()

		for _, byID := range subs {
			for _, s := range byID {
				s.close()
			}
		}
	})
}
