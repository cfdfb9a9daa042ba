// Package tracker counts recurring failures per "<code>:<status>" key within a
// sliding window and flags bursts.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/logfields"
)

const (
	DefaultWindow    = 5 * time.Minute
	DefaultThreshold = 5
)

// AlertMode controls how often a burst is reported for one key.
type AlertMode string

const (
	// AlertOnce reports the first record at or above the threshold in a window.
	// The alert re-arms after the window resets the count.
	AlertOnce AlertMode = "once"
	// AlertEvery reports on every record at or above the threshold.
	AlertEvery AlertMode = "every"
)

// ParseAlertMode returns the alert mode named by s.
func ParseAlertMode(s string) (AlertMode, bool) {
	switch m := AlertMode(s); m {
	case AlertOnce, AlertEvery:
		return m, true
	default:
		return "", false
	}
}

// Entry is the frequency state of one key.
type Entry struct {
	Count      int       `json:"count"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// slot is the mutable per-key state. alerted is set once a burst was reported
// in the current window and cleared when the window resets the count.
type slot struct {
	Entry
	alerted bool
}

// Stats is a point-in-time snapshot of the tracker.
type Stats struct {
	TotalErrors  int              `json:"total_errors"`
	ErrorsByCode map[string]Entry `json:"errors_by_code"`
	RecentErrors int              `json:"recent_errors"`
}

// Observation is the result of recording one failure.
type Observation struct {
	Key   string
	Count int
	Burst bool
}

// Options configure a Tracker. Zero values select the defaults.
type Options struct {
	Window    time.Duration
	Threshold int
	Alert     AlertMode
	// MaxKeys bounds the number of tracked keys; the least recently seen key is
	// evicted when a new key would exceed it. Zero means unbounded.
	MaxKeys int
	Clock   clockwork.Clock
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if _, ok := ParseAlertMode(string(o.Alert)); !ok {
		o.Alert = AlertOnce
	}
	if o.MaxKeys < 0 {
		o.MaxKeys = 0
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	opts    Options
	entries map[string]*slot
	total   int
}

// New creates a Tracker.
func New(opts Options) *Tracker {
	return &Tracker{
		opts:    opts.withDefaults(),
		entries: make(map[string]*slot),
	}
}

// Key returns the tracking key for a code and status.
func Key(code apierror.ErrorCode, status int) string {
	return fmt.Sprintf("%s:%d", code, status)
}

// Record counts one occurrence of code/status at the current time.
func (t *Tracker) Record(code apierror.ErrorCode, status int) Observation {
	key := Key(code, status)

	t.mu.Lock()
	now := t.opts.Clock.Now()
	t.total++

	e, ok := t.entries[key]
	switch {
	case !ok:
		t.evictLocked()
		e = &slot{Entry: Entry{Count: 1}}
		t.entries[key] = e
	case now.Sub(e.LastSeenAt) < t.opts.Window:
		e.Count++
	default:
		e.Count, e.alerted = 1, false
	}
	e.LastSeenAt = now

	obs := Observation{Key: key, Count: e.Count}
	switch t.opts.Alert {
	case AlertEvery:
		obs.Burst = e.Count >= t.opts.Threshold
	default:
		obs.Burst = e.Count >= t.opts.Threshold && !e.alerted
	}
	if obs.Burst {
		e.alerted = true
	}
	window, logger := t.opts.Window, t.opts.Logger
	t.mu.Unlock()

	if obs.Burst {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "High frequency of errors",
			logfields.Key(key),
			logfields.Code(string(code)),
			logfields.Status(status),
			logfields.Count(obs.Count),
			logfields.Window(window))
	}
	return obs
}

// evictLocked drops the least recently seen key when the key bound is reached.
func (t *Tracker) evictLocked() {
	if t.opts.MaxKeys == 0 || len(t.entries) < t.opts.MaxKeys {
		return
	}
	var oldest string
	var oldestAt time.Time
	for k, e := range t.entries {
		if oldest == "" || e.LastSeenAt.Before(oldestAt) {
			oldest, oldestAt = k, e.LastSeenAt
		}
	}
	delete(t.entries, oldest)
}

// Stats returns a snapshot. Later records do not affect it.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.opts.Clock.Now()
	s := Stats{
		TotalErrors:  t.total,
		ErrorsByCode: make(map[string]Entry, len(t.entries)),
	}
	for k, e := range t.entries {
		s.ErrorsByCode[k] = e.Entry
		if now.Sub(e.LastSeenAt) < t.opts.Window {
			s.RecentErrors += e.Count
		}
	}
	return s
}

// Options returns the settings in effect.
func (t *Tracker) Options() Options {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opts
}

// Clear forgets every key and resets TotalErrors.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*slot)
	t.total = 0
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Configure replaces the window, threshold, alert mode and key bound. Existing
// entries are kept; when the new bound is smaller the least recently seen keys go.
func (t *Tracker) Configure(window time.Duration, threshold int, alert AlertMode, maxKeys int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.opts
	next.Window, next.Threshold, next.Alert, next.MaxKeys = window, threshold, alert, maxKeys
	t.opts = next.withDefaults()
	for t.opts.MaxKeys > 0 && len(t.entries) > t.opts.MaxKeys {
		t.evictLocked()
	}
}
