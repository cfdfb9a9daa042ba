package tracker

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

func newTracker(t *testing.T, opts Options) (*Tracker, *clockwork.FakeClock, *bytes.Buffer) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	var logs bytes.Buffer
	opts.Clock = clock
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	return New(opts), clock, &logs
}

func TestRecord_CountsWithinWindow(t *testing.T) {
	tr, clock, _ := newTracker(t, Options{})

	for i := 1; i <= 3; i++ {
		obs := tr.Record(apierror.CodeTimeout, 504)
		assert.Equal(t, "TIMEOUT:504", obs.Key)
		assert.Equal(t, i, obs.Count)
		clock.Advance(time.Minute)
	}

	stats := tr.Stats()
	assert.Equal(t, 3, stats.TotalErrors)
	assert.Equal(t, 3, stats.ErrorsByCode["TIMEOUT:504"].Count)
	assert.Equal(t, 3, stats.RecentErrors)
}

func TestRecord_ResetsAfterWindow(t *testing.T) {
	tr, clock, _ := newTracker(t, Options{})

	tr.Record(apierror.CodeTimeout, 504)
	tr.Record(apierror.CodeTimeout, 504)
	clock.Advance(5*time.Minute + time.Second)

	obs := tr.Record(apierror.CodeTimeout, 504)
	assert.Equal(t, 1, obs.Count)
	assert.True(t, clock.Now().Equal(tr.Stats().ErrorsByCode["TIMEOUT:504"].LastSeenAt))
}

func TestRecord_ExactlyWindowApartResets(t *testing.T) {
	tr, clock, _ := newTracker(t, Options{Window: time.Minute})

	tr.Record(apierror.CodeConflict, 409)
	clock.Advance(time.Minute)
	assert.Equal(t, 1, tr.Record(apierror.CodeConflict, 409).Count)
}

func TestRecord_DistinctKeysPerStatus(t *testing.T) {
	tr, _, _ := newTracker(t, Options{})

	tr.Record(apierror.CodeServiceUnavailable, 502)
	tr.Record(apierror.CodeServiceUnavailable, 503)

	stats := tr.Stats()
	assert.Len(t, stats.ErrorsByCode, 2)
	assert.Equal(t, 1, stats.ErrorsByCode["SERVICE_UNAVAILABLE:502"].Count)
	assert.Equal(t, 1, stats.ErrorsByCode["SERVICE_UNAVAILABLE:503"].Count)
}

func TestRecord_BurstOncePerCrossing(t *testing.T) {
	tr, clock, logs := newTracker(t, Options{})

	var bursts []int
	for i := 1; i <= 7; i++ {
		if tr.Record(apierror.CodeServiceUnavailable, 503).Burst {
			bursts = append(bursts, i)
		}
	}
	assert.Equal(t, []int{5}, bursts)
	assert.Equal(t, 1, strings.Count(logs.String(), "High frequency of errors"))
	assert.Contains(t, logs.String(), "key=SERVICE_UNAVAILABLE:503")
	assert.Contains(t, logs.String(), "count=5")

	clock.Advance(6 * time.Minute)
	bursts = nil
	for i := 1; i <= 5; i++ {
		if tr.Record(apierror.CodeServiceUnavailable, 503).Burst {
			bursts = append(bursts, i)
		}
	}
	assert.Equal(t, []int{5}, bursts, "alert re-arms after the window resets the count")
}

func TestRecord_BurstOnceAfterThresholdLowered(t *testing.T) {
	tr, _, logs := newTracker(t, Options{Threshold: 10})

	for i := 0; i < 6; i++ {
		require.False(t, tr.Record(apierror.CodeTimeout, 504).Burst)
	}

	tr.Configure(DefaultWindow, 3, AlertOnce, 0)

	var bursts []int
	for i := 7; i <= 11; i++ {
		if tr.Record(apierror.CodeTimeout, 504).Burst {
			bursts = append(bursts, i)
		}
	}
	assert.Equal(t, []int{7}, bursts)
	assert.Equal(t, 1, strings.Count(logs.String(), "High frequency of errors"))
}

func TestRecord_BurstEvery(t *testing.T) {
	tr, _, logs := newTracker(t, Options{Alert: AlertEvery, Threshold: 2})

	var bursts []bool
	for i := 0; i < 4; i++ {
		bursts = append(bursts, tr.Record(apierror.CodeNetworkError, 0).Burst)
	}
	assert.Equal(t, []bool{false, true, true, true}, bursts)
	assert.Equal(t, 3, strings.Count(logs.String(), "High frequency of errors"))
}

func TestStats_RecentErrorsExcludesStaleKeys(t *testing.T) {
	tr, clock, _ := newTracker(t, Options{})

	tr.Record(apierror.CodeNotFound, 404)
	tr.Record(apierror.CodeNotFound, 404)
	clock.Advance(4 * time.Minute)
	tr.Record(apierror.CodeConflict, 409)
	clock.Advance(2 * time.Minute)

	stats := tr.Stats()
	assert.Equal(t, 3, stats.TotalErrors)
	assert.Equal(t, 1, stats.RecentErrors)
	assert.Len(t, stats.ErrorsByCode, 2)
}

func TestStats_IsSnapshot(t *testing.T) {
	tr, _, _ := newTracker(t, Options{})
	tr.Record(apierror.CodeNotFound, 404)

	snap := tr.Stats()
	tr.Record(apierror.CodeNotFound, 404)
	tr.Record(apierror.CodeConflict, 409)

	assert.Equal(t, 1, snap.TotalErrors)
	assert.Equal(t, 1, snap.ErrorsByCode["NOT_FOUND:404"].Count)
	assert.Len(t, snap.ErrorsByCode, 1)
}

func TestClear(t *testing.T) {
	tr, _, _ := newTracker(t, Options{})
	tr.Record(apierror.CodeNotFound, 404)
	tr.Record(apierror.CodeTimeout, 504)

	tr.Clear()

	stats := tr.Stats()
	assert.Zero(t, stats.TotalErrors)
	assert.Zero(t, stats.RecentErrors)
	assert.Empty(t, stats.ErrorsByCode)
	assert.Equal(t, 1, tr.Record(apierror.CodeNotFound, 404).Count)
}

func TestMaxKeys_EvictsLeastRecentlySeen(t *testing.T) {
	tr, clock, _ := newTracker(t, Options{MaxKeys: 2})

	tr.Record(apierror.CodeNotFound, 404)
	clock.Advance(time.Second)
	tr.Record(apierror.CodeConflict, 409)
	clock.Advance(time.Second)
	tr.Record(apierror.CodeNotFound, 404)
	clock.Advance(time.Second)
	tr.Record(apierror.CodeTimeout, 504)

	stats := tr.Stats()
	require.Len(t, stats.ErrorsByCode, 2)
	assert.Contains(t, stats.ErrorsByCode, "NOT_FOUND:404")
	assert.Contains(t, stats.ErrorsByCode, "TIMEOUT:504")
	assert.Equal(t, 4, stats.TotalErrors)
}

func TestConfigure(t *testing.T) {
	tr, clock, _ := newTracker(t, Options{})
	tr.Record(apierror.CodeNotFound, 404)
	clock.Advance(time.Second)
	tr.Record(apierror.CodeConflict, 409)
	clock.Advance(time.Second)
	tr.Record(apierror.CodeTimeout, 504)

	tr.Configure(time.Second, 2, AlertEvery, 1)
	assert.Equal(t, 1, tr.Len())
	assert.Contains(t, tr.Stats().ErrorsByCode, "TIMEOUT:504")

	clock.Advance(500 * time.Millisecond)
	obs := tr.Record(apierror.CodeTimeout, 504)
	assert.Equal(t, 2, obs.Count)
	assert.True(t, obs.Burst)

	tr.Configure(0, 0, "bogus", -1)
	assert.Equal(t, DefaultWindow, tr.opts.Window)
	assert.Equal(t, DefaultThreshold, tr.opts.Threshold)
	assert.Equal(t, AlertOnce, tr.opts.Alert)
	assert.Zero(t, tr.opts.MaxKeys)
}

func TestRecord_ConcurrentUpdatesAreNotLost(t *testing.T) {
	tr, _, _ := newTracker(t, Options{Threshold: 1 << 30})

	const workers, perWorker = 8, 250
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				tr.Record(apierror.CodeInternalServerError, 500)
			}
		}()
	}
	wg.Wait()

	stats := tr.Stats()
	assert.Equal(t, workers*perWorker, stats.TotalErrors)
	assert.Equal(t, workers*perWorker, stats.ErrorsByCode["INTERNAL_SERVER_ERROR:500"].Count)
}

func TestParseAlertMode(t *testing.T) {
	m, ok := ParseAlertMode("every")
	assert.True(t, ok)
	assert.Equal(t, AlertEvery, m)
	_, ok = ParseAlertMode("sometimes")
	assert.False(t, ok)
}
