package app

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultViewDelay is how long a game must stay open before a view is
// reported. The library browser uses a shorter delay than the default.
const (
	DefaultViewDelay = 2 * time.Second
	LibraryViewDelay = 1500 * time.Millisecond
)

// RecordFunc reports one game view upstream.
type RecordFunc func(ctx context.Context, gameID int) error

// ViewRecorder reports that a game was viewed, at most once per watched
// game, only after a sustained delay. It is fire-and-forget telemetry:
// failures are logged and swallowed, and a pending report is cancelled
// whenever the watched game changes or the recorder stops.
type ViewRecorder struct {
	record RecordFunc
	delay  time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	gameID   int
	enabled  bool
	recorded bool
}

// NewViewRecorder builds a recorder; a non-positive delay falls back to
// DefaultViewDelay.
func NewViewRecorder(record RecordFunc, delay time.Duration) *ViewRecorder {
	if delay <= 0 {
		delay = DefaultViewDelay
	}
	return &ViewRecorder{record: record, delay: delay, enabled: true}
}

// Watch switches the recorder to gameID: any pending timer is cancelled
// and, when enabled and gameID is set, a fresh one is armed. The
// at-most-once guard resets with each watched game.
func (r *ViewRecorder) Watch(gameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	r.gameID = gameID
	r.recorded = false
	r.armLocked()
}

// SetEnabled toggles the recorder. Disabling cancels any pending report;
// enabling re-arms for the currently watched game if it has not been
// reported yet.
func (r *ViewRecorder) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled == enabled {
		return
	}
	r.enabled = enabled
	r.cancelLocked()
	r.armLocked()
}

// RecordNow reports the watched game immediately, honoring the same
// at-most-once guarantee as the timer path.
func (r *ViewRecorder) RecordNow() {
	r.mu.Lock()
	id := r.gameID
	r.cancelLocked()
	r.mu.Unlock()
	r.fire(id, true)
}

// RecordGame reports gameID immediately. When it differs from the
// watched game the recorder switches to it first, so the at-most-once
// guard applies to the requested game rather than a stale one.
func (r *ViewRecorder) RecordGame(gameID int) {
	if gameID == 0 {
		return
	}
	r.mu.Lock()
	r.cancelLocked()
	if gameID != r.gameID {
		r.gameID = gameID
		r.recorded = false
	}
	r.mu.Unlock()
	r.fire(gameID, true)
}

// Stop cancels any pending report. The recorder can be reused with a new
// Watch afterwards.
func (r *ViewRecorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

func (r *ViewRecorder) armLocked() {
	if !r.enabled || r.gameID == 0 || r.recorded {
		return
	}
	id := r.gameID
	r.timer = time.AfterFunc(r.delay, func() {
		r.fire(id, false)
	})
}

func (r *ViewRecorder) fire(gameID int, manual bool) {
	r.mu.Lock()
	if gameID == 0 || gameID != r.gameID || r.recorded || (!manual && !r.enabled) {
		r.mu.Unlock()
		return
	}
	r.recorded = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.record(ctx, gameID); err != nil {
		slog.Debug("record view failed", "game_id", gameID, "err", err)
	}
}

func (r *ViewRecorder) cancelLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
