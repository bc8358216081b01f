// Package autosave debounces auto-save writes so rapid scene
// transitions collapse into a single persisted snapshot.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmallory/narrative-engine/internal/storage"
	"github.com/jmallory/narrative-engine/pkg/state"
)

// DefaultDelay is the debounce window. Each Notify call restarts it;
// the write happens only after the player has been idle that long.
const DefaultDelay = 1000 * time.Millisecond

// writeTimeout bounds the background write so a stalled backend can't
// pin the goroutine forever.
const writeTimeout = 5 * time.Second

// Saver schedules debounced auto-save writes. Notify is cheap and safe
// to call on every state change; only the latest snapshot is written.
type Saver struct {
	store  storage.SaveStore
	logger *slog.Logger
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *state.GameState
	enabled bool
	stopped bool
}

// New creates a Saver. A non-positive delay falls back to DefaultDelay.
// Auto-saving starts enabled; SetEnabled syncs it with player settings.
func New(store storage.SaveStore, delay time.Duration, logger *slog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Saver{
		store:   store,
		logger:  logger,
		delay:   delay,
		enabled: true,
	}
}

// SetEnabled turns auto-saving on or off. Disabling cancels any pending
// write and drops its snapshot.
func (s *Saver) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if !enabled {
		s.cancelLocked()
	}
}

// Enabled reports whether auto-saving is currently on.
func (s *Saver) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Notify records a snapshot as the auto-save candidate and (re)starts
// the debounce timer. The snapshot must not be mutated by the caller
// afterwards; pass a Clone.
func (s *Saver) Notify(gs *state.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.stopped {
		return
	}

	s.pending = gs
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Saver) fire() {
	s.mu.Lock()
	gs := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if gs == nil {
		return
	}
	s.write(gs)
}

// Flush writes any pending snapshot immediately, cancelling the timer.
// Called on graceful shutdown so the last transition isn't lost.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	gs := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if gs == nil {
		return nil
	}
	if _, err := s.store.AutoSave(ctx, gs); err != nil {
		return err
	}
	s.logger.Debug("Auto-save flushed", "scene", gs.CurrentScene)
	return nil
}

// Stop cancels any pending write and prevents future ones. It does not
// flush; call Flush first when the pending snapshot matters.
func (s *Saver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cancelLocked()
}

func (s *Saver) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}

func (s *Saver) write(gs *state.GameState) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := s.store.AutoSave(ctx, gs); err != nil {
		// Auto-save failures are non-fatal: the game keeps running and
		// the next state change schedules another attempt.
		s.logger.Error("Auto-save failed", "error", err, "scene", gs.CurrentScene)
		return
	}
	s.logger.Debug("Auto-save written", "scene", gs.CurrentScene)
}
