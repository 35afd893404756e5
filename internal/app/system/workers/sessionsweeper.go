// internal/app/system/workers/sessionsweeper.go
package workers

import (
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Sweeper is the part of the session registry the sweeper drives.
type Sweeper interface {
	Sweep(idle time.Duration) int
	Len() int
}

// SessionSweeper is a background worker that drops organization sessions
// that have been idle longer than the threshold and reports the live count.
type SessionSweeper struct {
	registry      Sweeper
	log           *zap.Logger
	interval      time.Duration
	idleThreshold time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewSessionSweeper creates a new sweeper.
//
// Parameters:
//   - registry: the organization session registry
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - idleThreshold: how long a session must be unused before it is dropped
func NewSessionSweeper(registry Sweeper, logger *zap.Logger, interval, idleThreshold time.Duration) *SessionSweeper {
	return &SessionSweeper{
		registry:      registry,
		log:           logger,
		interval:      interval,
		idleThreshold: idleThreshold,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *SessionSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("idle_threshold", w.idleThreshold))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *SessionSweeper) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("session sweeper stopped")
}

func (w *SessionSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *SessionSweeper) sweep() {
	n := w.registry.Sweep(w.idleThreshold)
	live := w.registry.Len()
	metrics.SetLiveSessions(live)
	if n > 0 {
		w.log.Info("dropped idle organization sessions",
			zap.Int("count", n),
			zap.Int("live", live))
	}
}
