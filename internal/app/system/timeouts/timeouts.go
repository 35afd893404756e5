// Package timeouts holds the deadlines handlers and workers put on MongoDB
// calls.
//
//   - Ping: connectivity checks (health, startup)
//   - Short: single-document reads and writes, guard lookups
//   - Medium: lists, membership loads, seeding
//   - Long: multi-collection writes and audit queries
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds one value per tier. Zero fields leave the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Defaults apply until Configure or ConfigureFromEnv runs.
var Defaults = Config{
	Ping:   2 * time.Second,
	Short:  5 * time.Second,
	Medium: 10 * time.Second,
	Long:   30 * time.Second,
}

var (
	mu  sync.RWMutex
	cur = Defaults
)

func Ping() time.Duration   { return Current().Ping }
func Short() time.Duration  { return Current().Short }
func Medium() time.Duration { return Current().Medium }
func Long() time.Duration   { return Current().Long }

// Current returns the active values.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure overrides the non-zero fields of cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&cur, cfg)
}

// Reset restores Defaults. Tests use it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = Defaults
}

func merge(dst *Config, src Config) {
	for _, f := range []struct {
		dst *time.Duration
		src time.Duration
	}{
		{&dst.Ping, src.Ping},
		{&dst.Short, src.Short},
		{&dst.Medium, src.Medium},
		{&dst.Long, src.Long},
	} {
		if f.src > 0 {
			*f.dst = f.src
		}
	}
}

// ConfigureFromEnv reads ORGHUB_TIMEOUT_PING, _SHORT, _MEDIUM and _LONG as Go
// durations ("2s", "500ms"). Unset, unparsable and non-positive values are
// ignored. It returns how many values were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for name, dst := range map[string]*time.Duration{
		"ORGHUB_TIMEOUT_PING":   &cfg.Ping,
		"ORGHUB_TIMEOUT_SHORT":  &cfg.Short,
		"ORGHUB_TIMEOUT_MEDIUM": &cfg.Medium,
		"ORGHUB_TIMEOUT_LONG":   &cfg.Long,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline, rather than the caller, ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
