// Package memguard watches the Go heap and signals memory pressure, on which
// the governor's trackers and the session cache are cleared wholesale.
package memguard

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/metrics"
)

// Watchdog polls the heap size and runs the pressure hooks when it exceeds the limit.
type Watchdog struct {
	limit      uint64
	interval   time.Duration
	onPressure []func()
	logger     *zap.Logger
	heapAlloc  func() uint64
}

// New creates a watchdog. A zero limit disables it.
func New(limitBytes uint64, interval time.Duration, logger *zap.Logger, onPressure ...func()) *Watchdog {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watchdog{
		limit:      limitBytes,
		interval:   interval,
		onPressure: onPressure,
		logger:     logger,
		heapAlloc:  readHeapAlloc,
	}
}

// Run polls until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	if w.limit == 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check runs the hooks if the heap is above the limit and reports whether it did.
func (w *Watchdog) Check() bool {
	if w.limit == 0 {
		return false
	}
	heap := w.heapAlloc()
	if heap <= w.limit {
		return false
	}
	w.logger.Warn("Memory pressure, clearing caches",
		zap.Uint64("heap_bytes", heap),
		zap.Uint64("limit_bytes", w.limit),
	)
	metrics.MemoryPressureTotal.Inc()
	for _, fn := range w.onPressure {
		fn()
	}
	runtime.GC()
	return true
}

func readHeapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
