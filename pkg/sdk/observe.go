package searchgate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes reported by the SDK observer.
const (
	outcomeOK            = "ok"
	outcomeError         = "error"
	outcomeBlocked       = "blocked"
	outcomeTooShort      = "too_short"
	outcomePartial       = "partial"
	outcomeResorted      = "resorted"
	outcomeResortRefused = "resort_refused"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	blocks   *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchgate",
			Subsystem: "sdk",
			Name:      "requests_total",
			Help:      "SDK search, resort and session calls by outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "searchgate",
			Subsystem: "sdk",
			Name:      "request_duration_seconds",
			Help:      "SDK call duration in seconds, including waits on shared session builds.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 3, 5, 10},
		}, []string{"op"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchgate",
			Subsystem: "sdk",
			Name:      "blocks_total",
			Help:      "Callers rejected by the rate limits, by block reason.",
		}, []string{"reason"}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.blocks); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so two
// clients can share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("searchgate: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("searchgate: register metric: %w", err)
	}
	return nil
}

// observer logs and counts SDK calls by what the caller got back.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// outcome classifies one call. Blocking wins over every other page state.
func outcome(op string, page *Page, err error) string {
	switch {
	case err != nil:
		return outcomeError
	case page == nil:
		return outcomeOK
	case page.Blocked:
		return outcomeBlocked
	case page.TooShort:
		return outcomeTooShort
	case op == opResort && page.Resorted:
		return outcomeResorted
	case op == opResort:
		return outcomeResortRefused
	case page.Partial:
		return outcomePartial
	default:
		return outcomeOK
	}
}

func (o *observer) observe(op string, start time.Time, page *Page, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	result := outcome(op, page, err)

	if o.metrics != nil {
		o.metrics.requests.WithLabelValues(op, result).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if result == outcomeBlocked {
			o.metrics.blocks.WithLabelValues(page.BlockReason).Inc()
		}
	}

	if o.logger == nil {
		return
	}
	switch result {
	case outcomeError:
		o.logger.Warn("searchgate call failed", "op", op, "duration", dur, "error", err)
	case outcomeBlocked:
		o.logger.Info("searchgate caller blocked", "op", op, "reason", page.BlockReason)
	default:
		attrs := []any{"op", op, "outcome", result, "duration", dur}
		if page != nil && page.SessionID != "" {
			attrs = append(attrs, "session", page.SessionID, "total", page.Total)
		}
		o.logger.Debug("searchgate call completed", attrs...)
	}
}
