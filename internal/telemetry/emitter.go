package telemetry

import (
	"context"

	"tenant-admin-console/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka).
// Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// MultiEmitter fans one event out to several sinks. Emit returns the first
// error but still delivers to every sink.
type MultiEmitter []EventEmitter

// NewMultiEmitter combines the non-nil emitters into one. Returns nil when
// none are given so callers can keep their nil-check fast path.
func NewMultiEmitter(emitters ...EventEmitter) EventEmitter {
	var out MultiEmitter
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// Emit delivers the event to every sink.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var first error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
