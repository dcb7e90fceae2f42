package telemetry

import (
	"context"
	"time"
)

// Logger defines the logging interface used by Observed.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Observer is notified after a record has been stored.
type Observer interface {
	Observe(ctx context.Context, rec Record) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, rec Record) error

// Observe calls f(ctx, rec).
func (f ObserverFunc) Observe(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Observed decorates a Store so every successful Insert is fanned out to
// observers in registration order. Observer errors are logged and never
// reach the caller; the record is already durable by then.
type Observed struct {
	Store
	observers []Observer
	logger    Logger
}

// NewObserved wraps store with the given observers.
func NewObserved(store Store, observers ...Observer) *Observed {
	return &Observed{
		Store:     store,
		observers: observers,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger used to report observer failures.
func (o *Observed) SetLogger(logger Logger) {
	o.logger = logger
}

// Insert stores the record, then notifies observers.
func (o *Observed) Insert(ctx context.Context, addr Address, ts time.Time, payload Payload) error {
	if err := o.Store.Insert(ctx, addr, ts, payload); err != nil {
		return err
	}

	rec := Record{Address: addr, Timestamp: ts.UTC(), Payload: payload}
	for _, obs := range o.observers {
		if err := obs.Observe(ctx, rec); err != nil {
			o.logger.Warn("telemetry observer failed",
				"address", addr.String(),
				"error", err,
			)
		}
	}
	o.logger.Debug("telemetry stored", "address", addr.String(), "observers", len(o.observers))
	return nil
}
