package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-merit/internal/domain"
)

// EventBus decouples rating mutation from reputation recomputation.
// Publish fires a globally observable event; Subscribe registers a
// handler for rating-changed events.
//
// Handler failures and panics must never propagate back to the
// publisher: a vote write succeeds even when every listener fails.
type EventBus interface {
	// Publish fires a rating-changed event to all subscribed handlers.
	// Delivery is best effort; an error indicates the transport itself
	// failed, not that a handler did.
	Publish(ctx context.Context, event domain.RatingChangedEvent) error

	// Subscribe registers a handler invoked for every published
	// rating-changed event.
	Subscribe(handler func(ctx context.Context, event domain.RatingChangedEvent))
}

// AlgorithmRegistry looks up named reputation algorithm implementations.
// A distinguished "default" implementation is always registered by the
// engine's own packaging.
type AlgorithmRegistry interface {
	// Lookup resolves an algorithm by hint, returning
	// domain.ErrAlgorithmNotFound when the hint is unregistered.
	Lookup(hint string) (ReputationAlgorithm, error)

	// LookupDefault resolves the registry's unqualified default
	// implementation.
	LookupDefault() (ReputationAlgorithm, error)

	// Register binds an algorithm to a hint, replacing any existing
	// binding. Scripted sources use this to install the implementation
	// they define.
	Register(hint string, algorithm ReputationAlgorithm) error
}

// ScriptLoader executes externally scripted algorithm definitions.
// Executing a source registers the algorithm it defines as a side effect
// and yields a version stamp that changes whenever the source content
// changes, enabling hot reload.
type ScriptLoader interface {
	// Execute runs the scripted source identified by sourceRef and
	// returns the version stamp of the content that was executed.
	Execute(ctx context.Context, sourceRef string) (version string, err error)

	// Version returns the current version stamp of the source without
	// executing it.
	Version(ctx context.Context, sourceRef string) (string, error)
}

// Config is the engine's view of the deployment's preference store.
// Values may change between calls; components re-read them on every
// operation rather than caching.
type Config interface {
	// AverageStored reports whether average aggregates are persisted and
	// refreshed in place (stored mode) or recomputed on read (virtual).
	AverageStored() bool

	// ReputationEnabled reports whether reputation tracking is on at all.
	ReputationEnabled() bool

	// ReputationStored reports whether computed reputation is persisted.
	ReputationStored() bool

	// DefaultMethods returns the ordered list of aggregation methods
	// refreshed on every vote change.
	DefaultMethods() []string

	// AlgorithmHint returns the registry selection key for the active
	// reputation algorithm.
	AlgorithmHint() string

	// ScriptSourceRef returns the reference to an externally scripted
	// algorithm definition, or empty when none is configured.
	ScriptSourceRef() string
}

// MetricsCollector abstracts metrics collection from specific monitoring
// implementations, enabling testing and pluggable observability backends.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric by the given value.
	RecordCounter(metric string, value float64, labels map[string]string)
}

// RatingObserver observes rating mutations, allowing tracing and metrics
// middleware to wrap the write path without the service depending on a
// concrete telemetry stack. Start returns a possibly derived context and
// a finish callback invoked with the outcome.
type RatingObserver interface {
	Start(ctx context.Context, itemID, author string, vote int) (context.Context, func(rating *domain.Rating, err error))
}
