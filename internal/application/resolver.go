package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// boundAlgorithm is the resolver's single cache slot: the resolved
// implementation plus the version stamp of the scripted source it was
// built from. A registry-resolved binding carries no version and never
// expires on its own; a script-bound one is valid only while its version
// matches the source.
type boundAlgorithm struct {
	algorithm  ports.ReputationAlgorithm
	version    string
	hasVersion bool
}

// AlgorithmResolver resolves, caches, and invalidates the active
// reputation algorithm. Resolution prefers an externally scripted
// definition when one is configured, falls back to a registry lookup by
// hint, then to the registry default, and treats the absence of even the
// default as a configuration fatal.
//
// The cache slot is the engine's only explicitly shared mutable state; a
// single mutex serializes the whole resolve-or-return sequence so a new
// binding is never partially visible. Resolution is infrequent relative
// to rating writes, so no finer-grained locking is warranted.
type AlgorithmResolver struct {
	registry ports.AlgorithmRegistry
	loader   ports.ScriptLoader
	cfg      ports.Config
	logger   *slog.Logger
	metrics  ports.MetricsCollector

	mu    sync.Mutex
	bound *boundAlgorithm
}

// NewAlgorithmResolver creates a resolver with an empty cache slot.
// The loader may be nil when no deployment uses scripted algorithms;
// metrics is optional.
func NewAlgorithmResolver(
	registry ports.AlgorithmRegistry,
	loader ports.ScriptLoader,
	cfg ports.Config,
	logger *slog.Logger,
	metrics ports.MetricsCollector,
) *AlgorithmResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlgorithmResolver{
		registry: registry,
		loader:   loader,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns the active reputation algorithm, reusing the cached
// binding whenever it is still valid.
//
// A cached binding is returned unchanged when no scripted source is
// configured, when the binding tracks no version, or when the source's
// current version still matches. A failure to read the current version
// is treated conservatively: the cached instance is returned and the
// failure logged, on the assumption that the source did not change.
//
// On a cache miss or an expired binding the scripted source (if any) is
// executed so the implementation it defines gets registered, then the
// registry is consulted by the configured hint and, failing that, for
// its default. Only when even the default is missing does Resolve fail,
// with an error wrapping domain.ErrNoAlgorithm.
func (r *AlgorithmResolver) Resolve(ctx context.Context) (ports.ReputationAlgorithm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sourceRef := r.cfg.ScriptSourceRef()

	if r.bound != nil {
		if sourceRef == "" || !r.bound.hasVersion {
			return r.bound.algorithm, nil
		}
		current, err := r.loader.Version(ctx, sourceRef)
		if err != nil {
			// Assume the source did not change rather than dropping a
			// working algorithm over a read failure.
			r.logger.Warn("could not check scripted algorithm version, assuming no reload",
				"source", sourceRef, "error", err)
			return r.bound.algorithm, nil
		}
		if current == r.bound.version {
			return r.bound.algorithm, nil
		}
	}

	var pendingVersion string
	hasVersion := false
	if sourceRef != "" {
		version, err := r.loader.Execute(ctx, sourceRef)
		if err != nil {
			// Execution failure simply leaves no dynamic pre-registration;
			// resolution continues against the registry.
			r.logger.Error("could not execute scripted algorithm source",
				"source", sourceRef, "error", err)
		} else {
			pendingVersion = version
			hasVersion = true
		}
	}

	hint := r.cfg.AlgorithmHint()
	algorithm, err := r.registry.Lookup(hint)
	if err != nil {
		r.logger.Error("could not resolve reputation algorithm for hint, using default instead",
			"hint", hint, "error", err)
		r.recordResolution("fallback_default")

		algorithm, err = r.registry.LookupDefault()
		if err != nil {
			// Fatal, but unlikely since the default is bundled with the
			// engine itself.
			r.bound = nil
			return nil, fmt.Errorf("%w: hint %q and default both unresolvable: %v",
				domain.ErrNoAlgorithm, hint, err)
		}
	}

	r.bound = &boundAlgorithm{
		algorithm:  algorithm,
		version:    pendingVersion,
		hasVersion: hasVersion,
	}
	r.recordResolution("bound")

	return algorithm, nil
}

// Invalidate clears the cache slot so the next Resolve re-runs the full
// resolution sequence, including any scripted execution.
func (r *AlgorithmResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound = nil
}

func (r *AlgorithmResolver) recordResolution(outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordCounter("algorithm_resolutions_total", 1, map[string]string{"outcome": outcome})
}
