package reputation

import (
	"fmt"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.AlgorithmRegistry = (*DefaultAlgorithmRegistry)(nil)

// DefaultAlgorithmRegistry implements the AlgorithmRegistry interface as
// an in-process map of hint to implementation. The bundled reference
// algorithm is pre-registered under DefaultHint so the registry's
// unqualified default lookup always succeeds in a correctly packaged
// engine. Scripted sources register their implementations here at
// execution time, replacing any previous binding for the same hint.
type DefaultAlgorithmRegistry struct {
	// mu protects concurrent access to the algorithms map.
	mu sync.RWMutex
	// algorithms maps hints to their registered implementations.
	algorithms map[string]ports.ReputationAlgorithm
}

// NewDefaultAlgorithmRegistry creates a registry with the given default
// algorithm pre-registered under DefaultHint.
func NewDefaultAlgorithmRegistry(defaultAlgorithm ports.ReputationAlgorithm) (*DefaultAlgorithmRegistry, error) {
	if defaultAlgorithm == nil {
		return nil, ErrNilAlgorithm
	}
	return &DefaultAlgorithmRegistry{
		algorithms: map[string]ports.ReputationAlgorithm{
			DefaultHint: defaultAlgorithm,
		},
	}, nil
}

// Lookup resolves an algorithm by hint.
func (r *DefaultAlgorithmRegistry) Lookup(hint string) (ports.ReputationAlgorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	algorithm, ok := r.algorithms[hint]
	if !ok {
		return nil, fmt.Errorf("%w: hint %q", domain.ErrAlgorithmNotFound, hint)
	}
	return algorithm, nil
}

// LookupDefault resolves the registry's default implementation.
func (r *DefaultAlgorithmRegistry) LookupDefault() (ports.ReputationAlgorithm, error) {
	return r.Lookup(DefaultHint)
}

// Register binds an algorithm to a hint, replacing any existing binding.
func (r *DefaultAlgorithmRegistry) Register(hint string, algorithm ports.ReputationAlgorithm) error {
	if hint == "" {
		return ErrEmptyHint
	}
	if algorithm == nil {
		return ErrNilAlgorithm
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.algorithms[hint] = algorithm
	return nil
}

// Hints returns all registered hints, useful for introspection and
// debugging.
func (r *DefaultAlgorithmRegistry) Hints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hints := make([]string, 0, len(r.algorithms))
	for hint := range r.algorithms {
		hints = append(hints, hint)
	}
	return hints
}
