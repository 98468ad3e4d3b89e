package reputation

import (
	"context"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
)

// Verify interface compliance at compile time.
var _ AverageReader = (*AverageBinding)(nil)

// AverageBinding is a late-bound AverageReader. The algorithms and the
// script loader must exist before the engine that owns the aggregator is
// wired, so they read averages through a binding that is pointed at the
// aggregator once the engine is up:
//
//	binding := reputation.NewAverageBinding()
//	simple := reputation.NewSimpleAlgorithm(binding, store, logger)
//	...
//	engine, err := application.NewEngine(params)
//	binding.Bind(engine.Averages)
//
// Reading through an unbound binding fails with ErrUnboundAverages.
type AverageBinding struct {
	mu     sync.RWMutex
	reader AverageReader
}

// NewAverageBinding creates an unbound binding.
func NewAverageBinding() *AverageBinding { return &AverageBinding{} }

// Bind installs the reader all subsequent reads delegate to.
func (b *AverageBinding) Bind(reader AverageReader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reader = reader
}

// GetAverage implements AverageReader by delegating to the bound reader.
func (b *AverageBinding) GetAverage(ctx context.Context, subjectID, method string, create bool) (*domain.AverageRating, error) {
	b.mu.RLock()
	reader := b.reader
	b.mu.RUnlock()

	if reader == nil {
		return nil, ErrUnboundAverages
	}
	return reader.GetAverage(ctx, subjectID, method, create)
}
