package application

import (
	"fmt"
	"log/slog"

	"github.com/ahrav/go-merit/internal/ports"
)

// EngineParams collects the collaborators the engine is wired from.
// Store, Averages, Bus, Registry, and Config are required; the rest are
// optional.
type EngineParams struct {
	Store    ports.RatingStore
	Averages ports.AverageStore
	Bus      ports.EventBus
	Registry ports.AlgorithmRegistry
	Loader   ports.ScriptLoader
	Config   ports.Config
	Logger   *slog.Logger
	Metrics  ports.MetricsCollector
	Observer ports.RatingObserver
}

// Engine is the composition root of the ratings engine. It wires the
// rating service, average aggregator, reputation resolver, and the
// reputation update listener, and subscribes the listener on the event
// bus so that vote changes propagate into reputation updates without
// coupling the write path to them.
type Engine struct {
	// Ratings owns vote lifecycle and side-effect orchestration.
	Ratings *RatingService

	// Averages computes and maintains per-subject aggregates.
	Averages *AverageAggregator

	// Reputation answers reputation queries with algorithm fallback.
	Reputation *ReputationService

	// Resolver caches the active reputation algorithm.
	Resolver *AlgorithmResolver

	updater *ReputationUpdater
}

// NewEngine validates the parameters, wires all components, and
// subscribes the reputation listener to the event bus.
func NewEngine(params EngineParams) (*Engine, error) {
	switch {
	case params.Store == nil:
		return nil, fmt.Errorf("rating store cannot be nil")
	case params.Averages == nil:
		return nil, fmt.Errorf("average store cannot be nil")
	case params.Bus == nil:
		return nil, fmt.Errorf("event bus cannot be nil")
	case params.Registry == nil:
		return nil, fmt.Errorf("algorithm registry cannot be nil")
	case params.Config == nil:
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	aggregator := NewAverageAggregator(params.Store, params.Averages, params.Config, logger)
	resolver := NewAlgorithmResolver(params.Registry, params.Loader, params.Config, logger, params.Metrics)
	reputation := NewReputationService(resolver, aggregator, params.Averages, params.Config, logger)

	// The balanced method weights votes by rater reputation; the lookup
	// is installed after construction because the reputation side itself
	// reads averages.
	aggregator.SetReputationLookup(reputation)

	ratings := NewRatingService(params.Store, aggregator, params.Bus, logger, params.Metrics, params.Observer)

	updater := NewReputationUpdater(resolver, aggregator, params.Averages, params.Store,
		params.Config, logger, params.Metrics)
	params.Bus.Subscribe(updater.HandleRatingChanged)

	return &Engine{
		Ratings:    ratings,
		Averages:   aggregator,
		Reputation: reputation,
		Resolver:   resolver,
		updater:    updater,
	}, nil
}
