package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// RatingService owns the lifecycle of individual Rating entities and
// orchestrates the two side effects of a vote change: the synchronous
// average refresh and the decoupled, best-effort reputation update.
//
// Side-effect ordering: the new vote is durably written before averages
// are recomputed, and the published event carries the already persisted
// rating, so both stages observe the new state. An average failure
// propagates to the caller (the vote is not fully applied); a reputation
// failure never does.
type RatingService struct {
	store      ports.RatingStore
	aggregator *AverageAggregator
	bus        ports.EventBus
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	observer   ports.RatingObserver

	// now is injectable for deterministic timestamps in tests.
	now func() time.Time
}

// NewRatingService creates a rating service. The store, aggregator, and
// bus are required; logger, metrics, and observer are optional and
// nil-safe.
func NewRatingService(
	store ports.RatingStore,
	aggregator *AverageAggregator,
	bus ports.EventBus,
	logger *slog.Logger,
	metrics ports.MetricsCollector,
	observer ports.RatingObserver,
) *RatingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingService{
		store:      store,
		aggregator: aggregator,
		bus:        bus,
		logger:     logger,
		metrics:    metrics,
		observer:   observer,
		now:        time.Now,
	}
}

// SetRating casts or changes a vote. An existing rating by the same
// author on the same item is mutated in place; otherwise a new rating is
// created with an old vote of zero. The persisted rating is returned.
//
// All configured average methods are refreshed before the rating-changed
// event is published; an average failure propagates to the caller while
// an event transport failure is logged and discarded (reputation updates
// are best effort by contract).
func (s *RatingService) SetRating(ctx context.Context, itemID, author string, vote int) (*domain.Rating, error) {
	var finish func(rating *domain.Rating, err error)
	if s.observer != nil {
		ctx, finish = s.observer.Start(ctx, itemID, author, vote)
	}

	rating, err := s.setRating(ctx, itemID, author, vote)
	if finish != nil {
		finish(rating, err)
	}
	return rating, err
}

func (s *RatingService) setRating(ctx context.Context, itemID, author string, vote int) (*domain.Rating, error) {
	started := s.now()

	rating, err := s.GetRating(ctx, itemID, author)
	if err != nil {
		return nil, err
	}

	oldVote := 0
	if rating == nil {
		rating = &domain.Rating{
			ItemID:    itemID,
			Author:    author,
			Vote:      vote,
			UpdatedAt: s.now(),
		}
	} else {
		oldVote = rating.Vote
		rating.Vote = vote
		rating.UpdatedAt = s.now()
	}

	if err := s.store.SaveRating(ctx, rating); err != nil {
		return nil, domain.NewStoreError("save", itemID, err)
	}

	if err := s.aggregator.UpdateAllAverages(ctx, itemID, rating, oldVote); err != nil {
		return nil, err
	}

	event := domain.RatingChangedEvent{ItemID: itemID, NewRating: rating, OldVote: oldVote}
	if err := s.bus.Publish(ctx, event); err != nil {
		// Reputation propagation is best effort; a failed publish must
		// not fail the vote that was already written.
		s.logger.Error("failed to publish rating-changed event",
			"item", itemID, "author", author, "error", err)
	}

	if s.metrics != nil {
		labels := map[string]string{"item": itemID}
		s.metrics.RecordCounter("ratings_set_total", 1, labels)
		s.metrics.RecordLatency("set_rating", s.now().Sub(started), labels)
	}

	return rating, nil
}

// GetRating returns the first rating by the given author on the item,
// scanning the item's ratings in storage order. An empty author yields
// an absent result, not an error.
func (s *RatingService) GetRating(ctx context.Context, itemID, author string) (*domain.Rating, error) {
	if author == "" {
		s.logger.Warn("no author specified, returning absent rating", "item", itemID)
		return nil, nil
	}

	ratings, err := s.store.ListRatings(ctx, itemID, 0, 0, true)
	if err != nil {
		return nil, domain.NewStoreError("list", itemID, err)
	}

	for _, rating := range ratings {
		if rating.Author == author {
			return rating, nil
		}
	}
	return nil, nil
}

// GetRatingByID resolves a composite rating identifier of the form
// "item:seq". A malformed id, an unknown item, or a missing record at
// that sequence all surface as domain.ErrInvalidRatingID.
func (s *RatingService) GetRatingByID(ctx context.Context, ratingID string) (*domain.Rating, error) {
	itemID, seq, err := domain.ParseRatingID(ratingID)
	if err != nil {
		return nil, err
	}

	rating, err := s.store.GetRating(ctx, itemID, seq)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, domain.ErrRatingNotFound) {
			return nil, fmt.Errorf("%w: no rating %q", domain.ErrInvalidRatingID, ratingID)
		}
		return nil, domain.NewStoreError("get", ratingID, err)
	}
	return rating, nil
}

// GetRatingAt returns the rating at the given sequence position within
// the item's rating list, or domain.ErrRatingNotFound.
func (s *RatingService) GetRatingAt(ctx context.Context, itemID string, seq int) (*domain.Rating, error) {
	rating, err := s.store.GetRating(ctx, itemID, seq)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, domain.ErrRatingNotFound) {
			return nil, err
		}
		return nil, domain.NewStoreError("get", itemID, err)
	}
	return rating, nil
}

// GetRatings returns up to count ratings for the item (0 means
// unbounded), skipping the first start records. Ordering beyond "stable
// for a given storage state" is storage-defined.
func (s *RatingService) GetRatings(ctx context.Context, itemID string, start, count int, ascending bool) ([]*domain.Rating, error) {
	ratings, err := s.store.ListRatings(ctx, itemID, start, count, ascending)
	if err != nil {
		return nil, domain.NewStoreError("list", itemID, err)
	}
	return ratings, nil
}

// RemoveRating deletes the rating's underlying record. It returns false
// when the record was not found, though some backing stores report
// deletion of an already absent record as success, so callers must not
// treat the false case as reliably distinguishable from a race.
func (s *RatingService) RemoveRating(ctx context.Context, rating *domain.Rating) (bool, error) {
	removed, err := s.store.DeleteRating(ctx, rating.ID)
	if err != nil {
		return false, domain.NewStoreError("delete", rating.ID, err)
	}
	return removed, nil
}
