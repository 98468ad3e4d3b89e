package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.ReputationLookup = (*ReputationService)(nil)

// ReputationService answers reputation queries through the active
// algorithm, falling back to the plain stored/computed "average"
// aggregate when the algorithm declares the capability Unsupported.
// It also exposes full recalculation for algorithms that support it.
type ReputationService struct {
	resolver   *AlgorithmResolver
	aggregator *AverageAggregator
	averages   ports.AverageStore
	cfg        ports.Config
	logger     *slog.Logger
}

// NewReputationService creates a reputation query service.
func NewReputationService(
	resolver *AlgorithmResolver,
	aggregator *AverageAggregator,
	averages ports.AverageStore,
	cfg ports.Config,
	logger *slog.Logger,
) *ReputationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReputationService{
		resolver:   resolver,
		aggregator: aggregator,
		averages:   averages,
		cfg:        cfg,
		logger:     logger,
	}
}

// UserReputation implements ports.ReputationLookup. The active algorithm
// is asked first; Unsupported falls back to the user's "average"
// aggregate, while any other failure propagates.
func (s *ReputationService) UserReputation(ctx context.Context, user string) (*domain.AverageRating, error) {
	algorithm, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	reputation, err := algorithm.UserReputation(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupported) {
			return s.aggregator.GetAverage(ctx, user, domain.MethodAverage, false)
		}
		return nil, err
	}
	return reputation, nil
}

// RecalcAll asks the active algorithm to recompute every user's
// reputation from scratch, persisting each result when reputation
// storage is enabled. Algorithms that do not support full recalculation
// return an error wrapping domain.ErrUnsupported.
func (s *ReputationService) RecalcAll(ctx context.Context) (map[string]*domain.AverageRating, error) {
	algorithm, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	reputations, err := algorithm.RecalcAllReputation(ctx)
	if err != nil {
		return nil, err
	}

	if s.cfg.ReputationStored() {
		for user, reputation := range reputations {
			if err := saveUserReputation(ctx, s.aggregator, s.averages, user, reputation); err != nil {
				return nil, err
			}
		}
	}
	return reputations, nil
}

// ReputationUpdater is the rating-changed listener: the decoupled stage
// that turns a vote change into reputation updates for the voter, the
// item's contributor, and optionally all contributing authors.
//
// Everything here is best effort. Unsupported capabilities are silently
// skipped, any other failure is logged and discarded, and nothing ever
// propagates back to the vote write that triggered the event.
type ReputationUpdater struct {
	resolver   *AlgorithmResolver
	aggregator *AverageAggregator
	averages   ports.AverageStore
	store      ports.RatingStore
	cfg        ports.Config
	logger     *slog.Logger
	metrics    ports.MetricsCollector
}

// NewReputationUpdater creates the reputation update listener. Register
// it on the event bus with Subscribe(updater.HandleRatingChanged).
func NewReputationUpdater(
	resolver *AlgorithmResolver,
	aggregator *AverageAggregator,
	averages ports.AverageStore,
	store ports.RatingStore,
	cfg ports.Config,
	logger *slog.Logger,
	metrics ports.MetricsCollector,
) *ReputationUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReputationUpdater{
		resolver:   resolver,
		aggregator: aggregator,
		averages:   averages,
		store:      store,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// HandleRatingChanged recomputes affected users' reputation after a vote
// change. It runs only when reputation is enabled and stored and the
// vote actually changed; otherwise it returns without touching the
// resolver at all.
func (u *ReputationUpdater) HandleRatingChanged(ctx context.Context, event domain.RatingChangedEvent) {
	if !u.cfg.ReputationEnabled() || !u.cfg.ReputationStored() {
		return
	}
	rating := event.NewRating
	if rating == nil || rating.Vote == event.OldVote {
		return
	}

	algorithm, err := u.resolver.Resolve(ctx)
	if err != nil {
		u.logger.Error("could not resolve reputation algorithm for rating change",
			"item", event.ItemID, "error", err)
		return
	}

	// Voter reputation: points for casting the vote.
	voterReputation, err := algorithm.NewVoterReputation(ctx, rating.Author, event.ItemID, rating, event.OldVote)
	u.apply(ctx, "voter", rating.Author, voterReputation, err)

	// Contributor reputation: points for the creator of the rated item.
	contributor, err := u.store.ItemContributor(ctx, event.ItemID)
	if err != nil {
		u.logger.Error("could not resolve item contributor",
			"item", event.ItemID, "error", err)
	} else {
		contributorReputation, err := algorithm.NewContributorReputation(ctx, contributor, event.ItemID, rating, event.OldVote)
		u.apply(ctx, "contributor", contributor, contributorReputation, err)
	}

	// All-authors reputation: points for every participant on the item.
	authorReputations, err := algorithm.NewAuthorsReputation(ctx, event.ItemID, rating, event.OldVote)
	if err != nil {
		if !errors.Is(err, domain.ErrUnsupported) {
			u.logger.Error("error while calculating authors reputation",
				"item", event.ItemID, "error", err)
		}
		return
	}
	for author, reputation := range authorReputations {
		u.apply(ctx, "author", author, reputation, nil)
	}
}

// apply persists one computed reputation result under the best-effort
// contract: Unsupported is a silent no-op, other failures are logged and
// discarded.
func (u *ReputationUpdater) apply(ctx context.Context, role, user string, reputation *domain.AverageRating, err error) {
	if err != nil {
		if !errors.Is(err, domain.ErrUnsupported) {
			u.logger.Error("error while calculating reputation",
				"role", role, "user", user, "error", err)
			u.recordUpdate(role, "error")
		}
		return
	}
	if reputation == nil {
		return
	}

	if err := saveUserReputation(ctx, u.aggregator, u.averages, user, reputation); err != nil {
		u.logger.Error("error while saving reputation",
			"role", role, "user", user, "error", err)
		u.recordUpdate(role, "error")
		return
	}
	u.recordUpdate(role, "saved")
}

func (u *ReputationUpdater) recordUpdate(role, status string) {
	if u.metrics == nil {
		return
	}
	u.metrics.RecordCounter("reputation_updates_total", 1,
		map[string]string{"role": role, "status": status})
}

// saveUserReputation writes a computed reputation through the stored
// aggregate for (user, method), lazily creating it on first write.
func saveUserReputation(
	ctx context.Context,
	aggregator *AverageAggregator,
	averages ports.AverageStore,
	user string,
	reputation *domain.AverageRating,
) error {
	stored, err := aggregator.GetAverage(ctx, user, reputation.Method, true)
	if err != nil {
		return err
	}
	stored.Method = reputation.Method
	stored.NbVotes = reputation.NbVotes
	stored.AverageVote = reputation.AverageVote
	if err := averages.SaveAverage(ctx, stored); err != nil {
		return domain.NewStoreError("save-average", user, err)
	}
	return nil
}
