package reputation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// AverageReader is the narrow slice of the average aggregator the
// algorithms need: reading (or lazily creating) a stored aggregate.
// The application-layer aggregator satisfies it.
type AverageReader interface {
	GetAverage(ctx context.Context, subjectID, method string, create bool) (*domain.AverageRating, error)
}

// Verify interface compliance at compile time.
var _ ports.ReputationAlgorithm = (*SimpleAlgorithm)(nil)

// SimpleAlgorithm is the bundled reference reputation algorithm.
//
// Voters receive no reputation. Contributors receive reputation
// proportional to the vote and the voter's own normalized reputation:
//
//	newContributorAvg = currentContributorAvg + (vote + X) * voterReputation / Y
//
// with tunable constants X and Y. Reputation reads are normalized against
// a running total of all users' reputation, computed lazily once through
// an aggregate query and adjusted by every delta applied afterwards.
// Full per-item and global recalculation are deliberately Unsupported.
type SimpleAlgorithm struct {
	averages AverageReader
	store    ports.AverageStore
	logger   *slog.Logger

	constantX float64
	constantY float64

	// mu guards totalReputation, the algorithm's only mutable state.
	mu              sync.Mutex
	totalReputation float64
}

// NewSimpleAlgorithm creates the reference algorithm with its canonical
// constants X=-2 and Y=50.
func NewSimpleAlgorithm(averages AverageReader, store ports.AverageStore, logger *slog.Logger) *SimpleAlgorithm {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimpleAlgorithm{
		averages:  averages,
		store:     store,
		logger:    logger,
		constantX: -2,
		constantY: 50,
	}
}

// UserReputation returns the user's reputation aggregate, rescaled so
// that reputation is expressed relative to the community-wide total. The
// running total is adjusted by the delta the rescale applied.
func (s *SimpleAlgorithm) UserReputation(ctx context.Context, user string) (*domain.AverageRating, error) {
	reputation, err := s.averages.GetAverage(ctx, user, domain.MethodAverage, false)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldAverage := reputation.AverageVote
	reputation.AverageVote = reputation.AverageVote * 100 / s.totalReputationLocked(ctx)
	s.totalReputation += reputation.AverageVote - oldAverage
	return reputation, nil
}

// NewVoterReputation is Unsupported: voters don't receive reputation
// under the reference algorithm.
func (s *SimpleAlgorithm) NewVoterReputation(ctx context.Context, voter, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error) {
	return nil, unsupported("voter reputation")
}

// NewContributorReputation credits the item's contributor in proportion
// to the vote and the voter's own normalized reputation.
func (s *SimpleAlgorithm) NewContributorReputation(ctx context.Context, contributor, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error) {
	voter, err := s.UserReputation(ctx, rating.Author)
	if err != nil {
		return nil, fmt.Errorf("failed to read voter reputation: %w", err)
	}

	current, err := s.UserReputation(ctx, contributor)
	if err != nil {
		return nil, fmt.Errorf("failed to read contributor reputation: %w", err)
	}

	current.AverageVote += (float64(rating.Vote) + s.constantX) * voter.AverageVote / s.constantY
	return current, nil
}

// NewAuthorsReputation is Unsupported in the reference algorithm.
func (s *SimpleAlgorithm) NewAuthorsReputation(ctx context.Context, itemID string, rating *domain.Rating, oldVote int) (map[string]*domain.AverageRating, error) {
	return nil, unsupported("authors reputation")
}

// RecalcAllReputation is Unsupported in the reference algorithm.
func (s *SimpleAlgorithm) RecalcAllReputation(ctx context.Context) (map[string]*domain.AverageRating, error) {
	return nil, unsupported("full recalculation")
}

// totalReputationLocked lazily computes the community-wide reputation
// total through a store aggregate query, caching it for subsequent
// reads. The total is floored at 1 so normalization never divides by
// zero. A query failure leaves the total uncomputed; the floor applies
// in the meantime. Callers must hold mu.
func (s *SimpleAlgorithm) totalReputationLocked(ctx context.Context) float64 {
	if s.totalReputation == 0 {
		total, err := s.store.TotalReputation(ctx, domain.MethodAverage)
		if err != nil {
			s.logger.Error("could not compute total reputation", "error", err)
			total = 0
		}
		s.totalReputation = total
	}
	if s.totalReputation <= 1 {
		return 1
	}
	return s.totalReputation
}

// unsupported builds the sentinel signal for a capability an algorithm
// deliberately does not implement.
func unsupported(capability string) error {
	return fmt.Errorf("%w: %s", domain.ErrUnsupported, capability)
}
