package ports

import (
	"context"

	"github.com/ahrav/go-merit/internal/domain"
)

// ReputationAlgorithm is the capability surface implemented by every
// reputation engine, whether registry-bound or loaded from a scripted
// definition.
//
// A capability an algorithm chooses not to implement returns an error
// wrapping domain.ErrUnsupported. Callers distinguish that deliberate
// signal from real failures with errors.Is: Unsupported means "do
// nothing, do not log as error", while any other error is logged and
// otherwise ignored at the reputation boundary (best effort).
type ReputationAlgorithm interface {
	// UserReputation returns, computing if necessary, the reputation
	// aggregate for a user.
	UserReputation(ctx context.Context, user string) (*domain.AverageRating, error)

	// NewVoterReputation computes the voter's updated reputation after
	// their vote on the item changed from oldVote to rating.Vote.
	NewVoterReputation(ctx context.Context, voter, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error)

	// NewContributorReputation computes the updated reputation of the
	// item's contributor after a vote on the item changed.
	NewContributorReputation(ctx context.Context, contributor, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error)

	// NewAuthorsReputation computes updated reputation for every user who
	// contributed to the item, keyed by user.
	NewAuthorsReputation(ctx context.Context, itemID string, rating *domain.Rating, oldVote int) (map[string]*domain.AverageRating, error)

	// RecalcAllReputation recomputes reputation for all users from
	// scratch, keyed by user.
	RecalcAllReputation(ctx context.Context) (map[string]*domain.AverageRating, error)
}

// ReputationLookup resolves a single user's reputation for vote weighting.
// It is the narrow dependency the aggregator needs from the reputation
// side, breaking the cycle between average computation and the algorithms
// that themselves read averages.
type ReputationLookup interface {
	// UserReputation returns the user's reputation aggregate, or nil when
	// the user has none recorded.
	UserReputation(ctx context.Context, user string) (*domain.AverageRating, error)
}
