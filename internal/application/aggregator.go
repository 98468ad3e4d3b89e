package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// AverageAggregator computes and maintains AverageRating aggregates.
// Depending on configuration an aggregate is either stored (a persisted
// record overwritten with a full recompute on every vote change) or
// virtual (recomputed from raw ratings on every read).
//
// The aggregator is safe for concurrent use; its only mutable state is
// the reputation lookup installed after construction.
type AverageAggregator struct {
	ratings  ports.RatingStore
	averages ports.AverageStore
	cfg      ports.Config
	logger   *slog.Logger

	// mu guards reputation, which is installed after construction to
	// break the cycle between average computation and the reputation
	// algorithms that themselves read averages.
	mu         sync.RWMutex
	reputation ports.ReputationLookup
}

// NewAverageAggregator creates an aggregator over the given stores.
// A nil logger defaults to slog.Default. The reputation lookup used by
// the balanced method starts unset; install it with SetReputationLookup.
func NewAverageAggregator(
	ratings ports.RatingStore,
	averages ports.AverageStore,
	cfg ports.Config,
	logger *slog.Logger,
) *AverageAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AverageAggregator{
		ratings:  ratings,
		averages: averages,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetReputationLookup installs the reputation source used to weight votes
// under the balanced method. Until one is installed every rater is
// treated as having no reputation (weight 1).
func (a *AverageAggregator) SetReputationLookup(lookup ports.ReputationLookup) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reputation = lookup
}

func (a *AverageAggregator) reputationLookup() ports.ReputationLookup {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reputation
}

// CalcAverage recomputes the aggregate for an item from raw ratings,
// never touching persisted aggregates (virtual mode).
//
// Under the balanced method a rating whose author equals the subject id
// is excluded (self-rating guard, relevant when the rated subject is a
// user), and each remaining vote is weighted by the rater's reputation:
// raters with no reputation, or a reputation of exactly zero, count with
// weight 1. The weighted count deliberately accumulates float reputation
// weights alongside integer unit weights; that mixed accumulator is
// long-standing documented behavior, not a bug to correct here.
//
// NbVotes always reports the unweighted number of ratings considered.
func (a *AverageAggregator) CalcAverage(ctx context.Context, itemID, method string) (*domain.AverageRating, error) {
	ratings, err := a.ratings.ListRatings(ctx, itemID, 0, 0, true)
	if err != nil {
		return nil, domain.NewStoreError("list", itemID, err)
	}

	var (
		nbVotes         int
		balancedNbVotes float64
		totalVote       float64
		averageVote     float64
	)

	for _, rating := range ratings {
		if method == domain.MethodBalanced {
			if rating.Author != itemID {
				reputation, err := a.raterReputation(ctx, rating.Author)
				if err != nil {
					return nil, fmt.Errorf("failed to weight vote by reputation of %s: %w", rating.Author, err)
				}
				if reputation == nil || reputation.AverageVote == 0 {
					totalVote += float64(rating.Vote)
					balancedNbVotes++
				} else {
					totalVote += float64(rating.Vote) * reputation.AverageVote
					balancedNbVotes += reputation.AverageVote
				}
			}
		} else {
			totalVote += float64(rating.Vote)
			balancedNbVotes++
		}
		nbVotes++
	}

	if balancedNbVotes != 0 {
		averageVote = totalVote / balancedNbVotes
	}

	return &domain.AverageRating{
		SubjectID:   itemID,
		Method:      method,
		NbVotes:     nbVotes,
		AverageVote: averageVote,
	}, nil
}

// raterReputation resolves the rater's reputation through the installed
// lookup. Without a lookup every rater counts with weight 1.
func (a *AverageAggregator) raterReputation(ctx context.Context, rater string) (*domain.AverageRating, error) {
	lookup := a.reputationLookup()
	if lookup == nil {
		return nil, nil
	}
	return lookup.UserReputation(ctx, rater)
}

// GetAverage returns the aggregate for a subject under a method.
//
// When average storage is disabled it always recomputes (virtual mode).
// In stored mode it returns the persisted aggregate; when none exists it
// either recomputes (create false) or lazily persists a zero-valued
// aggregate tagged with the method (create true).
func (a *AverageAggregator) GetAverage(ctx context.Context, subjectID, method string, create bool) (*domain.AverageRating, error) {
	if !a.cfg.AverageStored() {
		return a.CalcAverage(ctx, subjectID, method)
	}

	stored, err := a.averages.GetAverage(ctx, subjectID, method)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, domain.ErrRatingNotFound):
		if !create {
			return a.CalcAverage(ctx, subjectID, method)
		}
		fresh := &domain.AverageRating{SubjectID: subjectID, Method: method}
		if err := a.averages.SaveAverage(ctx, fresh); err != nil {
			return nil, domain.NewStoreError("save-average", subjectID, err)
		}
		return fresh, nil
	default:
		return nil, domain.NewStoreError("get-average", subjectID, err)
	}
}

// UpdateAverage refreshes the stored aggregate for an item under one
// method. It is a no-op unless average storage is enabled and the vote
// actually changed. The refresh is a full recompute overwriting the
// persisted values, not an incremental delta, so a stale aggregate left
// by a crash self-heals on the next vote.
func (a *AverageAggregator) UpdateAverage(ctx context.Context, itemID string, rating *domain.Rating, oldVote int, method string) error {
	if !a.cfg.AverageStored() || rating.Vote == oldVote {
		return nil
	}

	fresh, err := a.CalcAverage(ctx, itemID, method)
	if err != nil {
		return err
	}

	stored, err := a.GetAverage(ctx, itemID, method, true)
	if err != nil {
		return err
	}

	stored.NbVotes = fresh.NbVotes
	stored.AverageVote = fresh.AverageVote
	if err := a.averages.SaveAverage(ctx, stored); err != nil {
		return domain.NewStoreError("save-average", itemID, err)
	}
	return nil
}

// UpdateAllAverages applies UpdateAverage for every configured default
// method, in order. The first failure aborts and propagates: the vote is
// not considered fully applied until its averages are current.
func (a *AverageAggregator) UpdateAllAverages(ctx context.Context, itemID string, rating *domain.Rating, oldVote int) error {
	for _, method := range a.cfg.DefaultMethods() {
		if err := a.UpdateAverage(ctx, itemID, rating, oldVote, method); err != nil {
			return fmt.Errorf("failed to update %q average for %s: %w", method, itemID, err)
		}
	}
	return nil
}
