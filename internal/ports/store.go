// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the engine testable
// against in-memory collaborators.
package ports

import (
	"context"

	"github.com/ahrav/go-merit/internal/domain"
)

// RatingStore is the durable storage facility for individual vote records.
// Implementations own record-level isolation; the engine performs no
// locking around store calls.
type RatingStore interface {
	// SaveRating persists a rating, creating it when its ID is empty.
	// On create the store assigns the rating's composite ID from the
	// item id and the next sequence number in that item's rating list.
	SaveRating(ctx context.Context, rating *domain.Rating) error

	// GetRating returns the rating at the given sequence position within
	// an item's rating list, counting in storage order.
	// It returns domain.ErrRatingNotFound when no record exists at that
	// position and domain.ErrItemNotFound when the item is unknown.
	GetRating(ctx context.Context, itemID string, seq int) (*domain.Rating, error)

	// ListRatings returns up to count ratings for the item (0 means
	// unbounded), skipping the first start records. The ascending flag
	// requests storage order or its reverse; whether it is honored is
	// implementation-defined.
	ListRatings(ctx context.Context, itemID string, start, count int, ascending bool) ([]*domain.Rating, error)

	// DeleteRating removes the underlying record. It returns false when
	// the record was not found; callers must not rely on the false case
	// being distinguishable from a concurrent delete.
	DeleteRating(ctx context.Context, ratingID string) (bool, error)

	// ItemContributor returns the user that contributed (created) the
	// item, used to credit contributor reputation.
	ItemContributor(ctx context.Context, itemID string) (string, error)
}

// AverageStore persists AverageRating aggregates keyed by
// (subject, method). User-level aggregates double as reputation records.
type AverageStore interface {
	// GetAverage returns the stored aggregate for the subject and method,
	// or domain.ErrRatingNotFound when none has been persisted yet.
	GetAverage(ctx context.Context, subjectID, method string) (*domain.AverageRating, error)

	// SaveAverage creates or overwrites the stored aggregate.
	SaveAverage(ctx context.Context, avg *domain.AverageRating) error

	// TotalReputation runs an aggregate query summing the stored average
	// vote of every user-level aggregate recorded under the given method.
	TotalReputation(ctx context.Context, method string) (float64, error)
}
