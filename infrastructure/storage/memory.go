// Package storage provides the rating and average store implementations
// for the go-merit ratings engine: an in-memory store used as the test
// backbone and reference semantics, and a MongoDB-backed store for
// deployments.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// Verify interface compliance at compile time.
var (
	_ ports.RatingStore  = (*MemoryStore)(nil)
	_ ports.AverageStore = (*MemoryStore)(nil)
)

// itemRecord holds one item's rating list in storage (insertion) order
// plus the metadata the engine needs about the item itself.
type itemRecord struct {
	contributor string
	ratings     []*domain.Rating
	// nextSeq is a monotonically increasing id counter; deleting a
	// rating never frees its sequence number.
	nextSeq int
}

// MemoryStore is an in-process implementation of both the rating store
// and the average store. It defines the reference semantics the Mongo
// store mirrors: per-item insertion order, monotonic sequence ids, and
// idempotent-looking deletes.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]*itemRecord
	averages map[string]*domain.AverageRating
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]*itemRecord),
		averages: make(map[string]*domain.AverageRating),
	}
}

// AddItem registers an item and its contributor. Saving a rating against
// an unknown item registers the item implicitly with no contributor.
func (m *MemoryStore) AddItem(itemID, contributor string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.item(itemID)
	item.contributor = contributor
}

// item returns the record for itemID, creating it when absent.
// Callers must hold mu.
func (m *MemoryStore) item(itemID string) *itemRecord {
	item, ok := m.items[itemID]
	if !ok {
		item = &itemRecord{}
		m.items[itemID] = item
	}
	return item
}

// SaveRating persists a rating, assigning a composite id from the item's
// next sequence number on first save.
func (m *MemoryStore) SaveRating(ctx context.Context, rating *domain.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.item(rating.ItemID)

	if rating.ID == "" {
		rating.ID = domain.RatingID(rating.ItemID, item.nextSeq)
		item.nextSeq++
		stored := *rating
		item.ratings = append(item.ratings, &stored)
		return nil
	}

	for i, existing := range item.ratings {
		if existing.ID == rating.ID {
			stored := *rating
			item.ratings[i] = &stored
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrRatingNotFound, rating.ID)
}

// GetRating returns the rating at the given position within the item's
// rating list, counting in storage order.
func (m *MemoryStore) GetRating(ctx context.Context, itemID string, seq int) (*domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	wanted := domain.RatingID(itemID, seq)
	for _, rating := range item.ratings {
		if rating.ID == wanted {
			copied := *rating
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRatingNotFound, wanted)
}

// ListRatings returns the item's ratings in insertion order (or reversed
// when ascending is false), skipping start records and returning at most
// count (0 means unbounded). An unknown item yields an empty list, not
// an error: an item with no votes is indistinguishable from one never
// rated.
func (m *MemoryStore) ListRatings(ctx context.Context, itemID string, start, count int, ascending bool) ([]*domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}

	ordered := make([]*domain.Rating, len(item.ratings))
	for i, rating := range item.ratings {
		copied := *rating
		if ascending {
			ordered[i] = &copied
		} else {
			ordered[len(item.ratings)-1-i] = &copied
		}
	}

	if start >= len(ordered) {
		return nil, nil
	}
	ordered = ordered[start:]
	if count > 0 && count < len(ordered) {
		ordered = ordered[:count]
	}
	return ordered, nil
}

// DeleteRating removes the record with the given composite id. It
// returns false when no such record exists.
func (m *MemoryStore) DeleteRating(ctx context.Context, ratingID string) (bool, error) {
	itemID, _, err := domain.ParseRatingID(ratingID)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return false, nil
	}

	for i, rating := range item.ratings {
		if rating.ID == ratingID {
			item.ratings = append(item.ratings[:i], item.ratings[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ItemContributor returns the user registered as the item's contributor.
func (m *MemoryStore) ItemContributor(ctx context.Context, itemID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return item.contributor, nil
}

// averageKey builds the (subject, method) composite key. The NUL
// separator cannot appear in either component's useful values.
func averageKey(subjectID, method string) string {
	return subjectID + "\x00" + method
}

// GetAverage returns the stored aggregate for (subject, method).
func (m *MemoryStore) GetAverage(ctx context.Context, subjectID, method string) (*domain.AverageRating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avg, ok := m.averages[averageKey(subjectID, method)]
	if !ok {
		return nil, fmt.Errorf("%w: no %q aggregate for %s", domain.ErrRatingNotFound, method, subjectID)
	}
	copied := *avg
	return &copied, nil
}

// SaveAverage creates or overwrites the stored aggregate.
func (m *MemoryStore) SaveAverage(ctx context.Context, avg *domain.AverageRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *avg
	m.averages[averageKey(avg.SubjectID, avg.Method)] = &stored
	return nil
}

// TotalReputation sums the stored average vote of every user-level
// aggregate under the method. Subjects that are known items are
// excluded; everything else is treated as a user.
func (m *MemoryStore) TotalReputation(ctx context.Context, method string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, avg := range m.averages {
		if avg.Method != method {
			continue
		}
		if _, isItem := m.items[avg.SubjectID]; isItem {
			continue
		}
		total += avg.AverageVote
	}
	return total, nil
}
