package reputation

import (
	"context"
	"fmt"

	"github.com/ahrav/go-merit/internal/domain"
)

// fakeReader is a map-backed AverageReader. It hands out copies the way
// the real aggregator does, so algorithm-side mutation never leaks back.
type fakeReader struct {
	averages map[string]*domain.AverageRating
}

func newFakeReader() *fakeReader {
	return &fakeReader{averages: make(map[string]*domain.AverageRating)}
}

func (r *fakeReader) set(subjectID, method string, nbVotes int, averageVote float64) {
	r.averages[subjectID+"/"+method] = &domain.AverageRating{
		SubjectID:   subjectID,
		Method:      method,
		NbVotes:     nbVotes,
		AverageVote: averageVote,
	}
}

func (r *fakeReader) GetAverage(ctx context.Context, subjectID, method string, create bool) (*domain.AverageRating, error) {
	avg, ok := r.averages[subjectID+"/"+method]
	if !ok {
		if !create {
			return nil, fmt.Errorf("%w: no %q aggregate for %s", domain.ErrRatingNotFound, method, subjectID)
		}
		avg = &domain.AverageRating{SubjectID: subjectID, Method: method}
		r.averages[subjectID+"/"+method] = avg
	}
	copied := *avg
	return &copied, nil
}

// fakeAverageStore implements ports.AverageStore with a fixed community
// reputation total.
type fakeAverageStore struct {
	total    float64
	totalErr error
	saved    map[string]*domain.AverageRating
}

func newFakeAverageStore(total float64) *fakeAverageStore {
	return &fakeAverageStore{total: total, saved: make(map[string]*domain.AverageRating)}
}

func (s *fakeAverageStore) GetAverage(ctx context.Context, subjectID, method string) (*domain.AverageRating, error) {
	avg, ok := s.saved[subjectID+"/"+method]
	if !ok {
		return nil, fmt.Errorf("%w: no %q aggregate for %s", domain.ErrRatingNotFound, method, subjectID)
	}
	copied := *avg
	return &copied, nil
}

func (s *fakeAverageStore) SaveAverage(ctx context.Context, avg *domain.AverageRating) error {
	copied := *avg
	s.saved[avg.SubjectID+"/"+avg.Method] = &copied
	return nil
}

func (s *fakeAverageStore) TotalReputation(ctx context.Context, method string) (float64, error) {
	if s.totalErr != nil {
		return 0, s.totalErr
	}
	return s.total, nil
}
