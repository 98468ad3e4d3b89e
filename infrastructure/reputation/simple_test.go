package reputation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-merit/internal/domain"
)

func TestUserReputationNormalizesAgainstTotal(t *testing.T) {
	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 3, 5.0)
	algorithm := NewSimpleAlgorithm(reader, newFakeAverageStore(200), nil)
	ctx := context.Background()

	reputation, err := algorithm.UserReputation(ctx, "alice")
	require.NoError(t, err)
	// 5 * 100 / 200.
	assert.InDelta(t, 2.5, reputation.AverageVote, 1e-9)

	// The running total absorbed the rescale delta (200 + 2.5 - 5), so a
	// second read normalizes against the adjusted total.
	reputation, err = algorithm.UserReputation(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 5.0*100/197.5, reputation.AverageVote, 1e-9)
}

func TestUserReputationFloorsEmptyTotal(t *testing.T) {
	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 1, 5.0)
	algorithm := NewSimpleAlgorithm(reader, newFakeAverageStore(0), nil)

	// An empty community floors the divisor at 1 rather than dividing by
	// zero.
	reputation, err := algorithm.UserReputation(context.Background(), "alice")
	require.NoError(t, err)
	assert.InDelta(t, 500.0, reputation.AverageVote, 1e-9)
}

func TestUserReputationSurvivesTotalQueryFailure(t *testing.T) {
	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 1, 5.0)
	store := newFakeAverageStore(0)
	store.totalErr = errors.New("aggregate query failed")
	algorithm := NewSimpleAlgorithm(reader, store, nil)

	// The failure is logged and the floor applies.
	reputation, err := algorithm.UserReputation(context.Background(), "alice")
	require.NoError(t, err)
	assert.InDelta(t, 500.0, reputation.AverageVote, 1e-9)
}

func TestUserReputationPropagatesReaderFailure(t *testing.T) {
	algorithm := NewSimpleAlgorithm(newFakeReader(), newFakeAverageStore(0), nil)

	_, err := algorithm.UserReputation(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrRatingNotFound)
}

func TestNewContributorReputation(t *testing.T) {
	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 3, 1.0)
	reader.set("carol", domain.MethodAverage, 5, 0.5)
	algorithm := NewSimpleAlgorithm(reader, newFakeAverageStore(100), nil)

	rating := &domain.Rating{ItemID: "doc1", Author: "alice", Vote: 4}
	reputation, err := algorithm.NewContributorReputation(context.Background(), "carol", "doc1", rating, 0)
	require.NoError(t, err)

	// With a total of 100 both reputations normalize to themselves, so
	// the contributor gains (4 - 2) * 1.0 / 50 on top of 0.5.
	assert.Equal(t, "carol", reputation.SubjectID)
	assert.InDelta(t, 0.54, reputation.AverageVote, 1e-9)
}

func TestSimpleAlgorithmUnsupportedCapabilities(t *testing.T) {
	algorithm := NewSimpleAlgorithm(newFakeReader(), newFakeAverageStore(0), nil)
	ctx := context.Background()
	rating := &domain.Rating{ItemID: "doc1", Author: "alice", Vote: 4}

	_, err := algorithm.NewVoterReputation(ctx, "alice", "doc1", rating, 0)
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = algorithm.NewAuthorsReputation(ctx, "doc1", rating, 0)
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = algorithm.RecalcAllReputation(ctx)
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestAverageBinding(t *testing.T) {
	binding := NewAverageBinding()
	ctx := context.Background()

	_, err := binding.GetAverage(ctx, "alice", domain.MethodAverage, false)
	assert.ErrorIs(t, err, ErrUnboundAverages)

	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 1, 4.0)
	binding.Bind(reader)

	avg, err := binding.GetAverage(ctx, "alice", domain.MethodAverage, false)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg.AverageVote, 1e-9)
}
