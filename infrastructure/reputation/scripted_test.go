package reputation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-merit/internal/domain"
)

func testDefinition() AlgorithmDefinition {
	return AlgorithmDefinition{
		Name:      "community",
		Constants: ConstantsConfig{X: -1, Y: 10},
		Capabilities: CapabilitiesConfig{
			Voter:       true,
			Contributor: true,
		},
	}
}

func TestNewScriptedAlgorithmValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *AlgorithmDefinition)
	}{
		{name: "missing name", mutate: func(d *AlgorithmDefinition) { d.Name = "" }},
		{name: "zero y constant", mutate: func(d *AlgorithmDefinition) { d.Constants.Y = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			definition := testDefinition()
			tt.mutate(&definition)
			_, err := NewScriptedAlgorithm(definition, newFakeReader(), newFakeAverageStore(0), nil)
			assert.Error(t, err)
		})
	}
}

func TestScriptedAlgorithmName(t *testing.T) {
	algorithm, err := NewScriptedAlgorithm(testDefinition(), newFakeReader(), newFakeAverageStore(0), nil)
	require.NoError(t, err)
	assert.Equal(t, "community", algorithm.Name())
}

func TestScriptedVoterReputation(t *testing.T) {
	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 3, 1.0)
	algorithm, err := NewScriptedAlgorithm(testDefinition(), reader, newFakeAverageStore(100), nil)
	require.NoError(t, err)

	rating := &domain.Rating{ItemID: "doc1", Author: "alice", Vote: 5}
	reputation, err := algorithm.NewVoterReputation(context.Background(), "alice", "doc1", rating, 0)
	require.NoError(t, err)

	// Normalized reputation 1.0 plus (5 - 1) / 10.
	assert.InDelta(t, 1.4, reputation.AverageVote, 1e-9)
}

func TestScriptedContributorUsesScriptedConstants(t *testing.T) {
	reader := newFakeReader()
	reader.set("alice", domain.MethodAverage, 3, 1.0)
	reader.set("carol", domain.MethodAverage, 5, 0.5)
	algorithm, err := NewScriptedAlgorithm(testDefinition(), reader, newFakeAverageStore(100), nil)
	require.NoError(t, err)

	rating := &domain.Rating{ItemID: "doc1", Author: "alice", Vote: 5}
	reputation, err := algorithm.NewContributorReputation(context.Background(), "carol", "doc1", rating, 0)
	require.NoError(t, err)

	// (5 - 1) * 1.0 / 10 on top of 0.5, with the scripted X and Y.
	assert.InDelta(t, 0.9, reputation.AverageVote, 1e-9)
}

func TestScriptedCapabilityToggles(t *testing.T) {
	definition := testDefinition()
	definition.Capabilities = CapabilitiesConfig{}
	algorithm, err := NewScriptedAlgorithm(definition, newFakeReader(), newFakeAverageStore(0), nil)
	require.NoError(t, err)
	ctx := context.Background()
	rating := &domain.Rating{ItemID: "doc1", Author: "alice", Vote: 5}

	_, err = algorithm.NewVoterReputation(ctx, "alice", "doc1", rating, 0)
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = algorithm.NewContributorReputation(ctx, "carol", "doc1", rating, 0)
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}
