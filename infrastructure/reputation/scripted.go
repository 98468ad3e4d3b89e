package reputation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// AlgorithmDefinition is the YAML shape of an externally scripted
// reputation algorithm. A definition parameterizes the bundled formula
// rather than carrying arbitrary code: operators tune the constants and
// toggle capabilities, and the loader registers the result under the
// definition's name.
type AlgorithmDefinition struct {
	// Name is the registry hint the algorithm is registered under.
	Name string `yaml:"name" validate:"required,min=1,max=100"`

	// Description documents the definition for operators.
	Description string `yaml:"description" validate:"max=1000"`

	// Constants tunes the reputation formula.
	Constants ConstantsConfig `yaml:"constants"`

	// Capabilities toggles which reputation capabilities the algorithm
	// implements; disabled capabilities signal Unsupported.
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// ConstantsConfig holds the tunable constants of the reputation formula
// newAvg = currentAvg + (vote + X) * weight / Y.
type ConstantsConfig struct {
	// X shifts the vote before weighting; the bundled default is -2.
	X float64 `yaml:"x"`

	// Y divides the weighted vote; must be non-zero.
	Y float64 `yaml:"y" validate:"required"`
}

// CapabilitiesConfig toggles the optional reputation capabilities.
type CapabilitiesConfig struct {
	// Voter grants the voter reputation for casting votes.
	Voter bool `yaml:"voter"`

	// Contributor grants the item's contributor reputation for received
	// votes.
	Contributor bool `yaml:"contributor"`
}

// Verify interface compliance at compile time.
var _ ports.ReputationAlgorithm = (*ScriptedAlgorithm)(nil)

// ScriptedAlgorithm is a reputation algorithm built from an
// AlgorithmDefinition. It shares the reference algorithm's normalization
// and contributor formula but with scripted constants and capability
// toggles.
type ScriptedAlgorithm struct {
	*SimpleAlgorithm
	definition AlgorithmDefinition
}

// NewScriptedAlgorithm validates the definition and builds the algorithm
// it describes.
func NewScriptedAlgorithm(
	definition AlgorithmDefinition,
	averages AverageReader,
	store ports.AverageStore,
	logger *slog.Logger,
) (*ScriptedAlgorithm, error) {
	if err := validate.Struct(definition); err != nil {
		return nil, fmt.Errorf("definition validation failed: %w", err)
	}

	base := NewSimpleAlgorithm(averages, store, logger)
	base.constantX = definition.Constants.X
	base.constantY = definition.Constants.Y

	return &ScriptedAlgorithm{
		SimpleAlgorithm: base,
		definition:      definition,
	}, nil
}

// Name returns the registry hint the algorithm registers under.
func (s *ScriptedAlgorithm) Name() string { return s.definition.Name }

// NewVoterReputation credits the voter for casting the vote when the
// voter capability is scripted on; otherwise it is Unsupported.
func (s *ScriptedAlgorithm) NewVoterReputation(ctx context.Context, voter, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error) {
	if !s.definition.Capabilities.Voter {
		return nil, unsupported("voter reputation")
	}

	current, err := s.UserReputation(ctx, voter)
	if err != nil {
		return nil, fmt.Errorf("failed to read voter reputation: %w", err)
	}

	current.AverageVote += (float64(rating.Vote) + s.constantX) / s.constantY
	return current, nil
}

// NewContributorReputation applies the reference contributor formula
// with the scripted constants when the contributor capability is on;
// otherwise it is Unsupported.
func (s *ScriptedAlgorithm) NewContributorReputation(ctx context.Context, contributor, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error) {
	if !s.definition.Capabilities.Contributor {
		return nil, unsupported("contributor reputation")
	}
	return s.SimpleAlgorithm.NewContributorReputation(ctx, contributor, itemID, rating, oldVote)
}
