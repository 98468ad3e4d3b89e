// Package reputation provides the reputation algorithm implementations
// for the go-merit ratings engine: the bundled reference algorithm, the
// parameterized scripted variant, the algorithm registry, and the file
// loader that turns YAML definitions into registered algorithms.
package reputation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// DefaultHint is the registry key of the bundled reference algorithm.
// The engine guarantees it is always resolvable.
const DefaultHint = "default"

// Common errors returned by the reputation infrastructure.
var (
	// ErrEmptyHint is returned when attempting to register an algorithm
	// under an empty hint.
	ErrEmptyHint = errors.New("algorithm hint cannot be empty")

	// ErrNilAlgorithm is returned when attempting to register a nil
	// algorithm implementation.
	ErrNilAlgorithm = errors.New("algorithm cannot be nil")

	// ErrEmptySourceRef is returned when a loader operation receives an
	// empty script source reference.
	ErrEmptySourceRef = errors.New("script source reference cannot be empty")

	// ErrUnboundAverages is returned when an algorithm reads averages
	// through an AverageBinding that was never bound.
	ErrUnboundAverages = errors.New("average reader not bound yet")
)

// Package-level validator instance for definition validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
