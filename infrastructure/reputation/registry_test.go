package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-merit/internal/domain"
)

func newTestRegistry(t *testing.T) *DefaultAlgorithmRegistry {
	t.Helper()
	registry, err := NewDefaultAlgorithmRegistry(
		NewSimpleAlgorithm(newFakeReader(), newFakeAverageStore(0), nil))
	require.NoError(t, err)
	return registry
}

func TestNewDefaultAlgorithmRegistryRequiresDefault(t *testing.T) {
	_, err := NewDefaultAlgorithmRegistry(nil)
	assert.ErrorIs(t, err, ErrNilAlgorithm)
}

func TestRegistryLookup(t *testing.T) {
	registry := newTestRegistry(t)

	algorithm, err := registry.Lookup(DefaultHint)
	require.NoError(t, err)
	assert.NotNil(t, algorithm)

	viaDefault, err := registry.LookupDefault()
	require.NoError(t, err)
	assert.Same(t, algorithm, viaDefault)

	_, err = registry.Lookup("unknown")
	assert.ErrorIs(t, err, domain.ErrAlgorithmNotFound)
}

func TestRegistryRegister(t *testing.T) {
	registry := newTestRegistry(t)

	assert.ErrorIs(t, registry.Register("", &SimpleAlgorithm{}), ErrEmptyHint)
	assert.ErrorIs(t, registry.Register("custom", nil), ErrNilAlgorithm)

	custom := NewSimpleAlgorithm(newFakeReader(), newFakeAverageStore(0), nil)
	require.NoError(t, registry.Register("custom", custom))

	resolved, err := registry.Lookup("custom")
	require.NoError(t, err)
	assert.Same(t, custom, resolved.(*SimpleAlgorithm))

	// Registering again replaces the binding.
	replacement := NewSimpleAlgorithm(newFakeReader(), newFakeAverageStore(0), nil)
	require.NoError(t, registry.Register("custom", replacement))
	resolved, err = registry.Lookup("custom")
	require.NoError(t, err)
	assert.Same(t, replacement, resolved.(*SimpleAlgorithm))

	assert.ElementsMatch(t, []string{DefaultHint, "custom"}, registry.Hints())
}
