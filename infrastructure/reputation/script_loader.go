package reputation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.ScriptLoader = (*FileScriptLoader)(nil)

// FileScriptLoader is the Dynamic Loader collaborator: it executes
// algorithm definitions kept in YAML files. Executing a source parses
// and validates the definition, builds the scripted algorithm, and
// registers it in the algorithm registry as a side effect. The version
// stamp of a source is the SHA256 of its content, so a stamp changes
// exactly when the script changes, which is what drives the resolver's
// hot reload.
type FileScriptLoader struct {
	registry ports.AlgorithmRegistry
	averages AverageReader
	store    ports.AverageStore
	logger   *slog.Logger

	// cache stores built algorithms indexed by the SHA256 of their
	// source so re-executing an unchanged script never rebuilds it.
	cacheMu sync.RWMutex
	cache   map[string]*ScriptedAlgorithm
	// sf prevents duplicate builds when multiple goroutines execute the
	// same source simultaneously.
	sf singleflight.Group
}

// NewFileScriptLoader creates a loader that registers the algorithms it
// builds into the given registry.
func NewFileScriptLoader(
	registry ports.AlgorithmRegistry,
	averages AverageReader,
	store ports.AverageStore,
	logger *slog.Logger,
) *FileScriptLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileScriptLoader{
		registry: registry,
		averages: averages,
		store:    store,
		logger:   logger,
		cache:    make(map[string]*ScriptedAlgorithm),
	}
}

// Execute loads the definition file, builds (or reuses) the algorithm it
// defines, registers it under the definition's name, and returns the
// content version stamp that was executed.
func (l *FileScriptLoader) Execute(ctx context.Context, sourceRef string) (string, error) {
	if sourceRef == "" {
		return "", ErrEmptySourceRef
	}

	data, err := os.ReadFile(filepath.Clean(sourceRef))
	if err != nil {
		return "", fmt.Errorf("failed to read script source: %w", err)
	}
	version := contentVersion(data)

	v, err, _ := l.sf.Do(version, func() (any, error) {
		if algorithm, ok := l.cachedAlgorithm(version); ok {
			return algorithm, nil
		}

		definition, err := parseDefinition(data)
		if err != nil {
			return nil, err
		}

		algorithm, err := NewScriptedAlgorithm(*definition, l.averages, l.store, l.logger)
		if err != nil {
			return nil, err
		}

		l.cacheAlgorithm(version, algorithm)
		return algorithm, nil
	})
	if err != nil {
		return "", err
	}

	algorithm := v.(*ScriptedAlgorithm)
	if err := l.registry.Register(algorithm.Name(), algorithm); err != nil {
		return "", fmt.Errorf("failed to register scripted algorithm %q: %w", algorithm.Name(), err)
	}

	l.logger.Info("registered scripted reputation algorithm",
		"name", algorithm.Name(), "source", sourceRef, "version", version)
	return version, nil
}

// Version returns the current content version stamp of the source
// without executing it.
func (l *FileScriptLoader) Version(ctx context.Context, sourceRef string) (string, error) {
	if sourceRef == "" {
		return "", ErrEmptySourceRef
	}

	data, err := os.ReadFile(filepath.Clean(sourceRef))
	if err != nil {
		return "", fmt.Errorf("failed to read script source: %w", err)
	}
	return contentVersion(data), nil
}

// parseDefinition strictly decodes a YAML algorithm definition so
// configuration typos are not silently ignored.
func parseDefinition(data []byte) (*AlgorithmDefinition, error) {
	var definition AlgorithmDefinition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&definition); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &definition, nil
}

// contentVersion computes the hexadecimal SHA256 stamp of a source's
// content.
func contentVersion(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (l *FileScriptLoader) cachedAlgorithm(version string) (*ScriptedAlgorithm, bool) {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()

	algorithm, ok := l.cache[version]
	return algorithm, ok
}

func (l *FileScriptLoader) cacheAlgorithm(version string, algorithm *ScriptedAlgorithm) {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	l.cache[version] = algorithm
}
