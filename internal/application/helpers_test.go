package application

import (
	"context"
	"fmt"

	"github.com/ahrav/go-merit/infrastructure/bus"
	"github.com/ahrav/go-merit/infrastructure/storage"
	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// testConfig is a ports.Config backed by plain fields so tests can flip
// preferences between operations.
type testConfig struct {
	averageStored     bool
	reputationEnabled bool
	reputationStored  bool
	methods           []string
	hint              string
	scriptSource      string
}

func newTestConfig() *testConfig {
	return &testConfig{
		averageStored: true,
		methods:       []string{domain.MethodAverage},
		hint:          "default",
	}
}

func (c *testConfig) AverageStored() bool      { return c.averageStored }
func (c *testConfig) ReputationEnabled() bool  { return c.reputationEnabled }
func (c *testConfig) ReputationStored() bool   { return c.reputationStored }
func (c *testConfig) DefaultMethods() []string { return c.methods }
func (c *testConfig) AlgorithmHint() string    { return c.hint }
func (c *testConfig) ScriptSourceRef() string  { return c.scriptSource }

// errUnsupported builds the sentinel an algorithm returns for a
// capability it does not implement.
func errUnsupported(capability string) error {
	return fmt.Errorf("%w: %s", domain.ErrUnsupported, capability)
}

// mockAlgorithm implements ports.ReputationAlgorithm with overridable
// behavior per capability. Unset capabilities report Unsupported, which
// matches the bundled reference algorithm's posture.
type mockAlgorithm struct {
	userReputationFn func(ctx context.Context, user string) (*domain.AverageRating, error)
	voterFn          func(ctx context.Context, voter, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error)
	contributorFn    func(ctx context.Context, contributor, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error)
	authorsFn        func(ctx context.Context, itemID string, rating *domain.Rating, oldVote int) (map[string]*domain.AverageRating, error)
	recalcFn         func(ctx context.Context) (map[string]*domain.AverageRating, error)
}

func (m *mockAlgorithm) UserReputation(ctx context.Context, user string) (*domain.AverageRating, error) {
	if m.userReputationFn != nil {
		return m.userReputationFn(ctx, user)
	}
	return nil, errUnsupported("user reputation")
}

func (m *mockAlgorithm) NewVoterReputation(ctx context.Context, voter, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error) {
	if m.voterFn != nil {
		return m.voterFn(ctx, voter, itemID, rating, oldVote)
	}
	return nil, errUnsupported("voter reputation")
}

func (m *mockAlgorithm) NewContributorReputation(ctx context.Context, contributor, itemID string, rating *domain.Rating, oldVote int) (*domain.AverageRating, error) {
	if m.contributorFn != nil {
		return m.contributorFn(ctx, contributor, itemID, rating, oldVote)
	}
	return nil, errUnsupported("contributor reputation")
}

func (m *mockAlgorithm) NewAuthorsReputation(ctx context.Context, itemID string, rating *domain.Rating, oldVote int) (map[string]*domain.AverageRating, error) {
	if m.authorsFn != nil {
		return m.authorsFn(ctx, itemID, rating, oldVote)
	}
	return nil, errUnsupported("authors reputation")
}

func (m *mockAlgorithm) RecalcAllReputation(ctx context.Context) (map[string]*domain.AverageRating, error) {
	if m.recalcFn != nil {
		return m.recalcFn(ctx)
	}
	return nil, errUnsupported("full recalculation")
}

// mockRegistry implements ports.AlgorithmRegistry over a plain map and
// counts lookups so resolver tests can assert cache behavior.
type mockRegistry struct {
	algorithms     map[string]ports.ReputationAlgorithm
	lookupCalls    int
	defaultCalls   int
	registeredLast string
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{algorithms: make(map[string]ports.ReputationAlgorithm)}
}

func (r *mockRegistry) Lookup(hint string) (ports.ReputationAlgorithm, error) {
	r.lookupCalls++
	algorithm, ok := r.algorithms[hint]
	if !ok {
		return nil, fmt.Errorf("%w: hint %q", domain.ErrAlgorithmNotFound, hint)
	}
	return algorithm, nil
}

func (r *mockRegistry) LookupDefault() (ports.ReputationAlgorithm, error) {
	r.defaultCalls++
	algorithm, ok := r.algorithms["default"]
	if !ok {
		return nil, fmt.Errorf("%w: no default", domain.ErrAlgorithmNotFound)
	}
	return algorithm, nil
}

func (r *mockRegistry) Register(hint string, algorithm ports.ReputationAlgorithm) error {
	r.algorithms[hint] = algorithm
	r.registeredLast = hint
	return nil
}

// mockLoader implements ports.ScriptLoader with scripted version and
// execution outcomes.
type mockLoader struct {
	version      string
	versionErr   error
	executeErr   error
	executeCalls int
	versionCalls int
	onExecute    func()
}

func (l *mockLoader) Execute(ctx context.Context, sourceRef string) (string, error) {
	l.executeCalls++
	if l.onExecute != nil {
		l.onExecute()
	}
	if l.executeErr != nil {
		return "", l.executeErr
	}
	return l.version, nil
}

func (l *mockLoader) Version(ctx context.Context, sourceRef string) (string, error) {
	l.versionCalls++
	if l.versionErr != nil {
		return "", l.versionErr
	}
	return l.version, nil
}

// failingBus is an EventBus whose transport always fails on publish.
type failingBus struct {
	err error
}

func (b *failingBus) Publish(ctx context.Context, event domain.RatingChangedEvent) error {
	return b.err
}

func (b *failingBus) Subscribe(handler func(ctx context.Context, event domain.RatingChangedEvent)) {
}

// failingAverageStore wraps a real store and fails selected operations.
type failingAverageStore struct {
	ports.AverageStore
	saveErr error
}

func (s *failingAverageStore) SaveAverage(ctx context.Context, avg *domain.AverageRating) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.AverageStore.SaveAverage(ctx, avg)
}

// testEngine bundles a fully wired engine with the collaborators the
// tests poke at directly.
type testEngine struct {
	*Engine
	store    *storage.MemoryStore
	bus      *bus.InProcessBus
	cfg      *testConfig
	registry *mockRegistry
}

// newTestEngine wires an engine over in-memory collaborators with the
// mock algorithm registered as the default.
func newTestEngine(t interface{ Fatalf(string, ...any) }, cfg *testConfig, algorithm ports.ReputationAlgorithm) *testEngine {
	store := storage.NewMemoryStore()
	eventBus := bus.NewInProcessBus(nil)
	registry := newMockRegistry()
	if algorithm == nil {
		algorithm = &mockAlgorithm{}
	}
	registry.algorithms["default"] = algorithm

	engine, err := NewEngine(EngineParams{
		Store:    store,
		Averages: store,
		Bus:      eventBus,
		Registry: registry,
		Config:   cfg,
	})
	if err != nil {
		t.Fatalf("failed to wire test engine: %v", err)
	}

	return &testEngine{
		Engine:   engine,
		store:    store,
		bus:      eventBus,
		cfg:      cfg,
		registry: registry,
	}
}
