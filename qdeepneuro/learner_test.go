package qdeepneuro

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BoardSize = 3
	cfg.MemorySize = 100
	cfg.BatchSize = 8
	cfg.HiddenSize = 16
	cfg.LearningRate = 0.01
	cfg.Seed = 7
	return cfg
}

func newTestLearner(t *testing.T, cfg Config, opts ...Option) *Learner {
	t.Helper()
	l, err := NewLearner(cfg, opts...)
	require.NoError(t, err)
	return l
}

func randomState(rng *rand.Rand, cfg Config) []float64 {
	s := make([]float64, cfg.InputSize())
	for i := range s {
		s[i] = float64(rng.IntN(2))
	}
	return s
}

func fillMemory(t *testing.T, l *Learner, n int, seed uint64) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 0))
	cfg := l.Config()
	for i := 0; i < n; i++ {
		require.NoError(t, l.Remember(randomState(rng, cfg), rng.IntN(cfg.ActionSize()), rng.Float64()*2-1, randomState(rng, cfg), rng.IntN(4) == 0))
	}
}

func requireEqualParameters(t *testing.T, want, got Parameters) {
	t.Helper()
	require.Len(t, got, len(want))
	for name, w := range want {
		require.True(t, mat.Equal(w, got[name]), "parameter %s differs", name)
	}
}

func parametersEqual(a, b Parameters) bool {
	for name := range a {
		if !mat.Equal(a[name], b[name]) {
			return false
		}
	}
	return true
}

func TestNewLearnerRejectsInvalidConfig(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.BoardSize = 0 },
		func(c *Config) { c.BatchSize = 0 },
		func(c *Config) { c.Gamma = 1.5 },
		func(c *Config) { c.Epsilon = 0.001 },
		func(c *Config) { c.EpsilonDecay = 0 },
		func(c *Config) { c.LearningRate = 0 },
	} {
		cfg := testConfig()
		mutate(&cfg)
		_, err := NewLearner(cfg)
		require.True(t, errors.Is(err, ErrInvalidConfig))
	}
}

func TestNewLearnerSyncsTarget(t *testing.T) {
	l := newTestLearner(t, testConfig())
	requireEqualParameters(t, l.network.Parameters(), l.target.Parameters())
}

func TestTrainIsNoopUntilBatchIsAvailable(t *testing.T) {
	l := newTestLearner(t, testConfig())
	before := l.network.Parameters()

	fillMemory(t, l, 7, 1)
	loss, ok := l.Train()
	require.False(t, ok)
	require.Zero(t, loss)
	require.Equal(t, 1.0, l.Epsilon())
	requireEqualParameters(t, before, l.network.Parameters())

	fillMemory(t, l, 1, 2)
	_, ok = l.Train()
	require.True(t, ok)
	require.Equal(t, 0.995, l.Epsilon())
	require.False(t, parametersEqual(before, l.network.Parameters()))
}

func TestTrainEpsilonNeverIncreases(t *testing.T) {
	cfg := testConfig()
	cfg.EpsilonMin = 0.5
	cfg.EpsilonDecay = 0.95
	l := newTestLearner(t, cfg)
	fillMemory(t, l, 20, 3)

	prev := l.Epsilon()
	for i := 0; i < 40; i++ {
		_, ok := l.Train()
		require.True(t, ok)
		require.LessOrEqual(t, l.Epsilon(), prev)
		require.GreaterOrEqual(t, l.Epsilon(), cfg.EpsilonMin)
		prev = l.Epsilon()
	}
	require.Equal(t, cfg.EpsilonMin, l.Epsilon())
}

func TestTargetLagsUntilUpdate(t *testing.T) {
	l := newTestLearner(t, testConfig())
	fillMemory(t, l, 30, 4)
	synced := l.target.Parameters()

	for i := 0; i < 5; i++ {
		_, ok := l.Train()
		require.True(t, ok)
	}
	require.False(t, parametersEqual(synced, l.network.Parameters()))
	requireEqualParameters(t, synced, l.target.Parameters())

	require.NoError(t, l.UpdateTarget())
	requireEqualParameters(t, l.network.Parameters(), l.target.Parameters())

	// Online keeps its own matrices after a sync.
	_, ok := l.Train()
	require.True(t, ok)
	require.False(t, parametersEqual(l.network.Parameters(), l.target.Parameters()))
}

func TestTrainBootstrapsFromTarget(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.Gamma = 0.5

	// Index 8 holds the highest target score; no masking applies to it.
	online := &fixedEstimator{scores: make([]float64, 9)}
	target := &fixedEstimator{scores: []float64{1, 0, 3, 0, 0, 0, 0, 0, 6}}
	l := newTestLearner(t, cfg, WithEstimators(online, target))

	s := make([]float64, cfg.InputSize())
	require.NoError(t, l.Remember(s, 1, 2, s, true))
	require.NoError(t, l.Remember(s, 4, 0.5, s, false))

	_, ok := l.Train()
	require.True(t, ok)
	require.Len(t, online.targets, 2)

	got := map[int]float64{}
	for i, a := range online.actions {
		got[a] = online.targets[i]
	}
	require.Equal(t, map[int]float64{1: 2, 4: 0.5 + 0.5*6}, got)
}

func TestActValidatesInput(t *testing.T) {
	l := newTestLearner(t, testConfig())

	_, err := l.Act([]float64{1, 2}, []int{0})
	require.True(t, errors.Is(err, ErrStateShape))

	_, err = l.Act(make([]float64, l.Config().InputSize()), nil)
	require.True(t, errors.Is(err, ErrNoValidMoves))
}

func TestExploitIgnoresEpsilon(t *testing.T) {
	online := &fixedEstimator{scores: []float64{0, 9, 0, 4, 0, 0, 0, 7, 0}}
	l := newTestLearner(t, testConfig(), WithEstimators(online, &fixedEstimator{}))
	require.Equal(t, 1.0, l.Epsilon())

	s := make([]float64, l.Config().InputSize())
	for i := 0; i < 20; i++ {
		a, err := l.Exploit(s, []int{3, 7, 0})
		require.NoError(t, err)
		require.Equal(t, 7, a)
	}

	_, err := l.Exploit(s, []int{9})
	require.True(t, errors.Is(err, ErrIllegalMove))
}

func TestRememberValidates(t *testing.T) {
	l := newTestLearner(t, testConfig())
	s := make([]float64, l.Config().InputSize())

	require.True(t, errors.Is(l.Remember(s, 9, 0, s, false), ErrIllegalMove))
	require.True(t, errors.Is(l.Remember(s, 0, 0, s[:3], false), ErrStateShape))
	require.Equal(t, 0, l.Memory().Len())
}

func TestRememberBatchIsAllOrNothing(t *testing.T) {
	l := newTestLearner(t, testConfig())
	s := make([]float64, l.Config().InputSize())

	err := l.RememberBatch([][]float64{s, s, s}, []int{0, 1, 42}, []float64{0, 0, 0}, [][]float64{s, s, s}, []bool{false, false, true})
	require.True(t, errors.Is(err, ErrIllegalMove))
	require.Equal(t, 0, l.Memory().Len())

	err = l.RememberBatch([][]float64{s, s}, []int{0}, []float64{0, 0}, [][]float64{s, s}, []bool{false, true})
	require.True(t, errors.Is(err, ErrBatchLength))

	require.NoError(t, l.RememberBatch([][]float64{s, s}, []int{0, 1}, []float64{0, 1}, [][]float64{s, s}, []bool{false, true}))
	require.Equal(t, 2, l.Memory().Len())
	require.True(t, l.Memory().At(1).Terminal)
}
