package qdeepneuro

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Learner is a DQN agent: an online estimator trained from replayed experience and a
// target estimator that is only ever changed by UpdateTarget.
type Learner struct {
	cfg     Config
	network Estimator
	target  Estimator
	memory  *Memory
	policy  *Policy
	log     *logrus.Entry
}

type Option func(*Learner)

// WithEstimators replaces the default networks. online and target must be distinct values of identical shape.
func WithEstimators(online, target Estimator) Option {
	return func(l *Learner) {
		l.network = online
		l.target = target
	}
}

func WithLogger(entry *logrus.Entry) Option {
	return func(l *Learner) {
		l.log = entry
	}
}

func NewLearner(cfg Config, opts ...Option) (*Learner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Learner{
		cfg:    cfg,
		memory: NewMemory(cfg.MemorySize, rand.NewPCG(cfg.Seed, 1)),
		policy: NewPolicy(cfg.Epsilon, cfg.EpsilonMin, cfg.EpsilonDecay, rand.New(rand.NewPCG(cfg.Seed, 2))),
		log:    logrus.WithField("component", "learner"),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.network == nil || l.target == nil {
		rng := rand.New(rand.NewPCG(cfg.Seed, 3))
		l.network = newNetwork(cfg.InputSize(), cfg.HiddenSize, cfg.ActionSize(), cfg.LearningRate, rng)
		l.target = newNetwork(cfg.InputSize(), cfg.HiddenSize, cfg.ActionSize(), cfg.LearningRate, rng)
	}

	if err := l.UpdateTarget(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Learner) Config() Config {
	return l.cfg
}

func (l *Learner) Epsilon() float64 {
	return l.policy.Epsilon
}

func (l *Learner) Memory() *Memory {
	return l.memory
}

// Act chooses an epsilon-greedy move among valid.
func (l *Learner) Act(state []float64, valid []int) (int, error) {
	if err := l.checkState(state); err != nil {
		return -1, err
	}
	return l.policy.Select(l.network, state, valid, l.cfg.ActionSize())
}

// Exploit chooses the best scored move among valid, ignoring epsilon.
func (l *Learner) Exploit(state []float64, valid []int) (int, error) {
	if len(valid) == 0 {
		return -1, ErrNoValidMoves
	}
	scores, err := l.QValues(state)
	if err != nil {
		return -1, err
	}
	for _, v := range valid {
		if v < 0 || v >= len(scores) {
			return -1, errors.Wrapf(ErrIllegalMove, "move %d, action size %d", v, len(scores))
		}
	}
	return Greedy(scores, valid), nil
}

// QValues returns the online estimator's score for every action.
func (l *Learner) QValues(state []float64) ([]float64, error) {
	if err := l.checkState(state); err != nil {
		return nil, err
	}
	out := l.network.Forward(mat.NewDense(1, len(state), state))
	return cloneVector(out.RawRowView(0)), nil
}

func (l *Learner) Remember(state []float64, action int, reward float64, nextState []float64, terminal bool) error {
	if err := l.checkTransition(state, action, nextState); err != nil {
		return err
	}

	l.memory.Append(Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Terminal:  terminal,
	})
	return nil
}

// RememberBatch records parallel slices of transitions. Nothing is recorded if any element is malformed.
func (l *Learner) RememberBatch(states [][]float64, actions []int, rewards []float64, nextStates [][]float64, terminals []bool) error {
	n := len(states)
	if len(actions) != n || len(rewards) != n || len(nextStates) != n || len(terminals) != n {
		return errors.Wrapf(ErrBatchLength, "states %d actions %d rewards %d next states %d terminals %d",
			n, len(actions), len(rewards), len(nextStates), len(terminals))
	}
	for i := 0; i < n; i++ {
		if err := l.checkTransition(states[i], actions[i], nextStates[i]); err != nil {
			return errors.Wrapf(err, "transition %d", i)
		}
	}

	return l.memory.AppendBatch(states, actions, rewards, nextStates, terminals)
}

// Train runs one replay step. It returns false without touching anything while the memory
// holds fewer than BatchSize transitions.
func (l *Learner) Train() (float64, bool) {
	batch, err := l.memory.Sample(l.cfg.BatchSize)
	if err != nil {
		return 0, false
	}

	inputCount := l.cfg.InputSize()
	states := mat.NewDense(len(batch), inputCount, nil)
	nextStates := mat.NewDense(len(batch), inputCount, nil)
	actions := make([]int, len(batch))
	for i, t := range batch {
		states.SetRow(i, t.State)
		nextStates.SetRow(i, t.NextState)
		actions[i] = t.Action
	}

	// Bootstrapped targets are plain numbers; no gradient flows through the target network.
	nextQ := l.target.Forward(nextStates)
	targets := make([]float64, len(batch))
	for i, t := range batch {
		targets[i] = t.Reward
		if !t.Terminal {
			targets[i] += l.cfg.Gamma * floats.Max(nextQ.RawRowView(i))
		}
	}

	loss := l.network.Fit(states, actions, targets)
	l.policy.Decay()
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		l.log.WithField("loss", loss).Warn("training diverged")
	}

	l.log.WithFields(logrus.Fields{
		"loss":    loss,
		"epsilon": l.policy.Epsilon,
		"memory":  l.memory.Len(),
	}).Debug("trained batch")

	return loss, true
}

// UpdateTarget copies the online parameters into the target estimator.
func (l *Learner) UpdateTarget() error {
	if err := l.target.SetParameters(l.network.Parameters()); err != nil {
		return errors.Wrap(err, "failed to sync target network")
	}

	l.log.Debug("synced target network")
	return nil
}

func (l *Learner) checkState(state []float64) error {
	if len(state) != l.cfg.InputSize() {
		return errors.Wrapf(ErrStateShape, "expected %d values, got %d", l.cfg.InputSize(), len(state))
	}
	return nil
}

func (l *Learner) checkTransition(state []float64, action int, nextState []float64) error {
	if err := l.checkState(state); err != nil {
		return err
	}
	if err := l.checkState(nextState); err != nil {
		return errors.Wrap(err, "next state")
	}
	if action < 0 || action >= l.cfg.ActionSize() {
		return errors.Wrapf(ErrIllegalMove, "action %d, action size %d", action, l.cfg.ActionSize())
	}
	return nil
}
