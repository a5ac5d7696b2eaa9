package qdeepneuro

import (
	"math/rand/v2"

	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Transition is one recorded step. Values are copied on the way in and never mutated afterwards.
type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Terminal  bool
}

// Memory is a bounded replay buffer; once full, each append evicts the oldest transition.
type Memory struct {
	transitions *deque.Deque[Transition]
	capacity    int
	src         rand.Source
}

// NewMemory returns an empty memory holding at most capacity transitions, never fewer than one.
func NewMemory(capacity int, src rand.Source) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		transitions: deque.New[Transition](),
		capacity:    capacity,
		src:         src,
	}
}

func (m *Memory) Len() int {
	return m.transitions.Len()
}

func (m *Memory) Cap() int {
	return m.capacity
}

// At returns a copy of the i-th stored transition, oldest first.
func (m *Memory) At(i int) Transition {
	return m.transitions.At(i).clone()
}

func (m *Memory) Append(t Transition) {
	if m.transitions.Len() >= m.capacity {
		m.transitions.PopFront()
	}

	m.transitions.PushBack(t.clone())
}

// AppendBatch appends parallel slices element by element, exactly as repeated Append calls would.
func (m *Memory) AppendBatch(states [][]float64, actions []int, rewards []float64, nextStates [][]float64, terminals []bool) error {
	n := len(states)
	if len(actions) != n || len(rewards) != n || len(nextStates) != n || len(terminals) != n {
		return errors.Wrapf(ErrBatchLength, "states %d actions %d rewards %d next states %d terminals %d",
			n, len(actions), len(rewards), len(nextStates), len(terminals))
	}

	for i := 0; i < n; i++ {
		m.Append(Transition{
			State:     states[i],
			Action:    actions[i],
			Reward:    rewards[i],
			NextState: nextStates[i],
			Terminal:  terminals[i],
		})
	}
	return nil
}

// Sample draws k distinct transitions uniformly at random.
func (m *Memory) Sample(k int) ([]Transition, error) {
	n := m.transitions.Len()
	if k > n {
		return nil, errors.Wrapf(ErrInsufficientData, "requested %d, have %d", k, n)
	}
	if k <= 0 {
		return []Transition{}, nil
	}

	idxs := make([]int, k)
	sampleuv.WithoutReplacement(idxs, n, m.src)

	batch := make([]Transition, k)
	for i, idx := range idxs {
		batch[i] = m.transitions.At(idx).clone()
	}
	return batch, nil
}

func (t Transition) clone() Transition {
	t.State = cloneVector(t.State)
	t.NextState = cloneVector(t.NextState)
	return t
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
