package qdeepneuro

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Policy is an epsilon-greedy action selector. Epsilon only changes through Decay.
type Policy struct {
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64
	rng          *rand.Rand
}

func NewPolicy(epsilon, epsilonMin, epsilonDecay float64, rng *rand.Rand) *Policy {
	return &Policy{
		Epsilon:      epsilon,
		EpsilonMin:   epsilonMin,
		EpsilonDecay: epsilonDecay,
		rng:          rng,
	}
}

// Select picks a random valid move with probability Epsilon, otherwise the valid move the estimator scores highest.
func (p *Policy) Select(estimator Estimator, state []float64, valid []int, actionSize int) (int, error) {
	if len(valid) == 0 {
		return -1, ErrNoValidMoves
	}
	for _, v := range valid {
		if v < 0 || v >= actionSize {
			return -1, errors.Wrapf(ErrIllegalMove, "move %d, action size %d", v, actionSize)
		}
	}

	if p.rng.Float64() < p.Epsilon {
		return valid[p.rng.IntN(len(valid))], nil
	}

	scores := estimator.Forward(mat.NewDense(1, len(state), state)).RawRowView(0)
	return Greedy(scores, valid), nil
}

// Decay shrinks epsilon by the decay factor, never below EpsilonMin.
func (p *Policy) Decay() {
	p.Epsilon = math.Max(p.EpsilonMin, p.Epsilon*p.EpsilonDecay)
}

// MaskScores returns a copy of scores where every index not in valid is -Inf.
func MaskScores(scores []float64, valid []int) []float64 {
	masked := make([]float64, len(scores))
	for i := range masked {
		masked[i] = math.Inf(-1)
	}
	for _, v := range valid {
		masked[v] = scores[v]
	}
	return masked
}

// Greedy returns the first index holding the highest masked score. When every valid
// score is -Inf the lowest valid index is returned.
func Greedy(scores []float64, valid []int) int {
	masked := MaskScores(scores, valid)
	best := floats.MaxIdx(masked)
	if !math.IsInf(masked[best], -1) {
		return best
	}

	lowest := valid[0]
	for _, v := range valid[1:] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest
}
