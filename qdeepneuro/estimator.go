package qdeepneuro

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Estimator maps a batch of encoded states (one per row) to per-action scores.
type Estimator interface {
	Forward(inputs *mat.Dense) *mat.Dense
	// Fit takes one gradient step minimising the mean squared error between
	// Forward(inputs)[i][actions[i]] and targets[i], and returns that loss.
	Fit(inputs *mat.Dense, actions []int, targets []float64) float64
	Parameters() Parameters
	SetParameters(Parameters) error
	OptimizerState() OptimizerState
	SetOptimizerState(OptimizerState) error
}

// Parameters is a named set of matrices.
type Parameters map[string]*mat.Dense

// OptimizerState holds the optimizer's step counter and per-parameter moments.
type OptimizerState struct {
	Step   int
	First  Parameters
	Second Parameters
}

func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for name, m := range p {
		out[name] = mat.DenseCopyOf(m)
	}
	return out
}

func (p Parameters) names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s OptimizerState) Clone() OptimizerState {
	return OptimizerState{
		Step:   s.Step,
		First:  s.First.Clone(),
		Second: s.Second.Clone(),
	}
}

// checkShapes reports an ErrCorruptCheckpoint if got does not have exactly the names and dimensions of want.
func checkShapes(want, got Parameters) error {
	if len(want) != len(got) {
		return errors.Wrapf(ErrCorruptCheckpoint, "expected %d parameters, got %d", len(want), len(got))
	}

	for _, name := range want.names() {
		g, ok := got[name]
		if !ok || g == nil {
			return errors.Wrapf(ErrCorruptCheckpoint, "missing parameter %s", name)
		}

		wr, wc := want[name].Dims()
		gr, gc := g.Dims()
		if wr != gr || wc != gc {
			return errors.Wrapf(ErrCorruptCheckpoint, "parameter %s: expected %dx%d, got %dx%d", name, wr, wc, gr, gc)
		}
	}
	return nil
}

func checkOptimizerShapes(want, got OptimizerState) error {
	if got.Step < 0 {
		return errors.Wrapf(ErrCorruptCheckpoint, "optimizer step %d", got.Step)
	}
	if err := checkShapes(want.First, got.First); err != nil {
		return errors.Wrap(err, "first moment")
	}
	if err := checkShapes(want.Second, got.Second); err != nil {
		return errors.Wrap(err, "second moment")
	}
	return nil
}
