package qdeepneuro

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1   float64 = 0.9
	adamBeta2   float64 = 0.999
	adamEpsilon float64 = 1e-8
)

// adam is the Adam optimizer with bias-corrected moment estimates.
type adam struct {
	learningRate float64
	step         int
	first        Parameters
	second       Parameters
}

func newAdam(learningRate float64, params Parameters) *adam {
	a := &adam{
		learningRate: learningRate,
		first:        make(Parameters, len(params)),
		second:       make(Parameters, len(params)),
	}
	for name, p := range params {
		r, c := p.Dims()
		a.first[name] = mat.NewDense(r, c, nil)
		a.second[name] = mat.NewDense(r, c, nil)
	}
	return a
}

// update applies one step to params in place.
func (a *adam) update(params, grads Parameters) {
	a.step++
	c1 := 1 - math.Pow(adamBeta1, float64(a.step))
	c2 := 1 - math.Pow(adamBeta2, float64(a.step))

	for name, p := range params {
		g, m, v := grads[name], a.first[name], a.second[name]
		rows, cols := p.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				gv := g.At(i, j)
				mv := adamBeta1*m.At(i, j) + (1-adamBeta1)*gv
				vv := adamBeta2*v.At(i, j) + (1-adamBeta2)*gv*gv
				m.Set(i, j, mv)
				v.Set(i, j, vv)
				p.Set(i, j, p.At(i, j)-a.learningRate*(mv/c1)/(math.Sqrt(vv/c2)+adamEpsilon))
			}
		}
	}
}

func (a *adam) state() OptimizerState {
	return OptimizerState{Step: a.step, First: a.first, Second: a.second}
}

func (a *adam) restore(s OptimizerState) {
	a.step = s.Step
	a.first = s.First
	a.second = s.Second
}
