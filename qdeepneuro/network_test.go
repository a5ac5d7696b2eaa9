package qdeepneuro

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testNetwork(seed uint64) *network {
	return newNetwork(6, 8, 4, 0.01, rand.New(rand.NewPCG(seed, 0)))
}

func fixedBatch() (*mat.Dense, []int, []float64) {
	inputs := mat.NewDense(4, 6, []float64{
		1, 0, 0, 1, 0, 0,
		0, 1, 0, 0, 1, 0,
		0, 0, 1, 0, 0, 1,
		1, 1, 0, 0, 0, 1,
	})
	return inputs, []int{0, 1, 2, 3}, []float64{1, -1, 0.5, 2}
}

func TestNetworkForwardShape(t *testing.T) {
	n := testNetwork(1)
	out := n.Forward(mat.NewDense(3, 6, nil))
	r, c := out.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 4, c)
}

func TestNetworkFitReducesLoss(t *testing.T) {
	n := testNetwork(2)
	inputs, actions, targets := fixedBatch()

	first := n.Fit(inputs, actions, targets)
	var last float64
	for i := 0; i < 300; i++ {
		last = n.Fit(inputs, actions, targets)
	}
	require.Less(t, last, first/10)
	require.Equal(t, 301, n.OptimizerState().Step)
}

func TestNetworkFitLossIsMeanSquaredError(t *testing.T) {
	n := testNetwork(3)
	inputs, actions, targets := fixedBatch()

	out := n.Forward(inputs)
	var want float64
	for i, a := range actions {
		d := out.At(i, a) - targets[i]
		want += d * d
	}
	want /= float64(len(actions))

	require.InDelta(t, want, n.Fit(inputs, actions, targets), 1e-12)
}

func TestNetworkParametersAreCopies(t *testing.T) {
	n := testNetwork(4)
	inputs, _, _ := fixedBatch()
	before := n.Forward(inputs)

	p := n.Parameters()
	p[layer2Weights].Scale(10, p[layer2Weights])
	require.True(t, mat.Equal(before, n.Forward(inputs)))
}

func TestNetworkSetParameters(t *testing.T) {
	src, dst := testNetwork(5), testNetwork(6)
	inputs, _, _ := fixedBatch()
	require.False(t, mat.Equal(src.Forward(inputs), dst.Forward(inputs)))

	require.NoError(t, dst.SetParameters(src.Parameters()))
	require.True(t, mat.Equal(src.Forward(inputs), dst.Forward(inputs)))

	// Training the source afterwards must not leak into the copy.
	src.Fit(fixedBatch())
	require.False(t, mat.Equal(src.Forward(inputs), dst.Forward(inputs)))
}

func TestNetworkSetParametersRejectsShapes(t *testing.T) {
	n := testNetwork(7)
	other := newNetwork(6, 9, 4, 0.01, rand.New(rand.NewPCG(1, 0)))
	before := n.Parameters()

	err := n.SetParameters(other.Parameters())
	require.True(t, errors.Is(err, ErrCorruptCheckpoint))

	missing := n.Parameters()
	delete(missing, layer1Bias)
	require.True(t, errors.Is(n.SetParameters(missing), ErrCorruptCheckpoint))

	after := n.Parameters()
	for name := range before {
		require.True(t, mat.Equal(before[name], after[name]), name)
	}
}

func TestNetworkSetOptimizerStateRejectsShapes(t *testing.T) {
	n := testNetwork(8)
	other := newNetwork(5, 8, 4, 0.01, rand.New(rand.NewPCG(1, 0)))

	err := n.SetOptimizerState(other.OptimizerState())
	require.True(t, errors.Is(err, ErrCorruptCheckpoint))

	bad := n.OptimizerState()
	bad.Step = -1
	require.True(t, errors.Is(n.SetOptimizerState(bad), ErrCorruptCheckpoint))
}
