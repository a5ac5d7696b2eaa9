package qdeepneuro

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const (
	layer1Weights = "layer1Weights"
	layer1Bias    = "layer1Bias"
	layer2Weights = "layer2Weights"
	layer2Bias    = "layer2Bias"
)

// network is a two layer perceptron: inputs -> ReLU hidden layer -> one linear output per action.
type network struct {
	mu            sync.Mutex
	layer1Weights *mat.Dense
	layer1Bias    *mat.Dense
	layer2Weights *mat.Dense
	layer2Bias    *mat.Dense
	optimizer     *adam
}

func newNetwork(inputCount, weightCount, outputCount int, learningRate float64, rng *rand.Rand) *network {
	n := &network{
		layer1Weights: randomDense(inputCount, weightCount, rng),
		layer1Bias:    mat.NewDense(1, weightCount, nil),
		layer2Weights: randomDense(weightCount, outputCount, rng),
		layer2Bias:    mat.NewDense(1, outputCount, nil),
	}
	n.optimizer = newAdam(learningRate, n.params())

	return n
}

func (n *network) Forward(inputs *mat.Dense) *mat.Dense {
	n.mu.Lock() // Lock weights
	defer n.mu.Unlock()

	_, _, outputL := n.internalNeuro(inputs)
	return outputL
}

func (n *network) Fit(inputs *mat.Dense, actions []int, targets []float64) float64 {
	rows, _ := inputs.Dims()
	if rows == 0 {
		return 0
	}

	n.mu.Lock() // Lock weights
	defer n.mu.Unlock()

	hiddenI, hiddenL, outputL := n.internalNeuro(inputs)

	// Only the taken action's output carries error
	_, outputCount := outputL.Dims()
	outputErr := mat.NewDense(rows, outputCount, nil)
	var loss float64
	for i := 0; i < rows; i++ {
		diff := outputL.At(i, actions[i]) - targets[i]
		loss += diff * diff
		outputErr.Set(i, actions[i], 2*diff/float64(rows))
	}
	loss /= float64(rows)

	// Output layer gradients
	var chngOut mat.Dense
	chngOut.Mul(hiddenL.T(), outputErr)

	// Hidden layer gradients, through the derivative of the activation
	var hiddenErr mat.Dense
	hiddenErr.Mul(outputErr, n.layer2Weights.T())
	hiddenErr.Apply(func(i, j int, v float64) float64 {
		return v * derLeru(hiddenI.At(i, j))
	}, &hiddenErr)

	var chngL1 mat.Dense
	chngL1.Mul(inputs.T(), &hiddenErr)

	n.optimizer.update(n.params(), Parameters{
		layer1Weights: &chngL1,
		layer1Bias:    columnSums(&hiddenErr),
		layer2Weights: &chngOut,
		layer2Bias:    columnSums(outputErr),
	})

	return loss
}

func (n *network) Parameters() Parameters {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.params().Clone()
}

// SetParameters replaces every weight matrix at once; nothing changes if a shape does not match.
func (n *network) SetParameters(p Parameters) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := checkShapes(n.params(), p); err != nil {
		return err
	}

	c := p.Clone()
	n.layer1Weights = c[layer1Weights]
	n.layer1Bias = c[layer1Bias]
	n.layer2Weights = c[layer2Weights]
	n.layer2Bias = c[layer2Bias]
	return nil
}

func (n *network) OptimizerState() OptimizerState {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.optimizer.state().Clone()
}

func (n *network) SetOptimizerState(s OptimizerState) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := checkOptimizerShapes(n.optimizer.state(), s); err != nil {
		return err
	}

	n.optimizer.restore(s.Clone())
	return nil
}

// params returns the live matrices; callers hold mu.
func (n *network) params() Parameters {
	return Parameters{
		layer1Weights: n.layer1Weights,
		layer1Bias:    n.layer1Bias,
		layer2Weights: n.layer2Weights,
		layer2Bias:    n.layer2Bias,
	}
}

func (n *network) internalNeuro(inputs *mat.Dense) (*mat.Dense, *mat.Dense, *mat.Dense) {
	rows, _ := inputs.Dims()
	_, weightCount := n.layer1Weights.Dims()
	_, outputCount := n.layer2Weights.Dims()

	// Apply W(i->1) weights
	hiddenInput := mat.NewDense(rows, weightCount, nil)
	hiddenInput.Mul(inputs, n.layer1Weights)
	addBias(hiddenInput, n.layer1Bias)

	// Apply Hidden Layer Activation functions
	hiddenL := mat.DenseCopyOf(hiddenInput)
	applyLeru(hiddenL)

	// Apply W(1->o) weights
	outputL := mat.NewDense(rows, outputCount, nil)
	outputL.Mul(hiddenL, n.layer2Weights)
	addBias(outputL, n.layer2Bias)

	return hiddenInput, hiddenL, outputL
}

func randomDense(rows, cols int, rng *rand.Rand) *mat.Dense {
	limit := 1 / math.Sqrt(float64(rows))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(rows, cols, data)
}

func addBias(matrix *mat.Dense, bias *mat.Dense) {
	matrix.Apply(func(i int, j int, v float64) float64 {
		return v + bias.At(0, j)
	}, matrix)
}

func columnSums(matrix *mat.Dense) *mat.Dense {
	rows, cols := matrix.Dims()
	sums := mat.NewDense(1, cols, nil)
	for j := 0; j < cols; j++ {
		var s float64
		for i := 0; i < rows; i++ {
			s += matrix.At(i, j)
		}
		sums.Set(0, j, s)
	}
	return sums
}

func applyLeru(matrix *mat.Dense) {
	matrix.Apply(func(i int, j int, v float64) float64 {
		return leru(v)
	}, matrix)
}

func leru(x float64) float64 {
	if x < 0 {
		return 0
	}

	return x
}

func derLeru(x float64) float64 {
	if x < 0 {
		return 0
	}

	return 1
}
