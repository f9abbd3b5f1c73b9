package mlp

import "math/rand"

// Matrix is a column-major view into a parameter vector.
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

func (m *Matrix) Get(row, col int) float64 {
	return m.Data[col*m.Rows+row]
}

func (m *Matrix) Add(row, col int, delta float64) {
	m.Data[col*m.Rows+row] += delta
}

type Neuron struct {
	Activation float64
	Error      float64
	Prime      float64
}

type Layer struct {
	activationFn IActivationFn
	outputs      []Neuron
	weights      Matrix
	biases       Matrix
	wGradients   Matrix
	bGradients   Matrix
}

// newLayer lays the weights and then the biases out at the start of params
// and grads and returns the remaining tails.
func newLayer(
	inputSize, outputSize int,
	activationFn IActivationFn,
	params, grads []float64,
) (*Layer, []float64, []float64) {
	var nw = outputSize * inputSize
	var layer = &Layer{
		activationFn: activationFn,
		outputs:      make([]Neuron, outputSize),
		weights:      Matrix{Data: params[:nw], Rows: outputSize, Cols: inputSize},
		biases:       Matrix{Data: params[nw : nw+outputSize], Rows: outputSize, Cols: 1},
		wGradients:   Matrix{Data: grads[:nw], Rows: outputSize, Cols: inputSize},
		bGradients:   Matrix{Data: grads[nw : nw+outputSize], Rows: outputSize, Cols: 1},
	}
	return layer, params[nw+outputSize:], grads[nw+outputSize:]
}

func layerParams(inputSize, outputSize int) int {
	return outputSize*inputSize + outputSize
}

func (layer *Layer) InitWeights(rnd *rand.Rand) {
	var variance = 2.0 / float64(layer.weights.Rows+layer.weights.Cols)
	InitUniform(rnd, layer.weights.Data, variance)
	for i := range layer.biases.Data {
		layer.biases.Data[i] = 0
	}
}

func (layer *Layer) Forward(input []Neuron) {
	for outputIndex := range layer.outputs {
		var x = layer.biases.Data[outputIndex]
		for inputIndex := range input {
			x += layer.weights.Get(outputIndex, inputIndex) * input[inputIndex].Activation
		}
		var n = &layer.outputs[outputIndex]
		n.Activation = layer.activationFn.Sigma(x)
		n.Prime = layer.activationFn.SigmaPrime(x)
	}
}

// Backward propagates the output errors to input and accumulates the
// gradients of the layer parameters.
func (layer *Layer) Backward(input []Neuron) {
	for inputIndex := range input {
		input[inputIndex].Error = 0
	}
	for outputIndex := range layer.outputs {
		var n = &layer.outputs[outputIndex]
		var x = n.Error * n.Prime
		layer.bGradients.Add(outputIndex, 0, x)
		for inputIndex := range input {
			input[inputIndex].Error += layer.weights.Get(outputIndex, inputIndex) * x
			layer.wGradients.Add(outputIndex, inputIndex, x*input[inputIndex].Activation)
		}
	}
}
