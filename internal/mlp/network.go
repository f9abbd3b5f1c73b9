package mlp

import (
	"math"
	"math/rand"
)

// scaler standardises one 3-vector column wise.
type scaler struct {
	mean [3]float64
	std  [3]float64
}

func newScaler(v [][3]float64) scaler {
	var s scaler
	for _, x := range v {
		for c := 0; c < 3; c++ {
			s.mean[c] += x[c]
		}
	}
	for c := 0; c < 3; c++ {
		s.mean[c] /= float64(len(v))
	}
	for _, x := range v {
		for c := 0; c < 3; c++ {
			d := x[c] - s.mean[c]
			s.std[c] += d * d
		}
	}
	for c := 0; c < 3; c++ {
		s.std[c] = math.Sqrt(s.std[c] / float64(len(v)))
		if s.std[c] == 0 {
			s.std[c] = 1
		}
	}
	return s
}

func (s *scaler) forward(x [3]float64) [3]float64 {
	return [3]float64{
		(x[0] - s.mean[0]) / s.std[0],
		(x[1] - s.mean[1]) / s.std[1],
		(x[2] - s.mean[2]) / s.std[2],
	}
}

func (s *scaler) inverse(x [3]float64) [3]float64 {
	return [3]float64{
		x[0]*s.std[0] + s.mean[0],
		x[1]*s.std[1] + s.mean[1],
		x[2]*s.std[2] + s.mean[2],
	}
}

// Network is a 3-H-3 perceptron with a tanh hidden layer and a linear output
// layer. A Network is not safe for concurrent use.
type Network struct {
	params []float64
	grads  []float64
	inputs []Neuron
	hidden *Layer
	output *Layer
	in     scaler
	out    scaler
}

func newNetwork(hidden int, in, out scaler) *Network {
	var size = layerParams(3, hidden) + layerParams(hidden, 3)
	var n = &Network{
		params: make([]float64, size),
		grads:  make([]float64, size),
		inputs: make([]Neuron, 3),
		in:     in,
		out:    out,
	}
	var params, grads = n.params, n.grads
	n.hidden, params, grads = newLayer(3, hidden, &TanhActivation{}, params, grads)
	n.output, _, _ = newLayer(hidden, 3, &IdentityActivation{}, params, grads)
	return n
}

// Hidden returns the width of the hidden layer.
func (n *Network) Hidden() int {
	return len(n.hidden.outputs)
}

func (n *Network) initWeights(rnd *rand.Rand) {
	n.hidden.InitWeights(rnd)
	n.output.InitWeights(rnd)
}

// forward evaluates standardised input and returns standardised output.
func (n *Network) forward(x [3]float64) [3]float64 {
	for i := range n.inputs {
		n.inputs[i].Activation = x[i]
	}
	n.hidden.Forward(n.inputs)
	n.output.Forward(n.hidden.outputs)
	return [3]float64{
		n.output.outputs[0].Activation,
		n.output.outputs[1].Activation,
		n.output.outputs[2].Activation,
	}
}

// Process evaluates the network at a single point.
func (n *Network) Process(p [3]float64) [3]float64 {
	return n.out.inverse(n.forward(n.in.forward(p)))
}

// loss returns the mean half squared error over the standardised samples
// plus weight decay. If grad is not nil it receives the gradient.
func (n *Network) loss(xs, ys [][3]float64, decay float64, grad []float64) float64 {
	if grad != nil {
		for i := range n.grads {
			n.grads[i] = 0
		}
	}
	var sum float64
	for i := range xs {
		var predicted = n.forward(xs[i])
		for c := 0; c < 3; c++ {
			var e = predicted[c] - ys[i][c]
			sum += 0.5 * e * e
			n.output.outputs[c].Error = e
		}
		if grad != nil {
			n.output.Backward(n.hidden.outputs)
			n.hidden.Backward(n.inputs)
		}
	}
	var scale = 1 / float64(len(xs))
	var penalty float64
	for _, w := range n.params {
		penalty += w * w
	}
	if grad != nil {
		for i := range grad {
			grad[i] = n.grads[i]*scale + decay*n.params[i]
		}
	}
	return sum*scale + 0.5*decay*penalty
}
