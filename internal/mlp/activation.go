package mlp

import (
	"math"
	"math/rand"
)

type IActivationFn interface {
	Sigma(x float64) float64
	SigmaPrime(x float64) float64
}

type IdentityActivation struct{}

func (*IdentityActivation) Sigma(x float64) float64      { return x }
func (*IdentityActivation) SigmaPrime(x float64) float64 { return 1 }

type TanhActivation struct{}

func (*TanhActivation) Sigma(x float64) float64 {
	return math.Tanh(x)
}

func (*TanhActivation) SigmaPrime(x float64) float64 {
	var y = math.Tanh(x)
	return 1 - y*y
}

// InitUniform fills data with uniform noise of the given variance.
func InitUniform(rnd *rand.Rand, data []float64, variance float64) {
	var uniformVariance = 1.0 / 12
	var scale = math.Sqrt(variance / uniformVariance)
	for i := range data {
		data[i] = (rnd.Float64() - 0.5) * scale
	}
}
