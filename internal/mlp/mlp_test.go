package mlp

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func samples(n int, seed int64, f func([3]float64) [3]float64) ([][3]float64, [][3]float64) {
	rnd := rand.New(rand.NewSource(seed))
	xs := make([][3]float64, n)
	ys := make([][3]float64, n)
	for i := range xs {
		xs[i] = [3]float64{rnd.Float64(), rnd.Float64(), rnd.Float64()}
		ys[i] = f(xs[i])
	}
	return xs, ys
}

func TestTrainLinear(t *testing.T) {
	xs, ys := samples(200, 1, func(p [3]float64) [3]float64 {
		return [3]float64{0.5*p[0] + 0.2, 0.8 * p[1], 0.3*p[0] + 0.6*p[2]}
	})
	net, rep, err := Train(context.Background(), xs, ys, Params{Hidden: 5, Restarts: 3, Seed: 1, Workers: 2})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rep.RMSError > 0.02 {
		t.Errorf("Expected rms below 0.02, got %g", rep.RMSError)
	}
	if rep.Restart < 0 || rep.Restart >= 3 {
		t.Errorf("Expected restart index in [0,3), got %d", rep.Restart)
	}
	if rep.Evaluations == 0 {
		t.Error("Expected evaluations to be counted")
	}
	if net.Hidden() != 5 {
		t.Errorf("Expected hidden width 5, got %d", net.Hidden())
	}

	v := net.Process([3]float64{0.5, 0.5, 0.5})
	want := [3]float64{0.45, 0.4, 0.45}
	for c := range v {
		if math.Abs(v[c]-want[c]) > 0.05 {
			t.Errorf("Process = %v; want about %v", v, want)
			break
		}
	}
}

func TestTrainDeterministic(t *testing.T) {
	xs, ys := samples(80, 2, func(p [3]float64) [3]float64 {
		return [3]float64{p[0] * p[0], p[1] * p[2], math.Sin(p[2])}
	})
	probe := [][3]float64{{0, 0, 0}, {0.3, 0.6, 0.9}, {1, 1, 1}}

	run := func(workers int) [][3]float64 {
		net, _, err := Train(context.Background(), xs, ys, Params{Hidden: 4, Restarts: 4, Seed: 7, Workers: workers, MaxIterations: 200})
		if err != nil {
			t.Fatal(err)
		}
		res := make([][3]float64, len(probe))
		for i, p := range probe {
			res[i] = net.Process(p)
		}
		return res
	}

	first := run(1)
	if diff := cmp.Diff(first, run(1)); diff != "" {
		t.Errorf("repeated training differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, run(4)); diff != "" {
		t.Errorf("parallel training differs (-serial +parallel):\n%s", diff)
	}
}

func TestTrainErrors(t *testing.T) {
	xs := [][3]float64{{0, 0, 0}}
	if _, _, err := Train(context.Background(), nil, nil, Params{Hidden: 1, Restarts: 1}); err == nil {
		t.Error("Expected error for empty data")
	}
	if _, _, err := Train(context.Background(), xs, xs, Params{Hidden: 0, Restarts: 1}); err == nil {
		t.Error("Expected error for zero hidden width")
	}
	if _, _, err := Train(context.Background(), xs, xs, Params{Hidden: 1, Restarts: 0}); err == nil {
		t.Error("Expected error for zero restarts")
	}
	nan := [][3]float64{{math.NaN(), 0, 0}}
	if _, _, err := Train(context.Background(), nan, nan, Params{Hidden: 2, Restarts: 1}); err == nil {
		t.Error("Expected error for NaN data")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Train(ctx, xs, xs, Params{Hidden: 2, Restarts: 2})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGradient(t *testing.T) {
	xs, ys := samples(10, 3, func(p [3]float64) [3]float64 { return [3]float64{p[1], p[2], p[0]} })
	net := newNetwork(3, newScaler(xs), newScaler(ys))
	net.initWeights(rand.New(rand.NewSource(5)))

	grad := make([]float64, len(net.params))
	net.loss(xs, ys, 0.01, grad)

	const h = 1e-6
	for i := range net.params {
		orig := net.params[i]
		net.params[i] = orig + h
		up := net.loss(xs, ys, 0.01, nil)
		net.params[i] = orig - h
		down := net.loss(xs, ys, 0.01, nil)
		net.params[i] = orig
		numeric := (up - down) / (2 * h)
		if math.Abs(numeric-grad[i]) > 1e-5 {
			t.Errorf("param %d: analytic gradient %g, numeric %g", i, grad[i], numeric)
		}
	}
}
