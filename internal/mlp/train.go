// Package mlp trains small feed-forward networks that map 3-vectors to
// 3-vectors.
//
// Training minimises the mean squared error plus weight decay with L-BFGS.
// Several restarts from independent random weights run concurrently and the
// restart with the lowest training error wins. Each restart seeds its own
// generator, so the result does not depend on scheduling.
package mlp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"
)

const (
	DefaultDecay         = 0.001
	DefaultMaxIterations = 1000
)

type Params struct {
	// Width of the hidden layer.
	Hidden int
	// Independent random restarts.
	Restarts int
	// Weight decay. Zero selects DefaultDecay, negative disables it.
	Decay float64
	// L-BFGS iteration limit per restart. Zero selects DefaultMaxIterations.
	MaxIterations int
	// Restart i is seeded with Seed+i.
	Seed int64
	// Restarts trained at the same time. Values below 1 mean 1.
	Workers int
}

func (p Params) withDefaults() Params {
	if p.Decay == 0 {
		p.Decay = DefaultDecay
	} else if p.Decay < 0 {
		p.Decay = 0
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = DefaultMaxIterations
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return p
}

// Report summarises the training of the selected network.
type Report struct {
	// RMS over all 3n output components, in output units.
	RMSError float64
	// Mean absolute component error.
	AvgError float64
	// Index of the winning restart.
	Restart int
	// Loss evaluations over all restarts.
	Evaluations int
}

// ErrNoConvergence is returned when every restart failed.
var ErrNoConvergence = errors.New("mlp: no restart produced a usable network")

type restart struct {
	net         *Network
	rms, avg    float64
	evaluations int
	err         error
}

// Train fits a network mapping xs[i] to ys[i].
func Train(ctx context.Context, xs, ys [][3]float64, p Params) (*Network, Report, error) {
	if p.Hidden < 1 || p.Restarts < 1 {
		return nil, Report{}, fmt.Errorf("mlp: invalid topology, hidden %d restarts %d", p.Hidden, p.Restarts)
	}
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, Report{}, fmt.Errorf("mlp: need matching non-empty point sets, got %d and %d", len(xs), len(ys))
	}
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			return nil, Report{}, fmt.Errorf("mlp: non-finite sample at row %d", i)
		}
	}
	p = p.withDefaults()

	var in, out = newScaler(xs), newScaler(ys)
	var sx = make([][3]float64, len(xs))
	var sy = make([][3]float64, len(ys))
	for i := range xs {
		sx[i] = in.forward(xs[i])
		sy[i] = out.forward(ys[i])
	}

	var results = make([]restart, p.Restarts)
	var index int32 = -1
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < min(p.Workers, p.Restarts); w++ {
		g.Go(func() error {
			for {
				var i = int(atomic.AddInt32(&index, 1))
				if i >= len(results) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				var net = newNetwork(p.Hidden, in, out)
				results[i] = trainRestart(net, sx, sy, p, p.Seed+int64(i))
				if results[i].err == nil {
					results[i].rms, results[i].avg = trainingError(net, xs, ys)
				}
				logrus.WithFields(logrus.Fields{
					"restart": i,
					"rms":     results[i].rms,
					"error":   results[i].err,
				}).Debug("mlp restart finished")
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	var best = -1
	var rep Report
	for i := range results {
		rep.Evaluations += results[i].evaluations
		if results[i].err != nil || math.IsNaN(results[i].rms) {
			continue
		}
		if best < 0 || results[i].rms < results[best].rms {
			best = i
		}
	}
	if best < 0 {
		return nil, rep, fmt.Errorf("%w: %v", ErrNoConvergence, results[0].err)
	}
	rep.RMSError = results[best].rms
	rep.AvgError = results[best].avg
	rep.Restart = best
	return results[best].net, rep, nil
}

func trainRestart(net *Network, xs, ys [][3]float64, p Params, seed int64) restart {
	net.initWeights(rand.New(rand.NewSource(seed)))

	var res = restart{net: net}
	var problem = optimize.Problem{
		Func: func(x []float64) float64 {
			res.evaluations++
			copy(net.params, x)
			return net.loss(xs, ys, p.Decay, nil)
		},
		Grad: func(grad, x []float64) {
			res.evaluations++
			copy(net.params, x)
			net.loss(xs, ys, p.Decay, grad)
		},
	}
	var settings = &optimize.Settings{
		MajorIterations:   p.MaxIterations,
		GradientThreshold: 1e-8,
	}
	var init = append([]float64(nil), net.params...)
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		if err == nil {
			err = ErrNoConvergence
		}
		res.err = err
		return res
	}
	if err != nil {
		// The best location found so far is still usable.
		logrus.WithError(err).Debug("mlp: optimisation stopped early")
	}
	copy(net.params, result.X)
	return res
}

func finite(v [3]float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func trainingError(net *Network, xs, ys [][3]float64) (rms, avg float64) {
	var sum, abs float64
	for i := range xs {
		var v = net.Process(xs[i])
		for c := 0; c < 3; c++ {
			var e = v[c] - ys[i][c]
			sum += e * e
			abs += math.Abs(e)
		}
	}
	var n = float64(3 * len(xs))
	return math.Sqrt(sum / n), abs / n
}
