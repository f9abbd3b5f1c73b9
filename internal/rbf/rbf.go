// Package rbf fits hierarchical radial basis function models to scattered
// 3D → 3D data.
//
// A model is an affine term followed by a stack of layers of Gaussian
// kernels exp(-d²/r²) centred on the data points. The first layer uses the
// base radius, every further layer halves it, and each layer fits what the
// previous ones left over. Kernels are cut off at 3r, which keeps the
// evaluation of small layers local.
//
// Fitting is not local: every layer solves a dense n×n system by Cholesky
// factorisation, so a fit over n points takes O(n³) time and O(n²) memory
// per layer. A few thousand points take tens of seconds; thin out larger
// datasets before fitting. Build logs a warning above DenseWarnPoints.
package rbf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// support is the kernel cut-off in units of the layer radius.
const support = 3.0

// jitters are the diagonal shifts tried, in order, for every layer system.
var jitters = []float64{1e-10, 1e-8, 1e-6, 1e-4, 1e-2}

// DenseWarnPoints is the dataset size above which Build warns about the cost
// of the dense layer systems.
var DenseWarnPoints = 2000

// ErrSingular is returned when a layer system cannot be factorised even with
// the largest diagonal jitter.
var ErrSingular = errors.New("rbf: layer system is singular")

type Params struct {
	// Radius of the first layer.
	Radius float64
	// Number of layers.
	Layers int
	// Regularisation added to the diagonal of every layer system. Zero
	// interpolates the data.
	Smoothing float64
	// Goroutines used by EvalGrid. Values below 1 mean 1.
	Workers int
}

func (p Params) validate() error {
	switch {
	case !(p.Radius > 0) || math.IsInf(p.Radius, 0):
		return fmt.Errorf("rbf: invalid radius %v", p.Radius)
	case p.Layers < 1:
		return fmt.Errorf("rbf: invalid layer count %d", p.Layers)
	case !(p.Smoothing >= 0) || math.IsInf(p.Smoothing, 0):
		return fmt.Errorf("rbf: invalid smoothing %v", p.Smoothing)
	}
	return nil
}

// Report describes how well a model reproduces its training data.
type Report struct {
	// RMS over all 3n output components.
	RMSError float64
	// Largest absolute component error.
	MaxError float64
	// Diagonal jitter that was needed per layer.
	Jitter []float64
}

type layer struct {
	radius  float64
	weights [][3]float64
}

// Model is a fitted RBF model. It is safe for concurrent evaluation.
type Model struct {
	affine  [4][3]float64
	tree    *kdtree.Tree
	layers  []layer
	workers int
}

// Build fits a model mapping xs[i] to ys[i].
func Build(ctx context.Context, xs, ys [][3]float64, p Params) (*Model, Report, error) {
	if err := p.validate(); err != nil {
		return nil, Report{}, err
	}
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, Report{}, fmt.Errorf("rbf: need matching non-empty point sets, got %d and %d", len(xs), len(ys))
	}
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			return nil, Report{}, fmt.Errorf("rbf: point %d is not finite", i)
		}
	}

	if len(xs) > DenseWarnPoints {
		logrus.WithFields(logrus.Fields{
			"points": len(xs),
			"matrix": humanize.Bytes(uint64(len(xs)) * uint64(len(xs)) * 8),
		}).Warn("rbf: dense fit over many points, expect a long run")
	}

	m := &Model{
		tree:    newTree(xs),
		workers: max(p.Workers, 1),
	}
	if err := m.fitAffine(xs, ys); err != nil {
		return nil, Report{}, err
	}

	n := len(xs)
	residual := make([][3]float64, n)
	for i := range xs {
		a := m.evalAffine(xs[i])
		for c := 0; c < 3; c++ {
			residual[i][c] = ys[i][c] - a[c]
		}
	}

	var rep Report
	radius := p.Radius
	for l := 0; l < p.Layers; l++ {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		k := m.kernelMatrix(xs, radius)
		w, jitter, err := solveLayer(k, n, p.Smoothing, residual)
		if err != nil {
			return nil, Report{}, fmt.Errorf("layer %d (radius %g): %w", l, radius, err)
		}
		m.layers = append(m.layers, layer{radius: radius, weights: w})
		rep.Jitter = append(rep.Jitter, jitter)

		// The residual of the next layer is what K·W misses.
		for i := 0; i < n; i++ {
			row := k[i*n : (i+1)*n]
			for j, kij := range row {
				if kij == 0 {
					continue
				}
				for c := 0; c < 3; c++ {
					residual[i][c] -= kij * w[j][c]
				}
			}
		}
		logrus.WithFields(logrus.Fields{
			"layer":  l,
			"radius": radius,
			"jitter": jitter,
			"rms":    rms(residual),
		}).Debug("rbf layer fitted")
		radius /= 2
	}

	var sum float64
	for i := range xs {
		v := m.Eval(xs[i])
		for c := 0; c < 3; c++ {
			e := math.Abs(v[c] - ys[i][c])
			sum += e * e
			rep.MaxError = math.Max(rep.MaxError, e)
		}
	}
	rep.RMSError = math.Sqrt(sum / float64(3*n))
	return m, rep, nil
}

// fitAffine solves the regularised normal equations of the affine term,
// which stay solvable for coplanar or repeated points.
func (m *Model) fitAffine(xs, ys [][3]float64) error {
	var ata [4][4]float64
	var aty [4][3]float64
	for i := range xs {
		a := [4]float64{xs[i][0], xs[i][1], xs[i][2], 1}
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				ata[r][c] += a[r] * a[c]
			}
			for c := 0; c < 3; c++ {
				aty[r][c] += a[r] * ys[i][c]
			}
		}
	}
	trace := ata[0][0] + ata[1][1] + ata[2][2] + ata[3][3]
	ridge := 1e-9*trace/4 + 1e-12

	sym := mat.NewSymDense(4, nil)
	for r := 0; r < 4; r++ {
		for c := r; c < 4; c++ {
			v := ata[r][c]
			if r == c {
				v += ridge
			}
			sym.SetSym(r, c, v)
		}
	}
	rhs := mat.NewDense(4, 3, nil)
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			rhs.Set(r, c, aty[r][c])
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return fmt.Errorf("affine term: %w", ErrSingular)
	}
	var coef mat.Dense
	if err := chol.SolveTo(&coef, rhs); err != nil {
		return fmt.Errorf("affine term: %w", err)
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			m.affine[r][c] = coef.At(r, c)
		}
	}
	return nil
}

// kernelMatrix returns the dense n×n kernel matrix of one layer.
func (m *Model) kernelMatrix(xs [][3]float64, radius float64) []float64 {
	n := len(xs)
	k := make([]float64, n*n)
	r2 := radius * radius
	for i := range xs {
		row := k[i*n : (i+1)*n]
		within(m.tree, xs[i], support*support*r2, func(j int, d2 float64) {
			row[j] = math.Exp(-d2 / r2)
		})
	}
	return k
}

// solveLayer solves (K + (smoothing+jitter)·I)·W = R, growing the jitter
// until the Cholesky factorisation succeeds.
func solveLayer(k []float64, n int, smoothing float64, residual [][3]float64) ([][3]float64, float64, error) {
	rhs := mat.NewDense(n, 3, nil)
	for i := range residual {
		rhs.SetRow(i, residual[i][:])
	}

	for _, jitter := range jitters {
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := k[i*n+j]
				if i == j {
					v += smoothing + jitter
				}
				sym.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(sym) {
			continue
		}
		var w mat.Dense
		if err := chol.SolveTo(&w, rhs); err != nil {
			continue
		}
		res := make([][3]float64, n)
		ok := true
		for i := range res {
			for c := 0; c < 3; c++ {
				res[i][c] = w.At(i, c)
			}
			ok = ok && finite(res[i])
		}
		if ok {
			return res, jitter, nil
		}
	}
	return nil, 0, ErrSingular
}

func (m *Model) evalAffine(p [3]float64) [3]float64 {
	var res [3]float64
	for c := 0; c < 3; c++ {
		res[c] = m.affine[0][c]*p[0] + m.affine[1][c]*p[1] + m.affine[2][c]*p[2] + m.affine[3][c]
	}
	return res
}

// Eval evaluates the model at a single point.
func (m *Model) Eval(p [3]float64) [3]float64 {
	res := m.evalAffine(p)
	for _, l := range m.layers {
		r2 := l.radius * l.radius
		within(m.tree, p, support*support*r2, func(j int, d2 float64) {
			phi := math.Exp(-d2 / r2)
			for c := 0; c < 3; c++ {
				res[c] += phi * l.weights[j][c]
			}
		})
	}
	return res
}

// EvalGrid evaluates the model on the outer product of three axes. The
// result holds 3 values per grid point in flat order: x varies fastest, then
// y, then z.
func (m *Model) EvalGrid(ctx context.Context, x, y, z []float64) ([]float64, error) {
	nx, ny := len(x), len(y)
	res := make([]float64, 3*nx*ny*len(z))

	var next int32 = -1
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < m.workers; w++ {
		g.Go(func() error {
			for {
				k := int(atomic.AddInt32(&next, 1))
				if k >= len(z) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				slice := res[3*nx*ny*k : 3*nx*ny*(k+1)]
				for j := range y {
					for i := range x {
						v := m.Eval([3]float64{x[i], y[j], z[k]})
						copy(slice[3*(i+nx*j):], v[:])
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func finite(v [3]float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func rms(v [][3]float64) float64 {
	var sum float64
	for _, r := range v {
		sum += r[0]*r[0] + r[1]*r[1] + r[2]*r[2]
	}
	return math.Sqrt(sum / float64(3*len(v)))
}
