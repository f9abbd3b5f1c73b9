// Package fit builds a model from a correspondence table and samples it on
// the LUT grid.
//
// The two methods share nothing but their input and output shape. Each is
// an adapter implementing Strategy around the rbf or mlp package.
package fit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"sdfit/internal/config"
	"sdfit/internal/dataset"
	"sdfit/internal/grid"
	"sdfit/internal/lut"
)

// Columns is the width of a correspondence table.
const Columns = 2 * dataset.Width

// Model maps a point of the unit cube to its fitted value.
type Model interface {
	Eval(p [3]float64) [3]float64
}

// GridModel is a Model that can evaluate the outer product of three axes in
// one call. The result holds 3 values per point with x varying fastest.
type GridModel interface {
	Model
	EvalGrid(ctx context.Context, x, y, z []float64) ([]float64, error)
}

// Strategy fits a Model to the rows of a correspondence table.
type Strategy interface {
	Fit(ctx context.Context, table dataset.Table) (Model, Report, error)
}

// Report describes how well the fitted model reproduces its input.
type Report struct {
	Method   config.Method
	Samples  int
	RMSError float64
	// MaxError is only meaningful if HasMaxError is set.
	MaxError    float64
	HasMaxError bool
	Elapsed     time.Duration
}

// FitError wraps a failure of the fitting code.
type FitError struct {
	Method config.Method
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s fit failed: %v", e.Method, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// New returns the strategy selected by cfg.Method.
func New(cfg config.Config) Strategy {
	if cfg.Method == config.RBF {
		return NewRBF(cfg)
	}
	return NewMLP(cfg)
}

// BuildAndSample fits a model to table with the method of cfg and evaluates
// it on the grid of side cfg.CubeSize.
//
// The table must have exactly Columns columns; anything else is a
// programming error and panics.
func BuildAndSample(ctx context.Context, table dataset.Table, cfg config.Config) (lut.Buffer, Report, error) {
	if table.Cols != Columns {
		panic(fmt.Sprintf("fit: correspondence table has %d columns, want %d", table.Cols, Columns))
	}
	if err := grid.CheckSize(cfg.CubeSize); err != nil {
		return lut.Buffer{}, Report{}, err
	}

	start := time.Now()
	logrus.WithFields(logrus.Fields{
		"method":  cfg.Method,
		"samples": humanize.Comma(int64(table.Rows)),
	}).Info("fitting model")

	model, rep, err := New(cfg).Fit(ctx, table)
	if err != nil {
		return lut.Buffer{}, Report{}, &FitError{Method: cfg.Method, Err: err}
	}
	rep.Method = cfg.Method
	rep.Samples = table.Rows
	rep.Elapsed = time.Since(start)

	logrus.WithFields(logrus.Fields{
		"entries": humanize.Comma(int64(grid.Points(cfg.CubeSize))),
		"fit":     rep.Elapsed.Round(time.Millisecond),
	}).Info("sampling grid")

	buf, err := Sample(ctx, model, cfg.CubeSize)
	if err != nil {
		return lut.Buffer{}, Report{}, &FitError{Method: cfg.Method, Err: err}
	}
	rep.Elapsed = time.Since(start)
	return buf, rep, nil
}

// Sample evaluates model on every point of the grid of side n.
//
// A GridModel is evaluated in a single call. Other models are evaluated
// point by point in flat index order, which is considerably slower for
// large n.
func Sample(ctx context.Context, model Model, n int) (lut.Buffer, error) {
	axis := grid.Axis(n)
	buf := lut.New(n)

	if gm, ok := model.(GridModel); ok {
		values, err := gm.EvalGrid(ctx, axis, axis, axis)
		if err != nil {
			return lut.Buffer{}, err
		}
		if len(values) != len(buf.Data) {
			return lut.Buffer{}, fmt.Errorf("grid evaluation returned %d values, want %d", len(values), len(buf.Data))
		}
		buf.Data = values
	} else {
		slice := n * n
		for f := 0; f < buf.Len(); f++ {
			if f%slice == 0 {
				if err := ctx.Err(); err != nil {
					return lut.Buffer{}, err
				}
			}
			buf.Set(f, model.Eval(grid.Position(axis, f)))
		}
	}

	for i, v := range buf.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			x, y, z := grid.Coordinates(i/3, n)
			return lut.Buffer{}, fmt.Errorf("model diverged: non-finite value at grid point (%d, %d, %d)", x, y, z)
		}
	}
	return buf, nil
}
