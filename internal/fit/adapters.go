package fit

import (
	"context"

	"github.com/sirupsen/logrus"

	"sdfit/internal/config"
	"sdfit/internal/dataset"
	"sdfit/internal/mlp"
	"sdfit/internal/rbf"
)

// RBF fits a hierarchical radial basis function model.
type RBF struct {
	Params rbf.Params
}

func NewRBF(cfg config.Config) *RBF {
	return &RBF{Params: rbf.Params{
		Radius:    cfg.RBFSize,
		Layers:    cfg.RBFLayers,
		Smoothing: cfg.RBFSmoothing,
		Workers:   cfg.Workers,
	}}
}

func (s *RBF) Fit(ctx context.Context, table dataset.Table) (Model, Report, error) {
	m, r, err := rbf.Build(ctx, table.Triplets(0), table.Triplets(dataset.Width), s.Params)
	if err != nil {
		return nil, Report{}, err
	}
	logrus.WithField("jitter", r.Jitter).Debug("rbf model built")
	return m, Report{RMSError: r.RMSError, MaxError: r.MaxError, HasMaxError: true}, nil
}

// MLP trains a single hidden layer perceptron.
type MLP struct {
	Params mlp.Params
}

func NewMLP(cfg config.Config) *MLP {
	return &MLP{Params: mlp.Params{
		Hidden:   cfg.MLPLayers,
		Restarts: cfg.MLPRestarts,
		Seed:     cfg.Seed,
		Workers:  cfg.Workers,
	}}
}

func (s *MLP) Fit(ctx context.Context, table dataset.Table) (Model, Report, error) {
	net, r, err := mlp.Train(ctx, table.Triplets(0), table.Triplets(dataset.Width), s.Params)
	if err != nil {
		return nil, Report{}, err
	}
	logrus.WithFields(logrus.Fields{
		"restart":     r.Restart,
		"avg":         r.AvgError,
		"evaluations": r.Evaluations,
	}).Debug("mlp trained")
	return network{net}, Report{RMSError: r.RMSError}, nil
}

// network only offers point-wise evaluation.
type network struct {
	net *mlp.Network
}

func (n network) Eval(p [3]float64) [3]float64 {
	return n.net.Process(p)
}
