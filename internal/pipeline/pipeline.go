// Package pipeline runs a complete fit: load the datasets, fit a model,
// sample and write the LUT, then measure and optionally record the result.
package pipeline

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"sdfit/internal/config"
	"sdfit/internal/dataset"
	"sdfit/internal/fit"
	"sdfit/internal/journal"
	"sdfit/internal/lut"
	"sdfit/internal/quality"
)

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run *journal.Run) error
}

type Result struct {
	Output  string
	Fit     fit.Report
	Quality quality.Summary
	// RunID is set when the run was recorded.
	RunID   string
	Elapsed time.Duration
}

// Run executes the pipeline described by cfg. If rec is not nil the run is
// recorded after the LUT has been written; a failure to record is logged
// but does not fail the run.
func Run(ctx context.Context, cfg config.Config, rec Recorder) (Result, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	table, err := dataset.Load(cfg.SourcePath, cfg.TargetPath, rune(cfg.Delimiter))
	if err != nil {
		return Result{}, err
	}

	buf, rep, err := fit.BuildAndSample(ctx, table, cfg)
	if err != nil {
		return Result{}, err
	}

	path, err := lut.Write(buf, cfg)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Output:  path,
		Fit:     rep,
		Quality: quality.Evaluate(buf, table),
		Elapsed: time.Since(start),
	}
	logrus.WithFields(logrus.Fields{
		"lut_rms":  res.Quality.RMSError,
		"mean_de":  res.Quality.MeanDeltaE,
		"max_de":   res.Quality.MaxDeltaE,
		"duration": res.Elapsed.Round(time.Millisecond),
	}).Info("LUT written")

	if rec != nil {
		run := &journal.Run{
			Method:     cfg.Method.String(),
			Format:     cfg.Format.String(),
			CubeSize:   cfg.CubeSize,
			Samples:    table.Rows,
			FitRMS:     rep.RMSError,
			FitMax:     sql.NullFloat64{Float64: rep.MaxError, Valid: rep.HasMaxError},
			LUTRMS:     res.Quality.RMSError,
			MeanDeltaE: res.Quality.MeanDeltaE,
			MaxDeltaE:  res.Quality.MaxDeltaE,
			Output:     path,
			Elapsed:    res.Elapsed,
		}
		if err := rec.Record(ctx, run); err != nil {
			logrus.WithError(err).Warn("run not recorded")
		} else {
			res.RunID = run.ID
		}
	}
	return res, nil
}

// Check measures an existing LUT against a pair of datasets.
func Check(lutPath string, format config.Format, sourcePath, targetPath string, delimiter config.Delimiter) (quality.Summary, error) {
	buf, err := lut.ReadFile(lutPath, format)
	if err != nil {
		return quality.Summary{}, err
	}
	table, err := dataset.Load(sourcePath, targetPath, rune(delimiter))
	if err != nil {
		return quality.Summary{}, err
	}
	logrus.WithField("size", buf.Size).Debug("LUT read")
	return quality.Evaluate(buf, table), nil
}
