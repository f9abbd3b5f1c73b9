// Package config holds the immutable run parameters of a fit.
//
// A Config is built once: Default, optionally overlaid by a YAML file
// (LoadFile), then by explicit options (With). Nothing mutates it after the
// pipeline starts.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"sdfit/internal/grid"
)

type Config struct {
	// Fitting method.
	Method Method `yaml:"method"`

	// Paths to the dataset files.
	SourcePath string `yaml:"-"`
	TargetPath string `yaml:"-"`

	// Output LUT. Empty selects a name from Format at write time.
	Output string `yaml:"output"`

	// Dataset DSV delimiter.
	Delimiter Delimiter `yaml:"delimiter"`

	// Digits after the decimal point in the LUT.
	// Lower precision results in smaller files.
	Precision int `yaml:"precision"`

	// Side N of the LUT cube (N³ entries).
	CubeSize int `yaml:"cube_size"`

	Format Format `yaml:"format"`

	// Base radius of the first RBF layer.
	RBFSize float64 `yaml:"rbf_size"`

	// Number of hierarchical RBF layers.
	RBFLayers int `yaml:"rbf_layers"`

	// Optional RBF smoothing.
	RBFSmoothing float64 `yaml:"rbf_smoothing"`

	// Width of the single hidden MLP layer.
	MLPLayers int `yaml:"mlp_layers"`

	// Random MLP restarts.
	MLPRestarts int `yaml:"mlp_restarts"`

	// Seed of the first MLP restart.
	Seed int64 `yaml:"seed"`

	// Worker goroutines used by the fitting code.
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Method:       MLP,
		Delimiter:    ' ',
		Precision:    8,
		CubeSize:     33,
		Format:       Cube,
		RBFSize:      5.0,
		RBFLayers:    5,
		RBFSmoothing: 0.0,
		MLPLayers:    5,
		MLPRestarts:  5,
		Seed:         1,
		Workers:      runtime.NumCPU(),
	}
}

// LoadFile overlays the values found in a YAML file on c.
func (c Config) LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the value ranges of every parameter.
func (c Config) Validate() error {
	if err := grid.CheckSize(c.CubeSize); err != nil {
		return err
	}
	switch {
	case c.Precision < 0:
		return &OptionError{Option: "precision", Value: fmt.Sprint(c.Precision), Reason: "must not be negative"}
	case c.RBFSize <= 0:
		return &OptionError{Option: "rbf-size", Value: fmt.Sprint(c.RBFSize), Reason: "must be positive"}
	case c.RBFLayers < 1:
		return &OptionError{Option: "rbf-layers", Value: fmt.Sprint(c.RBFLayers), Reason: "must be at least 1"}
	case c.RBFSmoothing < 0:
		return &OptionError{Option: "rbf-smoothing", Value: fmt.Sprint(c.RBFSmoothing), Reason: "must not be negative"}
	case c.MLPLayers < 1:
		return &OptionError{Option: "mlp-layers", Value: fmt.Sprint(c.MLPLayers), Reason: "must be at least 1"}
	case c.MLPRestarts < 1:
		return &OptionError{Option: "mlp-restarts", Value: fmt.Sprint(c.MLPRestarts), Reason: "must be at least 1"}
	case c.Workers < 1:
		return &OptionError{Option: "workers", Value: fmt.Sprint(c.Workers), Reason: "must be at least 1"}
	}
	return nil
}

// OutputPath returns the output path, falling back to the default file name
// of the format.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Format.DefaultOutput()
}
