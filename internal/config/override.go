package config

import (
	"sort"
	"strconv"
)

type setter func(c *Config, value string) error

// options maps every recognised option name to the field it sets.
var options = map[string]setter{
	"method": func(c *Config, v string) (err error) {
		c.Method, err = ParseMethod(v)
		return err
	},
	"output": func(c *Config, v string) error {
		c.Output = v
		return nil
	},
	"delimiter": func(c *Config, v string) (err error) {
		c.Delimiter, err = ParseDelimiter(v)
		return err
	},
	"precision": intSetter("precision", func(c *Config) *int { return &c.Precision }),
	"cube-size": intSetter("cube-size", func(c *Config) *int { return &c.CubeSize }),
	"format": func(c *Config, v string) (err error) {
		c.Format, err = ParseFormat(v)
		return err
	},
	"rbf-size":      floatSetter("rbf-size", func(c *Config) *float64 { return &c.RBFSize }),
	"rbf-layers":    intSetter("rbf-layers", func(c *Config) *int { return &c.RBFLayers }),
	"rbf-smoothing": floatSetter("rbf-smoothing", func(c *Config) *float64 { return &c.RBFSmoothing }),
	"mlp-layers":    intSetter("mlp-layers", func(c *Config) *int { return &c.MLPLayers }),
	"mlp-restarts":  intSetter("mlp-restarts", func(c *Config) *int { return &c.MLPRestarts }),
	"seed": func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &OptionError{Option: "seed", Value: v, Reason: "not an integer"}
		}
		c.Seed = n
		return nil
	},
	"workers": intSetter("workers", func(c *Config) *int { return &c.Workers }),
}

func intSetter(name string, field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &OptionError{Option: name, Value: v, Reason: "not an integer"}
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(name string, field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &OptionError{Option: name, Value: v, Reason: "not a number"}
		}
		*field(c) = x
		return nil
	}
}

// IsOption reports whether name is a recognised option.
func IsOption(name string) bool {
	_, ok := options[name]
	return ok
}

// Options returns the recognised option names in sorted order.
func Options() []string {
	res := make([]string, 0, len(options))
	for name := range options {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// With returns a copy of c with a single option overridden. c itself is not
// modified.
func (c Config) With(option, value string) (Config, error) {
	set, ok := options[option]
	if !ok {
		return c, &OptionError{Option: option, Value: value, Reason: "unknown option"}
	}
	res := c
	if err := set(&res, value); err != nil {
		return c, err
	}
	return res, nil
}
