package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OptionError is returned for an option value that cannot be used.
type OptionError struct {
	Option string
	Value  string
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Option, e.Reason)
}

// Method selects the fitting strategy.
type Method int

const (
	// MLP is a feed-forward network regression.
	MLP Method = iota
	// RBF is a hierarchical radial basis interpolation.
	RBF
)

func (m Method) String() string {
	switch m {
	case MLP:
		return "mlp"
	case RBF:
		return "rbf"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts "mlp" and "rbf".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "mlp":
		return MLP, nil
	case "rbf":
		return RBF, nil
	}
	return 0, &OptionError{Option: "method", Value: s, Reason: "use one of [mlp | rbf]"}
}

func (m *Method) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseMethod(value.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Format selects the LUT file format.
type Format int

const (
	// Cube is the coordinate-implicit Resolve .cube format.
	Cube Format = iota
	// SPI3D is the coordinate-explicit Sony .spi3d format.
	SPI3D
)

func (f Format) String() string {
	switch f {
	case Cube:
		return "cube"
	case SPI3D:
		return "spi"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DefaultOutput is the file name used when no output path is given.
func (f Format) DefaultOutput() string {
	if f == SPI3D {
		return "output.spi3d"
	}
	return "output.cube"
}

// ParseFormat accepts "cube" and "spi".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "cube":
		return Cube, nil
	case "spi", "spi3d":
		return SPI3D, nil
	}
	return 0, &OptionError{Option: "format", Value: s, Reason: "use one of [cube | spi]"}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".cube"):
		return Cube, true
	case strings.HasSuffix(strings.ToLower(path), ".spi3d"):
		return SPI3D, true
	}
	return 0, false
}

func (f *Format) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseFormat(value.Value)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Delimiter is the field separator of dataset files.
type Delimiter rune

// ParseDelimiter accepts a space, comma, semicolon or tab, either literally
// or by name.
func ParseDelimiter(s string) (Delimiter, error) {
	switch s {
	case " ", "space":
		return ' ', nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	}
	return 0, &OptionError{Option: "delimiter", Value: s, Reason: "use one of [' ' | ',' | ';' | <tab>]; it may need to be in quotes"}
}

func (d Delimiter) String() string {
	if d == '\t' {
		return "tab"
	}
	return string(d)
}

func (d *Delimiter) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseDelimiter(value.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
