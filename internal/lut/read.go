package lut

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sdfit/internal/config"
	"sdfit/internal/grid"
)

// FormatError reports a malformed LUT file.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed LUT, line %d: %s", e.Line, e.Msg)
	}
	return "malformed LUT: " + e.Msg
}

// ReadFile reads a LUT from disk.
func ReadFile(path string, format config.Format) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, err
	}
	defer f.Close()

	buf, err := Decode(f, format)
	if err != nil {
		return Buffer{}, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// Decode parses a LUT in the given format.
func Decode(r io.Reader, format config.Format) (Buffer, error) {
	switch format {
	case config.Cube:
		return decodeCube(r)
	case config.SPI3D:
		return decodeSPI(r)
	}
	return Buffer{}, fmt.Errorf("lut: unknown format %v", format)
}

func parseFloats(fields []string, line int) ([]float64, error) {
	res := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &FormatError{Line: line, Msg: fmt.Sprintf("bad number %q", s)}
		}
		res[i] = v
	}
	return res, nil
}

func parseSize(s string, line int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &FormatError{Line: line, Msg: fmt.Sprintf("bad size %q", s)}
	}
	if err := grid.CheckSize(n); err != nil {
		return 0, &FormatError{Line: line, Msg: err.Error()}
	}
	return n, nil
}

func decodeCube(r io.Reader) (Buffer, error) {
	var buf Buffer
	count := 0
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "TITLE":
			continue
		case "DOMAIN_MIN", "DOMAIN_MAX":
			want := 0.0
			if fields[0] == "DOMAIN_MAX" {
				want = 1
			}
			v, err := parseFloats(fields[1:], line)
			if err != nil {
				return Buffer{}, err
			}
			if len(v) != 3 || v[0] != want || v[1] != want || v[2] != want {
				return Buffer{}, &FormatError{Line: line, Msg: "only the unit domain is supported"}
			}
			continue
		case "LUT_1D_SIZE":
			return Buffer{}, &FormatError{Line: line, Msg: "1D LUTs are not supported"}
		case "LUT_3D_SIZE":
			if buf.Size != 0 {
				return Buffer{}, &FormatError{Line: line, Msg: "repeated LUT_3D_SIZE"}
			}
			if len(fields) != 2 {
				return Buffer{}, &FormatError{Line: line, Msg: "LUT_3D_SIZE takes one value"}
			}
			n, err := parseSize(fields[1], line)
			if err != nil {
				return Buffer{}, err
			}
			buf = New(n)
			continue
		}

		if buf.Size == 0 {
			return Buffer{}, &FormatError{Line: line, Msg: "entry before LUT_3D_SIZE"}
		}
		if len(fields) != 3 {
			return Buffer{}, &FormatError{Line: line, Msg: fmt.Sprintf("expected 3 values, got %d", len(fields))}
		}
		if count == buf.Len() {
			return Buffer{}, &FormatError{Line: line, Msg: "too many entries"}
		}
		v, err := parseFloats(fields, line)
		if err != nil {
			return Buffer{}, err
		}
		buf.Set(count, [3]float64{v[0], v[1], v[2]})
		count++
	}
	if err := sc.Err(); err != nil {
		return Buffer{}, err
	}
	if buf.Size == 0 {
		return Buffer{}, &FormatError{Msg: "missing LUT_3D_SIZE"}
	}
	if count != buf.Len() {
		return Buffer{}, &FormatError{Msg: fmt.Sprintf("expected %d entries, got %d", buf.Len(), count)}
	}
	return buf, nil
}

func decodeSPI(r io.Reader) (Buffer, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			if fields := strings.Fields(sc.Text()); len(fields) > 0 {
				return fields, true
			}
		}
		return nil, false
	}

	if h, ok := next(); !ok || len(h) != 2 || h[0] != "SPILUT" {
		return Buffer{}, &FormatError{Line: line, Msg: "missing SPILUT header"}
	}
	if h, ok := next(); !ok || len(h) != 2 || h[0] != "3" || h[1] != "3" {
		return Buffer{}, &FormatError{Line: line, Msg: "expected a 3D to 3D table"}
	}
	h, ok := next()
	if !ok || len(h) != 3 {
		return Buffer{}, &FormatError{Line: line, Msg: "missing table size"}
	}
	n, err := parseSize(h[0], line)
	if err != nil {
		return Buffer{}, err
	}
	if h[1] != h[0] || h[2] != h[0] {
		return Buffer{}, &FormatError{Line: line, Msg: "only cubic tables are supported"}
	}

	buf := New(n)
	seen := make([]bool, buf.Len())
	count := 0
	for {
		fields, ok := next()
		if !ok {
			break
		}
		if len(fields) != 6 {
			return Buffer{}, &FormatError{Line: line, Msg: fmt.Sprintf("expected 6 values, got %d", len(fields))}
		}
		var c [3]int
		for d := 0; d < 3; d++ {
			c[d], err = strconv.Atoi(fields[d])
			if err != nil || c[d] < 0 || c[d] >= n {
				return Buffer{}, &FormatError{Line: line, Msg: fmt.Sprintf("bad coordinate %q", fields[d])}
			}
		}
		v, err := parseFloats(fields[3:], line)
		if err != nil {
			return Buffer{}, err
		}
		f := grid.FlatIndex(c[0], c[1], c[2], n)
		if seen[f] {
			return Buffer{}, &FormatError{Line: line, Msg: fmt.Sprintf("duplicate entry %d %d %d", c[0], c[1], c[2])}
		}
		seen[f] = true
		buf.Set(f, [3]float64{v[0], v[1], v[2]})
		count++
	}
	if err := sc.Err(); err != nil {
		return Buffer{}, err
	}
	if count != buf.Len() {
		return Buffer{}, &FormatError{Msg: fmt.Sprintf("expected %d entries, got %d", buf.Len(), count)}
	}
	return buf, nil
}
