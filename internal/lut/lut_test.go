package lut

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sdfit/internal/config"
	"sdfit/internal/grid"
)

// ramp returns a table whose entry f holds (f, f/10, -f).
func ramp(n int) Buffer {
	buf := New(n)
	for f := 0; f < buf.Len(); f++ {
		buf.Set(f, [3]float64{float64(f), float64(f) / 10, -float64(f)})
	}
	return buf
}

// identity returns the table of the identity mapping.
func identity(n int) Buffer {
	buf := New(n)
	axis := grid.Axis(n)
	for f := 0; f < buf.Len(); f++ {
		buf.Set(f, grid.Position(axis, f))
	}
	return buf
}

func TestEncodeCube(t *testing.T) {
	var out bytes.Buffer
	if err := Encode(&out, ramp(2), config.Cube, 3); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("Expected 9 lines, got %d", len(lines))
	}
	want := []string{
		"LUT_3D_SIZE 2",
		"0.000 0.000 -0.000",
		"1.000 0.100 -1.000",
		"2.000 0.200 -2.000",
		"3.000 0.300 -3.000",
		"4.000 0.400 -4.000",
		"5.000 0.500 -5.000",
		"6.000 0.600 -6.000",
		"7.000 0.700 -7.000",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("cube output mismatch (-want +got):\n%s", diff)
	}
	for _, l := range lines[1:] {
		if len(strings.Fields(l)) != 3 {
			t.Errorf("Expected 3 fields in %q", l)
		}
	}
}

func TestEncodeSPI(t *testing.T) {
	var out bytes.Buffer
	if err := Encode(&out, ramp(2), config.SPI3D, 2); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if diff := cmp.Diff([]string{"SPILUT 1.0", "3 3", "2 2 2"}, lines[:3]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	data := lines[3:]
	if len(data) != 8 {
		t.Fatalf("Expected 8 data lines, got %d", len(data))
	}
	for f, l := range data {
		x, y, z := grid.Coordinates(f, 2)
		fields := strings.Fields(l)
		if len(fields) != 6 {
			t.Fatalf("Expected 6 fields in %q", l)
		}
		got := strings.Join(fields[:3], " ")
		if want := strings.Join([]string{itoa(x), itoa(y), itoa(z)}, " "); got != want {
			t.Errorf("line %d: expected coordinates %s, got %s", f, want, got)
		}
	}
	for f, want := range map[int]string{
		0: "0 0 0 0.00 0.00 -0.00",
		1: "1 0 0 1.00 0.10 -1.00",
		2: "0 1 0 2.00 0.20 -2.00",
		4: "0 0 1 4.00 0.40 -4.00",
	} {
		if data[f] != want {
			t.Errorf("line %d: expected %q, got %q", f, want, data[f])
		}
	}
}

func itoa(i int) string {
	return string(rune('0' + i))
}

func TestPrecision(t *testing.T) {
	buf := New(2)
	buf.Set(0, [3]float64{0.123456789, 1.0 / 3, 0.7})
	for _, test := range []struct {
		precision int
		want      string
	}{
		{0, "0 0 1"},
		{1, "0.1 0.3 0.7"},
		{4, "0.1235 0.3333 0.7000"},
		{8, "0.12345679 0.33333333 0.70000000"},
	} {
		var out bytes.Buffer
		if err := Encode(&out, buf, config.Cube, test.precision); err != nil {
			t.Fatal(err)
		}
		got := strings.Split(out.String(), "\n")[1]
		if got != test.want {
			t.Errorf("precision %d: expected %q, got %q", test.precision, test.want, got)
		}
	}
}

func TestEncodeRejectsBadBuffer(t *testing.T) {
	var g *grid.DegenerateGridError
	if err := Encode(&bytes.Buffer{}, Buffer{Size: 1, Data: make([]float64, 3)}, config.Cube, 4); !errors.As(err, &g) {
		t.Errorf("Expected DegenerateGridError, got %v", err)
	}
	if err := Encode(&bytes.Buffer{}, Buffer{Size: 2, Data: make([]float64, 9)}, config.Cube, 4); err == nil {
		t.Error("Expected error for short buffer")
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Format = config.SPI3D
	cfg.Precision = 4
	cfg.Output = filepath.Join(dir, "table.spi3d")

	path, err := Write(ramp(3), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if path != cfg.Output {
		t.Errorf("Expected path %q, got %q", cfg.Output, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var want bytes.Buffer
	if err := Encode(&want, ramp(3), config.SPI3D, 4); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want.Bytes()) {
		t.Error("Expected the file to hold the encoded table")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the LUT in the output directory, got %d entries", len(entries))
	}
}

func TestWriteDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	for _, f := range []config.Format{config.Cube, config.SPI3D} {
		cfg := config.Default()
		cfg.Format = f
		path, err := Write(identity(2), cfg)
		if err != nil {
			t.Fatal(err)
		}
		if path != f.DefaultOutput() {
			t.Errorf("Expected default output %q, got %q", f.DefaultOutput(), path)
		}
		if _, err := os.Stat(filepath.Join(dir, path)); err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
		}
	}
}

func TestWriteError(t *testing.T) {
	cfg := config.Default()
	cfg.Output = filepath.Join(t.TempDir(), "missing", "out.cube")
	_, err := Write(identity(2), cfg)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
	if we.Path != cfg.Output {
		t.Errorf("Expected path %q, got %q", cfg.Output, we.Path)
	}
}

// leftovers returns the names in dir other than keep.
func leftovers(t *testing.T, dir, keep string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		if e.Name() != keep {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestWriteFailsMidway(t *testing.T) {
	defer func(f func(io.Writer, Buffer, config.Format, int) error) { encode = f }(encode)
	broken := errors.New("device full")
	encode = func(w io.Writer, buf Buffer, format config.Format, precision int) error {
		var full bytes.Buffer
		if err := Encode(&full, buf, format, precision); err != nil {
			return err
		}
		w.Write(full.Bytes()[:full.Len()/2])
		return broken
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output = filepath.Join(dir, "out.cube")
	_, err := Write(ramp(3), cfg)
	var we *WriteError
	if !errors.As(err, &we) || !errors.Is(err, broken) {
		t.Fatalf("Expected WriteError wrapping the encode error, got %v", err)
	}
	if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
		t.Errorf("Expected no truncated LUT, got %v", err)
	}
	if names := leftovers(t, dir, ""); len(names) != 0 {
		t.Errorf("Expected an empty directory, got %v", names)
	}
}

func TestWriteRenameFails(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output = filepath.Join(dir, "out.cube")
	if err := os.Mkdir(cfg.Output, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Write(identity(2), cfg)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
	if names := leftovers(t, dir, "out.cube"); len(names) != 0 {
		t.Errorf("Expected no temporary files, got %v", names)
	}
	if fi, err := os.Stat(cfg.Output); err != nil || !fi.IsDir() {
		t.Errorf("Expected the directory to be untouched, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []config.Format{config.Cube, config.SPI3D} {
		var out bytes.Buffer
		want := ramp(4)
		if err := Encode(&out, want, f, 6); err != nil {
			t.Fatal(err)
		}
		got, err := Decode(&out, f)
		if err != nil {
			t.Fatalf("%v: %v", f, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%v round trip (-want +got):\n%s", f, diff)
		}
	}
}

func TestDecodeCube(t *testing.T) {
	src := `# generated
TITLE "test"
DOMAIN_MIN 0.0 0.0 0.0
DOMAIN_MAX 1.0 1.0 1.0
LUT_3D_SIZE 2

0 0 0
1 0 0
0 1 0
1 1 0
0 0 1
1 0 1
0 1 1
1 1 1
`
	got, err := Decode(strings.NewReader(src), config.Cube)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(identity(2), got); diff != "" {
		t.Errorf("decoded table mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSPIOutOfOrder(t *testing.T) {
	src := "SPILUT 1.0\n3 3\n2 2 2\n" +
		"1 1 1 1 1 1\n0 0 0 0 0 0\n0 1 0 0 1 0\n1 0 0 1 0 0\n" +
		"0 0 1 0 0 1\n1 1 0 1 1 0\n0 1 1 0 1 1\n1 0 1 1 0 1\n"
	got, err := Decode(strings.NewReader(src), config.SPI3D)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(identity(2), got); diff != "" {
		t.Errorf("decoded table mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, test := range []struct {
		name   string
		format config.Format
		src    string
	}{
		{"no size", config.Cube, "0 0 0\n"},
		{"short", config.Cube, "LUT_3D_SIZE 2\n0 0 0\n"},
		{"1d", config.Cube, "LUT_1D_SIZE 4\n"},
		{"domain", config.Cube, "DOMAIN_MAX 2 2 2\nLUT_3D_SIZE 2\n"},
		{"fields", config.Cube, "LUT_3D_SIZE 2\n0 0\n"},
		{"number", config.Cube, "LUT_3D_SIZE 2\n0 0 x\n"},
		{"degenerate", config.Cube, "LUT_3D_SIZE 1\n0 0 0\n"},
		{"oversized", config.Cube, "LUT_3D_SIZE 3000000\n0 0 0\n"},
		{"overflow", config.Cube, "LUT_3D_SIZE 9223372036854775807\n0 0 0\n"},
		{"header", config.SPI3D, "LUT 1.0\n3 3\n2 2 2\n"},
		{"dims", config.SPI3D, "SPILUT 1.0\n1 3\n2 2 2\n"},
		{"oversized spi", config.SPI3D, "SPILUT 1.0\n3 3\n3000000 3000000 3000000\n"},
		{"not cubic", config.SPI3D, "SPILUT 1.0\n3 3\n2 2 3\n"},
		{"coordinate", config.SPI3D, "SPILUT 1.0\n3 3\n2 2 2\n2 0 0 0 0 0\n"},
		{"duplicate", config.SPI3D, "SPILUT 1.0\n3 3\n2 2 2\n0 0 0 0 0 0\n0 0 0 0 0 0\n"},
		{"missing", config.SPI3D, "SPILUT 1.0\n3 3\n2 2 2\n0 0 0 0 0 0\n"},
	} {
		_, err := Decode(strings.NewReader(test.src), test.format)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%s: Expected FormatError, got %v", test.name, err)
		}
	}
}

func TestSample(t *testing.T) {
	id := identity(5)
	for _, p := range [][3]float64{{0, 0, 0}, {1, 1, 1}, {0.3, 0.6, 0.9}, {0.125, 0.5, 1}} {
		got := id.Sample(p)
		for c := 0; c < 3; c++ {
			if math.Abs(got[c]-p[c]) > 1e-12 {
				t.Errorf("Sample(%v) = %v", p, got)
				break
			}
		}
	}
	if got := id.Sample([3]float64{-1, 2, 0.5}); got != [3]float64{0, 1, 0.5} {
		t.Errorf("Expected clamped sample, got %v", got)
	}

	r := ramp(2)
	if got, want := r.Sample([3]float64{0.5, 0.5, 0.5}), [3]float64{3.5, 0.35, -3.5}; math.Abs(got[0]-want[0]) > 1e-12 || math.Abs(got[1]-want[1]) > 1e-12 {
		t.Errorf("Expected centre sample %v, got %v", want, got)
	}
}
