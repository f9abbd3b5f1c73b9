// Package grid maps between flat LUT indices, integer cube coordinates and
// sample positions in [0,1].
//
// A cube of side n holds n³ entries. The flat index of the entry at (x, y, z)
// is x + n*y + n²*z, so x varies fastest. Every component that needs to go
// between the two representations calls into this package.
package grid

import "fmt"

const (
	// MinSize is the smallest cube side for which axis spacing is defined.
	MinSize = 2
	// MaxSize bounds the cube side so that 3*n³ float64 values stay
	// allocatable (384 MiB at 256).
	MaxSize = 256
)

// DegenerateGridError is returned for a cube side that cannot be sampled.
type DegenerateGridError struct {
	Size int
}

func (e *DegenerateGridError) Error() string {
	return fmt.Sprintf("cube size %d is degenerate: need at least %d samples per axis", e.Size, MinSize)
}

// OversizedGridError is returned for a cube side larger than MaxSize.
type OversizedGridError struct {
	Size int
}

func (e *OversizedGridError) Error() string {
	return fmt.Sprintf("cube size %d is too large: at most %d samples per axis", e.Size, MaxSize)
}

// CheckSize returns a *DegenerateGridError if n is smaller than MinSize and
// an *OversizedGridError if it is larger than MaxSize.
func CheckSize(n int) error {
	if n < MinSize {
		return &DegenerateGridError{Size: n}
	}
	if n > MaxSize {
		return &OversizedGridError{Size: n}
	}
	return nil
}

// Points returns the number of entries of a cube of side n.
func Points(n int) int {
	return n * n * n
}

// Coordinates returns the integer coordinates of flat index i in a cube of
// side n.
func Coordinates(i, n int) (x, y, z int) {
	return i % n, (i / n) % n, i / (n * n)
}

// FlatIndex is the inverse of Coordinates.
func FlatIndex(x, y, z, n int) int {
	return x + n*y + n*n*z
}

// Axis returns n evenly spaced positions from 0 to 1 inclusive.
// The first value is exactly 0 and the last exactly 1.
// Axis panics if n < MinSize; callers validate the size first.
func Axis(n int) []float64 {
	if n < MinSize {
		panic(fmt.Sprintf("grid: axis of size %d", n))
	}
	res := make([]float64, n)
	for i := range res {
		res[i] = float64(i) / float64(n-1)
	}
	return res
}

// Position returns the sample positions of flat index i, using axis as the
// positions along every dimension.
func Position(axis []float64, i int) [3]float64 {
	x, y, z := Coordinates(i, len(axis))
	return [3]float64{axis[x], axis[y], axis[z]}
}
