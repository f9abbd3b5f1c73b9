// Package lut holds sampled 3D lookup tables and reads and writes them in
// the .cube and SPI3D text formats.
package lut

import (
	"fmt"
	"math"

	"sdfit/internal/grid"
)

// Buffer is a cube of side Size holding one 3-vector per grid point, stored
// in flat index order (see package grid).
type Buffer struct {
	Size int
	Data []float64
}

// New returns a zero filled buffer of side n.
func New(n int) Buffer {
	return Buffer{Size: n, Data: make([]float64, 3*grid.Points(n))}
}

// Len returns the number of entries.
func (b Buffer) Len() int {
	return len(b.Data) / 3
}

// At returns entry f.
func (b Buffer) At(f int) [3]float64 {
	return [3]float64{b.Data[3*f], b.Data[3*f+1], b.Data[3*f+2]}
}

// Set stores entry f.
func (b Buffer) Set(f int, v [3]float64) {
	copy(b.Data[3*f:3*f+3], v[:])
}

func (b Buffer) check() error {
	if err := grid.CheckSize(b.Size); err != nil {
		return err
	}
	if len(b.Data) != 3*grid.Points(b.Size) {
		return fmt.Errorf("lut: buffer of side %d holds %d values, want %d", b.Size, len(b.Data), 3*grid.Points(b.Size))
	}
	return nil
}

// Sample interpolates the table trilinearly at p. Coordinates outside [0,1]
// are clamped.
func (b Buffer) Sample(p [3]float64) [3]float64 {
	n := b.Size
	var lo [3]int
	var t [3]float64
	for d := 0; d < 3; d++ {
		x := math.Min(math.Max(p[d], 0), 1) * float64(n-1)
		i := int(math.Floor(x))
		if i > n-2 {
			i = n - 2
		}
		lo[d] = i
		t[d] = x - float64(i)
	}

	var res [3]float64
	for corner := 0; corner < 8; corner++ {
		w := 1.0
		var c [3]int
		for d := 0; d < 3; d++ {
			if corner&(1<<d) != 0 {
				c[d] = lo[d] + 1
				w *= t[d]
			} else {
				c[d] = lo[d]
				w *= 1 - t[d]
			}
		}
		if w == 0 {
			continue
		}
		v := b.At(grid.FlatIndex(c[0], c[1], c[2], n))
		for k := 0; k < 3; k++ {
			res[k] += w * v[k]
		}
	}
	return res
}
