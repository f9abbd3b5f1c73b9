// Package quality measures how well a sampled LUT reproduces the
// correspondences it was fitted to.
package quality

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"sdfit/internal/dataset"
	"sdfit/internal/lut"
)

// Summary compares the LUT, interpolated at every source point, with the
// matching target. Colour differences interpret both as sRGB.
type Summary struct {
	Samples    int
	RMSError   float64
	MaxError   float64
	MeanDeltaE float64
	MaxDeltaE  float64
}

func (s Summary) String() string {
	return fmt.Sprintf("LUT RMS error: %f, LUT max error: %f, Mean ΔE2000: %.3f, Max ΔE2000: %.3f",
		s.RMSError, s.MaxError, s.MeanDeltaE, s.MaxDeltaE)
}

// Evaluate samples buf at the source columns of a correspondence table and
// compares the result with the target columns.
func Evaluate(buf lut.Buffer, table dataset.Table) Summary {
	s := Summary{Samples: table.Rows}
	if table.Rows == 0 {
		return s
	}
	var sum, sumDE float64
	for i := 0; i < table.Rows; i++ {
		row := table.Row(i)
		got := buf.Sample([3]float64{row[0], row[1], row[2]})
		want := row[dataset.Width:]
		for c := 0; c < 3; c++ {
			e := math.Abs(got[c] - want[c])
			sum += e * e
			s.MaxError = math.Max(s.MaxError, e)
		}

		de := colorful.Color{R: got[0], G: got[1], B: got[2]}.
			DistanceCIEDE2000(colorful.Color{R: want[0], G: want[1], B: want[2]})
		sumDE += de
		s.MaxDeltaE = math.Max(s.MaxDeltaE, de)
	}
	s.RMSError = math.Sqrt(sum / float64(3*table.Rows))
	s.MeanDeltaE = sumDE / float64(table.Rows)
	return s
}
