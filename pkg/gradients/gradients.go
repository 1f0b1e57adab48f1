// Package gradients loads and represents the diffusion gradient table of an
// acquisition: one b-value and one gradient direction per volume, read from
// FSL-style bvals/bvecs text files. Acquisitions whose b-value falls below
// the b0 threshold are baseline (non-diffusion-weighted) measurements and
// carry a zero direction.
package gradients

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// DefaultB0Threshold is the b-value in s/mm^2 below which an acquisition is
// treated as a baseline (b0) measurement.
const DefaultB0Threshold = 50.0

// Table is an immutable diffusion gradient table.
type Table struct {
	bValues     []float64
	directions  []r3.Vector
	b0Threshold float64
}

// Load reads a gradient table from FSL-style text files: bvals holds N
// whitespace-separated b-values and bvecs holds three rows of N direction
// components (x row, y row, z row). The default b0 threshold is applied.
func Load(bvalPath, bvecPath string) (*Table, error) {
	return LoadWithThreshold(bvalPath, bvecPath, DefaultB0Threshold)
}

// LoadWithThreshold is Load with an explicit b0 threshold in s/mm^2.
func LoadWithThreshold(bvalPath, bvecPath string, b0Threshold float64) (*Table, error) {
	bValues, err := readFloats(bvalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read b-values: %v", err)
	}

	bvecFields, err := readFloats(bvecPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gradient directions: %v", err)
	}

	n := len(bValues)
	if n == 0 {
		return nil, fmt.Errorf("b-value file %s is empty", bvalPath)
	}
	if len(bvecFields) != 3*n {
		return nil, fmt.Errorf("gradient direction file %s has %d values, expected %d (3 rows of %d)",
			bvecPath, len(bvecFields), 3*n, n)
	}

	directions := make([]r3.Vector, n)
	for i := 0; i < n; i++ {
		directions[i] = r3.Vector{
			X: bvecFields[i],
			Y: bvecFields[n+i],
			Z: bvecFields[2*n+i],
		}
	}

	return New(bValues, directions, b0Threshold)
}

// New builds a gradient table from parallel b-value and direction slices.
// Directions of diffusion-weighted entries are normalized to unit length; a
// zero direction paired with a supra-threshold b-value is rejected, as is a
// negative b-value.
func New(bValues []float64, directions []r3.Vector, b0Threshold float64) (*Table, error) {
	if len(bValues) != len(directions) {
		return nil, fmt.Errorf("b-value count %d does not match direction count %d",
			len(bValues), len(directions))
	}

	t := &Table{
		bValues:     make([]float64, len(bValues)),
		directions:  make([]r3.Vector, len(directions)),
		b0Threshold: b0Threshold,
	}

	for i, b := range bValues {
		if b < 0 {
			return nil, fmt.Errorf("acquisition %d has negative b-value %g", i, b)
		}
		t.bValues[i] = b

		dir := directions[i]
		norm := dir.Norm()

		if b <= b0Threshold {
			// Baseline: direction is meaningless and stored as zero
			t.directions[i] = r3.Vector{}
			continue
		}

		if norm < 1e-6 {
			return nil, fmt.Errorf("acquisition %d has b-value %g but a zero gradient direction", i, b)
		}
		t.directions[i] = dir.Mul(1 / norm)
	}

	return t, nil
}

// Len returns the number of acquisitions in the table.
func (t *Table) Len() int {
	return len(t.bValues)
}

// BValue returns the b-value of acquisition i in s/mm^2.
func (t *Table) BValue(i int) float64 {
	return t.bValues[i]
}

// BValues returns a copy of all b-values in acquisition order.
func (t *Table) BValues() []float64 {
	out := make([]float64, len(t.bValues))
	copy(out, t.bValues)
	return out
}

// Direction returns the unit gradient direction of acquisition i. Baseline
// acquisitions return the zero vector.
func (t *Table) Direction(i int) r3.Vector {
	return t.directions[i]
}

// IsB0 reports whether acquisition i is a baseline measurement.
func (t *Table) IsB0(i int) bool {
	return t.bValues[i] <= t.b0Threshold
}

// B0Count returns the number of baseline acquisitions.
func (t *Table) B0Count() int {
	count := 0
	for i := range t.bValues {
		if t.IsB0(i) {
			count++
		}
	}
	return count
}

// B0Mask returns a boolean slice marking the baseline acquisitions.
func (t *Table) B0Mask() []bool {
	out := make([]bool, len(t.bValues))
	for i := range t.bValues {
		out[i] = t.IsB0(i)
	}
	return out
}

// MaxBValue returns the largest b-value in the table.
func (t *Table) MaxBValue() float64 {
	max := 0.0
	for _, b := range t.bValues {
		max = math.Max(max, b)
	}
	return max
}

// readFloats parses every whitespace-separated number in a text file.
func readFloats(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(string(data))
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in %s: %v", f, path, err)
		}
		out = append(out, v)
	}

	return out, nil
}
