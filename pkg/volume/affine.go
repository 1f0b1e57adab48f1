package volume

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularAffine is returned when a voxel-to-world transform cannot be
// inverted.
var ErrSingularAffine = errors.New("affine transform is singular")

// Affine is an invertible 4x4 voxel-to-world transform. The zero value is
// not usable; construct one with NewAffine or Scaling.
type Affine struct {
	fwd *mat.Dense
	inv *mat.Dense
}

// NewAffine builds an affine transform from 16 row-major elements. The
// matrix must be invertible.
func NewAffine(elems [16]float64) (Affine, error) {
	fwd := mat.NewDense(4, 4, elems[:])

	inv := mat.NewDense(4, 4, nil)
	if err := inv.Inverse(fwd); err != nil {
		return Affine{}, fmt.Errorf("%w: %v", ErrSingularAffine, err)
	}

	return Affine{fwd: fwd, inv: inv}, nil
}

// Scaling builds the diagonal affine mapping voxel indices to physical
// coordinates with the given voxel sizes in mm. Each size must be non-zero.
func Scaling(sx, sy, sz float64) (Affine, error) {
	return NewAffine([16]float64{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, sz, 0,
		0, 0, 0, 1,
	})
}

// Apply maps a continuous voxel-space position to world space.
func (a Affine) Apply(p r3.Vector) r3.Vector {
	return applyMat(a.fwd, p)
}

// ApplyInverse maps a world-space position to continuous voxel space.
func (a Affine) ApplyInverse(p r3.Vector) r3.Vector {
	return applyMat(a.inv, p)
}

// Elements returns the 16 row-major elements of the forward transform.
func (a Affine) Elements() [16]float64 {
	var out [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = a.fwd.At(i, j)
		}
	}
	return out
}

// valid reports whether the affine was constructed (as opposed to being the
// zero value).
func (a Affine) valid() bool {
	return a.fwd != nil && a.inv != nil
}

func applyMat(m *mat.Dense, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}
