// Package mask derives boolean volumes from label and scalar images. Masks
// share the grid and affine of the volume they were derived from and are
// immutable once built; operations return new masks.
package mask

import (
	"fmt"
	"math"

	"dwitract/pkg/volume"
)

// smoothThreshold is the indicator level above which a smoothed voxel stays
// in the mask. It is far below the interior plateau of a normalized Gaussian
// response, so smoothing can only grow or preserve a well-posed region.
const smoothThreshold = 1e-3

// Mask is a boolean volume aligned to the grid of its parent image.
type Mask struct {
	data       []bool
	nx, ny, nz int
	aff        volume.Affine
}

// FromLabels builds a mask that is true wherever the label volume's value
// rounds to a member of the target label set. Frame 0 of the volume is used.
func FromLabels(v *volume.Volume, labels []int) *Mask {
	targets := make(map[int]bool, len(labels))
	for _, l := range labels {
		targets[l] = true
	}

	m := newMask(v.Nx, v.Ny, v.Nz, v.Affine())
	for z := 0; z < v.Nz; z++ {
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				label := int(math.Round(v.At(x, y, z, 0)))
				m.data[m.index(x, y, z)] = targets[label]
			}
		}
	}
	return m
}

// FromThreshold builds a mask that is true wherever frame 0 of the scalar
// volume meets or exceeds the threshold.
func FromThreshold(v *volume.Volume, threshold float64) *Mask {
	m := newMask(v.Nx, v.Ny, v.Nz, v.Affine())
	for z := 0; z < v.Nz; z++ {
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				m.data[m.index(x, y, z)] = v.At(x, y, z, 0) >= threshold
			}
		}
	}
	return m
}

// Smooth convolves the mask's indicator with a separable Gaussian of the
// given sigma (in voxels) and re-thresholds to boolean. The threshold sits
// below the interior plateau, so the region grows across voxel boundaries
// but never loses interior voxels. A non-positive sigma returns a copy.
func (m *Mask) Smooth(sigma float64) *Mask {
	if sigma <= 0 {
		return m.clone()
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	// Separable passes over x, y, z on float indicators
	src := make([]float64, len(m.data))
	for i, b := range m.data {
		if b {
			src[i] = 1
		}
	}

	dst := make([]float64, len(m.data))
	convolveAxis(src, dst, m.nx, m.ny, m.nz, kernel, radius, 0)
	src, dst = dst, src
	convolveAxis(src, dst, m.nx, m.ny, m.nz, kernel, radius, 1)
	src, dst = dst, src
	convolveAxis(src, dst, m.nx, m.ny, m.nz, kernel, radius, 2)

	out := newMask(m.nx, m.ny, m.nz, m.aff)
	for i, v := range dst {
		out.data[i] = v > smoothThreshold
	}
	return out
}

// And returns the voxelwise conjunction of two masks on the same grid.
func (m *Mask) And(other *Mask) (*Mask, error) {
	if err := m.sameGrid(other); err != nil {
		return nil, err
	}
	out := newMask(m.nx, m.ny, m.nz, m.aff)
	for i := range m.data {
		out.data[i] = m.data[i] && other.data[i]
	}
	return out, nil
}

// Or returns the voxelwise disjunction of two masks on the same grid.
func (m *Mask) Or(other *Mask) (*Mask, error) {
	if err := m.sameGrid(other); err != nil {
		return nil, err
	}
	out := newMask(m.nx, m.ny, m.nz, m.aff)
	for i := range m.data {
		out.data[i] = m.data[i] || other.data[i]
	}
	return out, nil
}

// Get reports the mask value at integer voxel indices; out-of-grid indices
// are false.
func (m *Mask) Get(x, y, z int) bool {
	if x < 0 || x >= m.nx || y < 0 || y >= m.ny || z < 0 || z >= m.nz {
		return false
	}
	return m.data[m.index(x, y, z)]
}

// Count returns the number of true voxels.
func (m *Mask) Count() int {
	count := 0
	for _, b := range m.data {
		if b {
			count++
		}
	}
	return count
}

// Dims returns the grid dimensions.
func (m *Mask) Dims() (int, int, int) {
	return m.nx, m.ny, m.nz
}

// Affine returns the voxel-to-world transform inherited from the parent
// volume.
func (m *Mask) Affine() volume.Affine {
	return m.aff
}

func newMask(nx, ny, nz int, aff volume.Affine) *Mask {
	return &Mask{
		data: make([]bool, nx*ny*nz),
		nx:   nx,
		ny:   ny,
		nz:   nz,
		aff:  aff,
	}
}

func (m *Mask) clone() *Mask {
	out := newMask(m.nx, m.ny, m.nz, m.aff)
	copy(out.data, m.data)
	return out
}

func (m *Mask) sameGrid(other *Mask) error {
	if m.nx != other.nx || m.ny != other.ny || m.nz != other.nz {
		return fmt.Errorf("mask grids differ: %dx%dx%d vs %dx%dx%d",
			m.nx, m.ny, m.nz, other.nx, other.ny, other.nz)
	}
	return nil
}

func (m *Mask) index(x, y, z int) int {
	return (z*m.ny+y)*m.nx + x
}

// gaussianKernel builds a normalized 1D Gaussian truncated at three sigma.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)

	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveAxis applies a 1D kernel along one axis (0=x, 1=y, 2=z) with zero
// boundary handling.
func convolveAxis(src, dst []float64, nx, ny, nz int, kernel []float64, radius, axis int) {
	idx := func(x, y, z int) int { return (z*ny+y)*nx + x }

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				acc := 0.0
				for k, w := range kernel {
					o := k - radius
					xx, yy, zz := x, y, z
					switch axis {
					case 0:
						xx += o
					case 1:
						yy += o
					case 2:
						zz += o
					}
					if xx < 0 || xx >= nx || yy < 0 || yy >= ny || zz < 0 || zz >= nz {
						continue
					}
					acc += w * src[idx(xx, yy, zz)]
				}
				dst[idx(x, y, z)] = acc
			}
		}
	}
}
