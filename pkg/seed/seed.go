// Package seed generates tracking seed points from a boolean mask at a
// per-axis sub-voxel sampling density.
package seed

import (
	"fmt"

	"github.com/golang/geo/r3"

	"dwitract/pkg/mask"
)

// Generate produces one world-space seed per sub-voxel cell of every true
// voxel in the mask. Each voxel is subdivided density[0] x density[1] x
// density[2] times and the cell centers are mapped through the mask's
// affine. Seeds come out in raster order over the mask (z slowest, x
// fastest) with the sub-voxel subdivisions nested innermost.
func Generate(m *mask.Mask, density [3]int) ([]r3.Vector, error) {
	for axis, d := range density {
		if d < 1 {
			return nil, fmt.Errorf("seed density on axis %d must be at least 1, got %d", axis, d)
		}
	}

	nx, ny, nz := m.Dims()
	aff := m.Affine()

	seeds := make([]r3.Vector, 0, m.Count()*density[0]*density[1]*density[2])
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				if !m.Get(x, y, z) {
					continue
				}
				for sz := 0; sz < density[2]; sz++ {
					for sy := 0; sy < density[1]; sy++ {
						for sx := 0; sx < density[0]; sx++ {
							vox := r3.Vector{
								X: float64(x) + subOffset(sx, density[0]),
								Y: float64(y) + subOffset(sy, density[1]),
								Z: float64(z) + subOffset(sz, density[2]),
							}
							seeds = append(seeds, aff.Apply(vox))
						}
					}
				}
			}
		}
	}

	return seeds, nil
}

// subOffset returns the center of sub-cell i of n equal subdivisions of a
// voxel, relative to the voxel center.
func subOffset(i, n int) float64 {
	return (float64(i)+0.5)/float64(n) - 0.5
}
