// Package volume represents volumetric neuroimaging data: a 3D or 4D
// intensity grid together with an invertible affine transform mapping voxel
// indices to physical (mm) coordinates. Volumes are loaded once and treated
// as immutable for the rest of a run.
package volume

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"dwitract/internal/niftiio"
)

// Volume is a 3D or 4D intensity grid with voxel geometry. Data is stored
// flat in row-major order with x fastest, then y, z, and t slowest.
type Volume struct {
	data []float64

	// Nx, Ny, Nz, Nt are the grid dimensions; Nt is 1 for 3D volumes.
	Nx, Ny, Nz, Nt int

	// VoxelSize holds the physical voxel extents in mm.
	VoxelSize [3]float64

	affine Affine
}

// New creates a zero-filled volume with the given dimensions, voxel sizes
// and voxel-to-world affine.
func New(nx, ny, nz, nt int, voxelSize [3]float64, aff Affine) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 || nt <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %dx%dx%dx%d", nx, ny, nz, nt)
	}
	if !aff.valid() {
		return nil, fmt.Errorf("volume requires a constructed affine transform")
	}

	return &Volume{
		data:      make([]float64, nx*ny*nz*nt),
		Nx:        nx,
		Ny:        ny,
		Nz:        nz,
		Nt:        nt,
		VoxelSize: voxelSize,
		affine:    aff,
	}, nil
}

// LoadNIfTI reads a .nii or .nii.gz volume. The voxel-to-world affine
// defaults to the voxel-size scaling from the file header; callers that know
// the full orientation can replace it with SetAffine before handing the
// volume to downstream stages.
func LoadNIfTI(path string) (*Volume, error) {
	img, err := niftiio.LoadImage(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse NIfTI file %s: %v", path, err)
	}

	hdr, err := niftiio.LoadHeader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse NIfTI header %s: %v", path, err)
	}

	dims := img.GetDims()
	nx, ny, nz, nt := dims[0], dims[1], dims[2], dims[3]
	if nt < 1 {
		nt = 1
	}

	voxelSize := [3]float64{
		float64(hdr.Pixdim[1]),
		float64(hdr.Pixdim[2]),
		float64(hdr.Pixdim[3]),
	}
	for i, s := range voxelSize {
		if s == 0 {
			return nil, fmt.Errorf("NIfTI file %s has zero voxel size on axis %d", path, i)
		}
	}

	aff, err := Scaling(voxelSize[0], voxelSize[1], voxelSize[2])
	if err != nil {
		return nil, fmt.Errorf("failed to build affine for %s: %v", path, err)
	}

	v, err := New(nx, ny, nz, nt, voxelSize, aff)
	if err != nil {
		return nil, fmt.Errorf("invalid NIfTI geometry in %s: %v", path, err)
	}

	for t := 0; t < nt; t++ {
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					v.Set(x, y, z, t, float64(img.GetAt(x, y, z, t)))
				}
			}
		}
	}

	return v, nil
}

// SetAffine replaces the voxel-to-world transform, typically with a full
// orientation read from study metadata.
func (v *Volume) SetAffine(aff Affine) error {
	if !aff.valid() {
		return fmt.Errorf("affine transform is not constructed")
	}
	v.affine = aff
	return nil
}

// Affine returns the voxel-to-world transform.
func (v *Volume) Affine() Affine {
	return v.affine
}

// At returns the intensity at integer voxel indices. Indices outside the
// grid return 0.
func (v *Volume) At(x, y, z, t int) float64 {
	if x < 0 || x >= v.Nx || y < 0 || y >= v.Ny || z < 0 || z >= v.Nz || t < 0 || t >= v.Nt {
		return 0
	}
	return v.data[v.index(x, y, z, t)]
}

// Set assigns the intensity at integer voxel indices. Out-of-grid indices
// are ignored. Set is intended for volume construction; loaded volumes are
// not mutated by any pipeline stage.
func (v *Volume) Set(x, y, z, t int, value float64) {
	if x < 0 || x >= v.Nx || y < 0 || y >= v.Ny || z < 0 || z >= v.Nz || t < 0 || t >= v.Nt {
		return
	}
	v.data[v.index(x, y, z, t)] = value
}

// VoxelToWorld maps continuous voxel coordinates to physical mm coordinates.
func (v *Volume) VoxelToWorld(p r3.Vector) r3.Vector {
	return v.affine.Apply(p)
}

// WorldToVoxel maps physical mm coordinates to continuous voxel coordinates.
func (v *Volume) WorldToVoxel(p r3.Vector) r3.Vector {
	return v.affine.ApplyInverse(p)
}

// NearestVoxel maps a world-space position to the nearest integer voxel. The
// boolean result is false when the position falls outside the grid.
func (v *Volume) NearestVoxel(p r3.Vector) (int, int, int, bool) {
	vox := v.WorldToVoxel(p)
	x := int(math.Round(vox.X))
	y := int(math.Round(vox.Y))
	z := int(math.Round(vox.Z))

	if x < 0 || x >= v.Nx || y < 0 || y >= v.Ny || z < 0 || z >= v.Nz {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

// SampleTrilinear returns the trilinearly interpolated intensity of frame t
// at a world-space position. Positions outside the grid sample as 0.
func (v *Volume) SampleTrilinear(p r3.Vector, t int) float64 {
	vox := v.WorldToVoxel(p)

	x0 := int(math.Floor(vox.X))
	y0 := int(math.Floor(vox.Y))
	z0 := int(math.Floor(vox.Z))

	fx := vox.X - float64(x0)
	fy := vox.Y - float64(y0)
	fz := vox.Z - float64(z0)

	sample := 0.0
	for dz := 0; dz <= 1; dz++ {
		wz := fz
		if dz == 0 {
			wz = 1 - fz
		}
		for dy := 0; dy <= 1; dy++ {
			wy := fy
			if dy == 0 {
				wy = 1 - fy
			}
			for dx := 0; dx <= 1; dx++ {
				wx := fx
				if dx == 0 {
					wx = 1 - fx
				}
				sample += wx * wy * wz * v.At(x0+dx, y0+dy, z0+dz, t)
			}
		}
	}

	return sample
}

// MaxIntensity returns the largest intensity of frame t.
func (v *Volume) MaxIntensity(t int) float64 {
	max := math.Inf(-1)
	for z := 0; z < v.Nz; z++ {
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				max = math.Max(max, v.At(x, y, z, t))
			}
		}
	}
	return max
}

func (v *Volume) index(x, y, z, t int) int {
	return ((t*v.Nz+z)*v.Ny+y)*v.Nx + x
}
