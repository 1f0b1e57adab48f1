// Package render draws 2D projections of a tracking result: a grayscale
// maximum-intensity projection of a background volume with the streamlines
// overlaid as polylines colored by local orientation (|x| red, |y| green,
// |z| blue), written as PNG stills.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"

	"dwitract/pkg/streamline"
	"dwitract/pkg/volume"
)

// Axis selects the projection direction.
type Axis int

const (
	// Axial projects along z onto the xy plane.
	Axial Axis = iota
	// Coronal projects along y onto the xz plane.
	Coronal
	// Sagittal projects along x onto the yz plane.
	Sagittal
)

// String returns the anatomical name of the projection axis.
func (a Axis) String() string {
	switch a {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis maps an axis name to an Axis.
func ParseAxis(name string) (Axis, error) {
	switch name {
	case "axial", "z":
		return Axial, nil
	case "coronal", "y":
		return Coronal, nil
	case "sagittal", "x":
		return Sagittal, nil
	}
	return 0, fmt.Errorf("invalid projection axis %q (must be axial, coronal, or sagittal)", name)
}

// SaveProjection renders the streamlines over a maximum-intensity
// projection of frame 0 of the background volume and writes a PNG to path.
func SaveProjection(path string, background *volume.Volume, tracks []streamline.Streamline, axis Axis) error {
	bg, err := projectBackground(background, axis)
	if err != nil {
		return err
	}

	dc := gg.NewContextForImage(bg)
	dc.SetLineWidth(1)

	for _, track := range tracks {
		for i := 1; i < len(track); i++ {
			p0 := background.WorldToVoxel(track[i-1])
			p1 := background.WorldToVoxel(track[i])

			x0, y0 := planeCoords(p0, axis)
			x1, y1 := planeCoords(p1, axis)

			r, g, b := orientationColor(track[i].Sub(track[i-1]))
			dc.SetRGB(r, g, b)
			dc.DrawLine(x0, y0, x1, y1)
			dc.Stroke()
		}
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save projection PNG: %v", err)
	}
	return nil
}

// projectBackground builds the grayscale maximum-intensity projection of the
// volume along the axis.
func projectBackground(v *volume.Volume, axis Axis) (image.Image, error) {
	var w, h int
	switch axis {
	case Axial:
		w, h = v.Nx, v.Ny
	case Coronal:
		w, h = v.Nx, v.Nz
	case Sagittal:
		w, h = v.Ny, v.Nz
	default:
		return nil, fmt.Errorf("invalid projection axis %d", axis)
	}

	maxIntensity := v.MaxIntensity(0)
	if maxIntensity <= 0 {
		maxIntensity = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			peak := 0.0
			switch axis {
			case Axial:
				for z := 0; z < v.Nz; z++ {
					peak = math.Max(peak, v.At(px, py, z, 0))
				}
			case Coronal:
				for y := 0; y < v.Ny; y++ {
					peak = math.Max(peak, v.At(px, y, py, 0))
				}
			case Sagittal:
				for x := 0; x < v.Nx; x++ {
					peak = math.Max(peak, v.At(x, px, py, 0))
				}
			}

			gray := uint8(255 * peak / maxIntensity)
			img.Set(px, py, color.RGBA{R: gray, G: gray, B: gray, A: 255})
		}
	}

	return img, nil
}

// planeCoords maps continuous voxel coordinates onto the projection plane.
func planeCoords(p r3.Vector, axis Axis) (float64, float64) {
	switch axis {
	case Coronal:
		return p.X, p.Z
	case Sagittal:
		return p.Y, p.Z
	default:
		return p.X, p.Y
	}
}

// orientationColor maps a segment direction to the conventional RGB
// orientation encoding.
func orientationColor(dir r3.Vector) (float64, float64, float64) {
	norm := dir.Norm()
	if norm < 1e-12 {
		return 1, 1, 1
	}
	return math.Abs(dir.X) / norm, math.Abs(dir.Y) / norm, math.Abs(dir.Z) / norm
}
