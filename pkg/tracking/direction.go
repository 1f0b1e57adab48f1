// Package tracking propagates streamlines through an orientation field. It
// defines the direction-provider and stopping-criterion contracts consumed
// by the tracker and ships the deterministic peak-following implementations;
// model fitting itself is upstream of this package, which consumes its
// precomputed outputs (a peak-orientation volume and a scalar stopping
// field).
package tracking

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"dwitract/pkg/volume"
)

// DefaultMaxAngleDeg is the default maximum turning angle per step.
const DefaultMaxAngleDeg = 30.0

// DirectionGetter supplies propagation directions. Implementations may be
// deterministic (peak lookup) or probabilistic (sampling an orientation
// distribution); only the returned unit vector matters to the tracker.
type DirectionGetter interface {
	// InitialDirection returns the direction to leave a seed in, or false
	// when no orientation exists at the position.
	InitialDirection(pos r3.Vector) (r3.Vector, bool)

	// Next returns the direction for the following step given the current
	// position and the previous step direction, or false to terminate. The
	// returned direction never turns more than the getter's angle bound
	// away from prev.
	Next(pos, prev r3.Vector) (r3.Vector, bool)
}

// PeakGetter is a deterministic DirectionGetter reading the principal fiber
// orientation from a precomputed peak-vector volume (a 4D volume whose
// first three frames hold the x, y, z peak components).
type PeakGetter struct {
	peaks    *volume.Volume
	cosLimit float64
}

// NewPeakGetter builds a peak-following getter with the given maximum
// turning angle in degrees.
func NewPeakGetter(peaks *volume.Volume, maxAngleDeg float64) (*PeakGetter, error) {
	if peaks.Nt < 3 {
		return nil, fmt.Errorf("peak volume needs at least 3 frames for vector components, got %d", peaks.Nt)
	}
	if maxAngleDeg <= 0 || maxAngleDeg > 90 {
		return nil, fmt.Errorf("maximum turning angle must be in (0, 90] degrees, got %g", maxAngleDeg)
	}

	return &PeakGetter{
		peaks:    peaks,
		cosLimit: math.Cos(maxAngleDeg * math.Pi / 180),
	}, nil
}

// InitialDirection returns the unit peak at the seed's voxel.
func (g *PeakGetter) InitialDirection(pos r3.Vector) (r3.Vector, bool) {
	return g.peakAt(pos)
}

// Next returns the peak at the current position oriented along the previous
// heading, rejecting turns sharper than the angle bound.
func (g *PeakGetter) Next(pos, prev r3.Vector) (r3.Vector, bool) {
	dir, ok := g.peakAt(pos)
	if !ok {
		return r3.Vector{}, false
	}

	// Peaks are sign-ambiguous: keep the hemisphere of the previous heading
	if dir.Dot(prev) < 0 {
		dir = dir.Mul(-1)
	}

	if dir.Dot(prev) < g.cosLimit {
		return r3.Vector{}, false
	}
	return dir, true
}

// peakAt reads the unit peak vector at the voxel nearest to a world-space
// position.
func (g *PeakGetter) peakAt(pos r3.Vector) (r3.Vector, bool) {
	x, y, z, ok := g.peaks.NearestVoxel(pos)
	if !ok {
		return r3.Vector{}, false
	}

	dir := r3.Vector{
		X: g.peaks.At(x, y, z, 0),
		Y: g.peaks.At(x, y, z, 1),
		Z: g.peaks.At(x, y, z, 2),
	}

	norm := dir.Norm()
	if norm < 1e-6 {
		return r3.Vector{}, false
	}
	return dir.Mul(1 / norm), true
}
