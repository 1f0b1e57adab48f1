package tracking

import (
	"math"

	"github.com/golang/geo/r3"

	"dwitract/pkg/mask"
	"dwitract/pkg/volume"
)

// StoppingCriterion decides whether propagation may continue at a position.
type StoppingCriterion interface {
	// Check returns true when the streamline may continue at pos.
	Check(pos r3.Vector) bool
}

// ThresholdCriterion continues while an interpolated scalar field (such as
// fractional anisotropy or a white-matter probability map) stays at or
// above a threshold.
type ThresholdCriterion struct {
	field     *volume.Volume
	threshold float64
}

// NewThresholdCriterion builds a criterion over frame 0 of the scalar
// volume.
func NewThresholdCriterion(field *volume.Volume, threshold float64) *ThresholdCriterion {
	return &ThresholdCriterion{field: field, threshold: threshold}
}

// Check reports whether the field at pos meets the threshold.
func (c *ThresholdCriterion) Check(pos r3.Vector) bool {
	return c.field.SampleTrilinear(pos, 0) >= c.threshold
}

// BinaryCriterion continues while the position stays inside a mask.
type BinaryCriterion struct {
	inside *mask.Mask
}

// NewBinaryCriterion builds a criterion from a tracking mask.
func NewBinaryCriterion(inside *mask.Mask) *BinaryCriterion {
	return &BinaryCriterion{inside: inside}
}

// Check reports whether pos falls on a true voxel of the mask.
func (c *BinaryCriterion) Check(pos r3.Vector) bool {
	vox := c.inside.Affine().ApplyInverse(pos)
	x := int(math.Round(vox.X))
	y := int(math.Round(vox.Y))
	z := int(math.Round(vox.Z))
	return c.inside.Get(x, y, z)
}
