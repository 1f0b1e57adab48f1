package tracking

import (
	"fmt"

	"github.com/golang/geo/r3"

	"dwitract/pkg/streamline"
)

// DefaultStepSizeMm is the default propagation step in mm.
const DefaultStepSizeMm = 0.5

// DefaultMaxSteps bounds the number of steps taken in each hemisphere of a
// track. The source protocol leaves this to the tracker, so it is a
// configuration default here rather than a contract value.
const DefaultMaxSteps = 500

// LocalTracker integrates streamlines from seed points with a fixed step
// size, walking both hemispheres of each seed until the stopping criterion,
// the direction provider, or the step bound ends the walk.
type LocalTracker struct {
	directions DirectionGetter
	stopping   StoppingCriterion

	// StepSizeMm is the distance between consecutive streamline points.
	StepSizeMm float64

	// MaxSteps bounds the steps per hemisphere.
	MaxSteps int
}

// NewLocalTracker builds a tracker with the given collaborators and
// parameters. Non-positive parameters are rejected.
func NewLocalTracker(directions DirectionGetter, stopping StoppingCriterion, stepSizeMm float64, maxSteps int) (*LocalTracker, error) {
	if directions == nil || stopping == nil {
		return nil, fmt.Errorf("tracker requires a direction getter and a stopping criterion")
	}
	if stepSizeMm <= 0 {
		return nil, fmt.Errorf("step size must be positive, got %g mm", stepSizeMm)
	}
	if maxSteps < 1 {
		return nil, fmt.Errorf("max steps must be at least 1, got %d", maxSteps)
	}

	return &LocalTracker{
		directions: directions,
		stopping:   stopping,
		StepSizeMm: stepSizeMm,
		MaxSteps:   maxSteps,
	}, nil
}

// Track propagates a single streamline from a seed. The seed point appears
// exactly once, in the middle of the returned sequence; the two hemispheres
// are walked along the initial direction and its flip. A seed at which
// tracking terminates immediately returns only the seed point.
func (t *LocalTracker) Track(seedPoint r3.Vector) streamline.Streamline {
	if !t.stopping.Check(seedPoint) {
		return nil
	}

	initial, ok := t.directions.InitialDirection(seedPoint)
	if !ok {
		return streamline.Streamline{seedPoint}
	}

	forward := t.walk(seedPoint, initial)
	backward := t.walk(seedPoint, initial.Mul(-1))

	// Reverse the backward hemisphere so the track reads end to end
	track := make(streamline.Streamline, 0, len(backward)+1+len(forward))
	for i := len(backward) - 1; i >= 0; i-- {
		track = append(track, backward[i])
	}
	track = append(track, seedPoint)
	track = append(track, forward...)

	return track
}

// TrackAll propagates every seed and drops the ones that terminated
// immediately.
func (t *LocalTracker) TrackAll(seeds []r3.Vector) []streamline.Streamline {
	out := make([]streamline.Streamline, 0, len(seeds))
	for _, s := range seeds {
		track := t.Track(s)
		if len(track) <= 1 {
			continue
		}
		out = append(out, track)
	}
	return out
}

// walk integrates one hemisphere, returning the points after the seed in
// step order.
func (t *LocalTracker) walk(start, dir r3.Vector) []r3.Vector {
	points := make([]r3.Vector, 0, 16)
	pos := start

	for step := 0; step < t.MaxSteps; step++ {
		next := pos.Add(dir.Mul(t.StepSizeMm))
		if !t.stopping.Check(next) {
			break
		}

		points = append(points, next)
		pos = next

		nextDir, ok := t.directions.Next(pos, dir)
		if !ok {
			break
		}
		dir = nextDir
	}

	return points
}
