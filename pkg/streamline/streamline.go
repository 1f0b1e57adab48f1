// Package streamline defines the streamline data model: an ordered sequence
// of 3D points produced by tracking, measured by node count, filtered by
// length and summarized for reporting. Streamlines are never mutated after
// creation.
package streamline

import (
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
)

// Streamline is an ordered sequence of world-space points. Consecutive
// points are separated by the tracker's step size.
type Streamline []r3.Vector

// NodeCount returns the number of points on the streamline.
func (s Streamline) NodeCount() int {
	return len(s)
}

// LengthMm returns the path length in mm, summing consecutive point
// distances.
func (s Streamline) LengthMm() float64 {
	length := 0.0
	for i := 1; i < len(s); i++ {
		length += s[i].Distance(s[i-1])
	}
	return length
}

// FilterByNodeCount retains exactly the streamlines whose node count
// exceeds minNodes, preserving order. Filtering twice with the same
// threshold returns the same set.
func FilterByNodeCount(in []Streamline, minNodes int) []Streamline {
	out := make([]Streamline, 0, len(in))
	for _, s := range in {
		if s.NodeCount() > minNodes {
			out = append(out, s)
		}
	}
	return out
}

// Summary holds aggregate statistics over a set of streamlines.
type Summary struct {
	// Count is the number of streamlines
	Count int

	// MeanNodes, MedianNodes, MinNodes, MaxNodes summarize node counts
	MeanNodes   float64
	MedianNodes float64
	MinNodes    float64
	MaxNodes    float64

	// MeanLengthMm is the average path length in mm
	MeanLengthMm float64
}

// Summarize computes aggregate statistics. An empty input yields a zero
// summary.
func Summarize(in []Streamline) (Summary, error) {
	if len(in) == 0 {
		return Summary{}, nil
	}

	nodeCounts := make([]float64, len(in))
	lengths := make([]float64, len(in))
	for i, s := range in {
		nodeCounts[i] = float64(s.NodeCount())
		lengths[i] = s.LengthMm()
	}

	summary := Summary{Count: len(in)}

	var err error
	if summary.MeanNodes, err = stats.Mean(nodeCounts); err != nil {
		return Summary{}, err
	}
	if summary.MedianNodes, err = stats.Median(nodeCounts); err != nil {
		return Summary{}, err
	}
	if summary.MinNodes, err = stats.Min(nodeCounts); err != nil {
		return Summary{}, err
	}
	if summary.MaxNodes, err = stats.Max(nodeCounts); err != nil {
		return Summary{}, err
	}
	if summary.MeanLengthMm, err = stats.Mean(lengths); err != nil {
		return Summary{}, err
	}

	return summary, nil
}

// NodeCounts returns the node count of every streamline as float64, the
// form histogram and stats tooling consume.
func NodeCounts(in []Streamline) []float64 {
	out := make([]float64, len(in))
	for i, s := range in {
		out[i] = float64(s.NodeCount())
	}
	return out
}
