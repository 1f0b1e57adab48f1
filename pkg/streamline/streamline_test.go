package streamline

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

// lineOfNodes builds a straight streamline with n nodes spaced step mm apart
// along x.
func lineOfNodes(n int, step float64) Streamline {
	s := make(Streamline, n)
	for i := range s {
		s[i] = r3.Vector{X: float64(i) * step}
	}
	return s
}

// TestLengthMm verifies path length for a straight line.
func TestLengthMm(t *testing.T) {
	s := lineOfNodes(11, 0.5)

	if s.NodeCount() != 11 {
		t.Errorf("NodeCount = %d, expected 11", s.NodeCount())
	}
	if math.Abs(s.LengthMm()-5.0) > 1e-9 {
		t.Errorf("LengthMm = %f, expected 5.0", s.LengthMm())
	}

	if (Streamline{}).LengthMm() != 0 {
		t.Error("empty streamline has non-zero length")
	}
}

// TestFilterByNodeCount verifies the filter keeps exactly the streamlines
// with node count strictly above the threshold, in order.
func TestFilterByNodeCount(t *testing.T) {
	in := []Streamline{
		lineOfNodes(5, 0.5),
		lineOfNodes(11, 0.5),
		lineOfNodes(10, 0.5),
		lineOfNodes(50, 0.5),
	}

	out := FilterByNodeCount(in, 10)

	if len(out) != 2 {
		t.Fatalf("expected 2 streamlines above 10 nodes, got %d", len(out))
	}
	if out[0].NodeCount() != 11 || out[1].NodeCount() != 50 {
		t.Error("filter changed ordering or kept wrong streamlines")
	}

	// A streamline with exactly the threshold count is dropped
	for _, s := range out {
		if s.NodeCount() <= 10 {
			t.Errorf("streamline with %d nodes survived threshold 10", s.NodeCount())
		}
	}
}

// TestFilterIdempotence verifies filtering twice with the same threshold is
// a no-op the second time.
func TestFilterIdempotence(t *testing.T) {
	in := []Streamline{
		lineOfNodes(5, 0.5),
		lineOfNodes(20, 0.5),
		lineOfNodes(15, 0.5),
	}

	once := FilterByNodeCount(in, 10)
	twice := FilterByNodeCount(once, 10)

	if len(once) != len(twice) {
		t.Fatalf("second filter changed count: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].NodeCount() != twice[i].NodeCount() {
			t.Errorf("second filter changed entry %d", i)
		}
	}
}

// TestSummarize verifies aggregate statistics.
func TestSummarize(t *testing.T) {
	in := []Streamline{
		lineOfNodes(10, 0.5),
		lineOfNodes(20, 0.5),
		lineOfNodes(30, 0.5),
	}

	s, err := Summarize(in)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.Count != 3 {
		t.Errorf("Count = %d, expected 3", s.Count)
	}
	if math.Abs(s.MeanNodes-20) > 1e-9 {
		t.Errorf("MeanNodes = %f, expected 20", s.MeanNodes)
	}
	if math.Abs(s.MedianNodes-20) > 1e-9 {
		t.Errorf("MedianNodes = %f, expected 20", s.MedianNodes)
	}
	if s.MinNodes != 10 || s.MaxNodes != 30 {
		t.Errorf("Min/MaxNodes = %f/%f, expected 10/30", s.MinNodes, s.MaxNodes)
	}
	// Lengths are (n-1)*0.5: 4.5, 9.5, 14.5
	if math.Abs(s.MeanLengthMm-9.5) > 1e-9 {
		t.Errorf("MeanLengthMm = %f, expected 9.5", s.MeanLengthMm)
	}
}

// TestSummarizeEmpty verifies an empty set yields a zero summary.
func TestSummarizeEmpty(t *testing.T) {
	s, err := Summarize(nil)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Count != 0 || s.MeanNodes != 0 {
		t.Errorf("empty summary is non-zero: %+v", s)
	}
}
