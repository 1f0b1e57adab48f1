package gradients

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
)

// writeTempTable writes bvals/bvecs fixtures and returns their paths.
func writeTempTable(t *testing.T, bvals, bvecs string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	bvalPath := filepath.Join(dir, "bvals")
	if err := os.WriteFile(bvalPath, []byte(bvals), 0644); err != nil {
		t.Fatalf("failed to write bvals fixture: %v", err)
	}

	bvecPath := filepath.Join(dir, "bvecs")
	if err := os.WriteFile(bvecPath, []byte(bvecs), 0644); err != nil {
		t.Fatalf("failed to write bvecs fixture: %v", err)
	}

	return bvalPath, bvecPath
}

// TestLoadTable verifies parsing of a small FSL-style table with one baseline
// and three weighted acquisitions.
func TestLoadTable(t *testing.T) {
	bvalPath, bvecPath := writeTempTable(t,
		"0 1000 1000 2000\n",
		"0 1 0 0.7071\n0 0 1 0.7071\n0 0 0 0\n")

	table, err := Load(bvalPath, bvecPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if table.Len() != 4 {
		t.Fatalf("expected 4 acquisitions, got %d", table.Len())
	}
	if table.B0Count() != 1 {
		t.Errorf("expected 1 baseline acquisition, got %d", table.B0Count())
	}
	if !table.IsB0(0) || table.IsB0(1) {
		t.Error("baseline classification is wrong")
	}

	// The baseline carries a zero direction
	if table.Direction(0) != (r3.Vector{}) {
		t.Errorf("baseline direction = %v, expected zero vector", table.Direction(0))
	}

	// Weighted directions are unit length after loading
	for i := 1; i < table.Len(); i++ {
		norm := table.Direction(i).Norm()
		if math.Abs(norm-1) > 1e-9 {
			t.Errorf("direction %d has norm %f, expected 1", i, norm)
		}
	}

	if table.MaxBValue() != 2000 {
		t.Errorf("MaxBValue = %f, expected 2000", table.MaxBValue())
	}
}

// TestLoadTableCountMismatch verifies that a bvecs file whose column count
// disagrees with bvals is rejected.
func TestLoadTableCountMismatch(t *testing.T) {
	bvalPath, bvecPath := writeTempTable(t,
		"0 1000 1000\n",
		"0 1\n0 0\n0 0\n")

	if _, err := Load(bvalPath, bvecPath); err == nil {
		t.Error("expected error for mismatched acquisition counts")
	}
}

// TestLoadTableBadNumber verifies malformed numbers are reported.
func TestLoadTableBadNumber(t *testing.T) {
	bvalPath, bvecPath := writeTempTable(t,
		"0 oops\n",
		"0 1\n0 0\n0 0\n")

	if _, err := Load(bvalPath, bvecPath); err == nil {
		t.Error("expected error for malformed b-value")
	}
}

// TestNewRejectsZeroWeightedDirection verifies the invariant that only
// baseline acquisitions may carry a zero direction.
func TestNewRejectsZeroWeightedDirection(t *testing.T) {
	_, err := New(
		[]float64{0, 1000},
		[]r3.Vector{{}, {}},
		DefaultB0Threshold)
	if err == nil {
		t.Error("expected error for zero direction with b=1000")
	}
}

// TestNewRejectsNegativeBValue verifies negative b-values are rejected.
func TestNewRejectsNegativeBValue(t *testing.T) {
	_, err := New(
		[]float64{-5},
		[]r3.Vector{{X: 1}},
		DefaultB0Threshold)
	if err == nil {
		t.Error("expected error for negative b-value")
	}
}

// TestBValuesCopy verifies the accessor returns a copy, keeping the table
// immutable.
func TestBValuesCopy(t *testing.T) {
	table, err := New(
		[]float64{0, 1000},
		[]r3.Vector{{}, {X: 1}},
		DefaultB0Threshold)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got := table.BValues()
	got[1] = 123
	if table.BValue(1) != 1000 {
		t.Error("mutating the BValues copy changed the table")
	}
}
