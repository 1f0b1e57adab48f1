package tractography

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"

	"dwitract/pkg/config"
	"dwitract/pkg/gradients"
	"dwitract/pkg/volume"
)

// newSyntheticStudy builds an in-memory study with a uniform x-oriented
// peak field, a stopping field covering the grid interior, and a label
// volume with a small label-1 block in the middle.
func newSyntheticStudy(t *testing.T) *Study {
	t.Helper()

	const n = 12

	aff, err := volume.Scaling(1, 1, 1)
	if err != nil {
		t.Fatalf("Scaling failed: %v", err)
	}

	peaks, err := volume.New(n, n, n, 3, [3]float64{1, 1, 1}, aff)
	if err != nil {
		t.Fatalf("New peaks failed: %v", err)
	}
	stop, err := volume.New(n, n, n, 1, [3]float64{1, 1, 1}, aff)
	if err != nil {
		t.Fatalf("New stop failed: %v", err)
	}
	labels, err := volume.New(n, n, n, 1, [3]float64{1, 1, 1}, aff)
	if err != nil {
		t.Fatalf("New labels failed: %v", err)
	}

	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				peaks.Set(x, y, z, 0, 1)
				if x > 0 && x < n-1 && y > 0 && y < n-1 && z > 0 && z < n-1 {
					stop.Set(x, y, z, 0, 1)
				}
			}
		}
	}

	// A 2x2x2 seed block in the middle
	for z := 5; z <= 6; z++ {
		for y := 5; y <= 6; y++ {
			for x := 5; x <= 6; x++ {
				labels.Set(x, y, z, 0, 1)
			}
		}
	}

	table, err := gradients.New(
		[]float64{0, 1000, 1000, 1000},
		[]r3.Vector{{}, {X: 1}, {Y: 1}, {Z: 1}},
		gradients.DefaultB0Threshold)
	if err != nil {
		t.Fatalf("gradient table failed: %v", err)
	}

	return &Study{Table: table, Peaks: peaks, Stop: stop, Labels: labels}
}

// testConfig returns a quiet configuration suited to the synthetic grid.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seeding.Labels = []int{1}
	cfg.Seeding.Density = [3]int{1, 1, 1}
	cfg.Tracking.StoppingThreshold = 0.5
	cfg.Tracking.MinNodes = 10
	cfg.Output.Verbose = false
	return cfg
}

// TestRunSyntheticStudy verifies the full pipeline on an in-memory study:
// seeds, tracks, filtering, bundle output and rendered stills.
func TestRunSyntheticStudy(t *testing.T) {
	outDir := t.TempDir()

	p := NewPipeline(&Params{
		OutputDir: outDir,
		Config:    testConfig(),
	})
	p.SetStudy(newSyntheticStudy(t))

	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := p.Stats()
	if stats.SeedCount != 8 {
		t.Errorf("SeedCount = %d, expected 8 for a 2x2x2 block at unit density", stats.SeedCount)
	}
	if stats.RawStreamlines != 8 {
		t.Errorf("RawStreamlines = %d, expected 8", stats.RawStreamlines)
	}

	// A uniform x field across a 12-wide interior yields ~19 nodes per
	// track at 0.5mm steps, all above the 10-node threshold
	if stats.KeptStreamlines != stats.RawStreamlines {
		t.Errorf("filter dropped tracks unexpectedly: %d of %d kept",
			stats.KeptStreamlines, stats.RawStreamlines)
	}
	if stats.Lengths.MeanNodes <= 10 {
		t.Errorf("MeanNodes = %f, expected above the filter threshold", stats.Lengths.MeanNodes)
	}

	// Output files exist
	if _, err := os.Stat(filepath.Join(outDir, "tracts.trk")); err != nil {
		t.Errorf("track bundle missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "tracts_axial.png")); err != nil {
		t.Errorf("axial projection missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "signal_decay.png")); err != nil {
		t.Errorf("decay chart missing: %v", err)
	}
}

// TestRunDensityMultipliesSeeds verifies sub-voxel density scales the seed
// count.
func TestRunDensityMultipliesSeeds(t *testing.T) {
	cfg := testConfig()
	cfg.Seeding.Density = [3]int{2, 2, 2}

	p := NewPipeline(&Params{
		OutputDir: t.TempDir(),
		Config:    cfg,
	})
	p.SetStudy(newSyntheticStudy(t))

	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := p.Stats().SeedCount; got != 64 {
		t.Errorf("SeedCount = %d, expected 64 for a 2x2x2 block at 2x2x2 density", got)
	}
}

// TestRunEmptySeedRegion verifies a label set matching nothing aborts the
// run.
func TestRunEmptySeedRegion(t *testing.T) {
	cfg := testConfig()
	cfg.Seeding.Labels = []int{99}

	p := NewPipeline(&Params{
		OutputDir: t.TempDir(),
		Config:    cfg,
	})
	p.SetStudy(newSyntheticStudy(t))

	if err := p.Run(); err == nil {
		t.Error("expected error for an empty seed region")
	}
}

// TestRunFilterDropsShortTracks verifies an aggressive node threshold
// removes everything.
func TestRunFilterDropsShortTracks(t *testing.T) {
	cfg := testConfig()
	cfg.Tracking.MinNodes = 1000

	p := NewPipeline(&Params{
		OutputDir: t.TempDir(),
		Config:    cfg,
	})
	p.SetStudy(newSyntheticStudy(t))

	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := p.Stats()
	if stats.KeptStreamlines != 0 {
		t.Errorf("KeptStreamlines = %d, expected 0 with a 1000-node threshold", stats.KeptStreamlines)
	}
	if stats.RawStreamlines == 0 {
		t.Error("RawStreamlines = 0, tracking should still have produced tracks")
	}
}

// TestRunInvalidConfig verifies configuration validation guards the run.
func TestRunInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Tracking.StepSizeMm = 0

	p := NewPipeline(&Params{
		OutputDir: t.TempDir(),
		Config:    cfg,
	})
	p.SetStudy(newSyntheticStudy(t))

	if err := p.Run(); err == nil {
		t.Error("expected error for zero step size")
	}
}

// TestLoadStudyMissingFiles verifies missing inputs surface as errors.
func TestLoadStudyMissingFiles(t *testing.T) {
	p := NewPipeline(&Params{
		DataDir:    t.TempDir(),
		PeaksFile:  "peaks.nii.gz",
		StopFile:   "fa.nii.gz",
		LabelsFile: "labels.nii.gz",
		BvalFile:   "bvals",
		BvecFile:   "bvecs",
		OutputDir:  t.TempDir(),
		Config:     testConfig(),
	})

	if err := p.LoadStudy(); err == nil {
		t.Error("expected error loading a study from an empty directory")
	}
}
