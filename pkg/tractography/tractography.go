// Package tractography wires the full pipeline together: load a DWI study,
// derive the seed region, generate seeds, propagate streamlines through the
// precomputed peak-orientation field, filter short tracks, and write the
// bundle plus rendered stills.
package tractography

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dwitract/pkg/config"
	"dwitract/pkg/gradients"
	"dwitract/pkg/mask"
	"dwitract/pkg/render"
	"dwitract/pkg/seed"
	"dwitract/pkg/signal"
	"dwitract/pkg/streamline"
	"dwitract/pkg/tracking"
	"dwitract/pkg/trackvis"
	"dwitract/pkg/volume"
)

// Params holds the input and output locations of a run together with its
// configuration.
type Params struct {
	// DataDir is the directory holding the study files.
	DataDir string

	// PeaksFile is the 4D peak-orientation volume (x,y,z components as
	// frames), relative to DataDir.
	PeaksFile string

	// StopFile is the scalar stopping field (FA or white-matter
	// probability), relative to DataDir.
	StopFile string

	// LabelsFile is the integer label volume seeds are drawn from,
	// relative to DataDir.
	LabelsFile string

	// BvalFile and BvecFile are the gradient table text files, relative to
	// DataDir.
	BvalFile string
	BvecFile string

	// OutputDir receives the track bundle and rendered stills.
	OutputDir string

	// Config carries the tunable pipeline parameters.
	Config *config.Config
}

// Study holds the loaded, immutable inputs of a run.
type Study struct {
	// Table is the gradient table of the acquisition.
	Table *gradients.Table

	// Peaks is the 4D peak-orientation volume.
	Peaks *volume.Volume

	// Stop is the scalar stopping field.
	Stop *volume.Volume

	// Labels is the integer label volume.
	Labels *volume.Volume
}

// RunStats holds the metrics of a completed run.
type RunStats struct {
	// SeedCount is the number of generated seed points
	SeedCount int

	// RawStreamlines is the number of tracks before length filtering
	RawStreamlines int

	// KeptStreamlines is the number of tracks written to the bundle
	KeptStreamlines int

	// Lengths summarizes the kept tracks
	Lengths streamline.Summary

	// LoadSeconds and TrackSeconds are wall-clock stage timings
	LoadSeconds  float64
	TrackSeconds float64
}

// Pipeline executes the tractography run. Construct one with NewPipeline,
// optionally inject a preloaded study with SetStudy, then call Run.
type Pipeline struct {
	params *Params
	study  *Study

	tracks []streamline.Streamline
	stats  RunStats
}

// NewPipeline creates a pipeline for the given parameters.
func NewPipeline(params *Params) *Pipeline {
	return &Pipeline{params: params}
}

// SetStudy injects an already-loaded study, bypassing file loading. Run
// uses it as-is.
func (p *Pipeline) SetStudy(study *Study) {
	p.study = study
}

// Stats returns the metrics of the last completed run.
func (p *Pipeline) Stats() RunStats {
	return p.stats
}

// Streamlines returns the kept tracks of the last completed run.
func (p *Pipeline) Streamlines() []streamline.Streamline {
	return p.tracks
}

// LoadStudy reads the gradient table and all volumes named in the
// parameters, applying the configured affine override.
func (p *Pipeline) LoadStudy() error {
	cfg := p.params.Config

	table, err := gradients.LoadWithThreshold(
		filepath.Join(p.params.DataDir, p.params.BvalFile),
		filepath.Join(p.params.DataDir, p.params.BvecFile),
		cfg.Acquisition.B0Threshold)
	if err != nil {
		return fmt.Errorf("failed to load gradient table: %v", err)
	}

	peaks, err := p.loadVolume(p.params.PeaksFile)
	if err != nil {
		return fmt.Errorf("failed to load peak volume: %v", err)
	}

	stop, err := p.loadVolume(p.params.StopFile)
	if err != nil {
		return fmt.Errorf("failed to load stopping field: %v", err)
	}

	labels, err := p.loadVolume(p.params.LabelsFile)
	if err != nil {
		return fmt.Errorf("failed to load label volume: %v", err)
	}

	p.study = &Study{
		Table:  table,
		Peaks:  peaks,
		Stop:   stop,
		Labels: labels,
	}
	return nil
}

// Run executes the complete tractography pipeline.
func (p *Pipeline) Run() error {
	cfg := p.params.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	if err := os.MkdirAll(p.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	// Step 1: Load the study
	if p.study == nil {
		p.logf("Step 1: Loading study from %s...", p.params.DataDir)
		start := time.Now()
		if err := p.LoadStudy(); err != nil {
			return err
		}
		p.stats.LoadSeconds = time.Since(start).Seconds()
	} else {
		p.logf("Step 1: Using preloaded study...")
	}
	p.logf("  %d acquisitions (%d baseline)", p.study.Table.Len(), p.study.Table.B0Count())

	// Step 2: Derive the seed region from the label volume
	p.logf("Step 2: Deriving seed region from labels %v...", cfg.Seeding.Labels)
	seedMask := mask.FromLabels(p.study.Labels, cfg.Seeding.Labels)
	if cfg.Seeding.SmoothSigma > 0 {
		seedMask = seedMask.Smooth(cfg.Seeding.SmoothSigma)
	}
	if seedMask.Count() == 0 {
		return fmt.Errorf("seed region is empty for labels %v", cfg.Seeding.Labels)
	}
	p.logf("  %d seed voxels", seedMask.Count())

	// Step 3: Generate seed points
	p.logf("Step 3: Generating seeds at %v density...", cfg.Seeding.Density)
	seeds, err := seed.Generate(seedMask, cfg.Seeding.Density)
	if err != nil {
		return fmt.Errorf("failed to generate seeds: %v", err)
	}
	p.stats.SeedCount = len(seeds)
	p.logf("  %d seed points", len(seeds))

	// Step 4: Track streamlines
	p.logf("Step 4: Tracking streamlines (step %.2f mm, max angle %.0f deg)...",
		cfg.Tracking.StepSizeMm, cfg.Tracking.MaxAngleDeg)
	getter, err := tracking.NewPeakGetter(p.study.Peaks, cfg.Tracking.MaxAngleDeg)
	if err != nil {
		return fmt.Errorf("failed to build direction getter: %v", err)
	}
	criterion := tracking.NewThresholdCriterion(p.study.Stop, cfg.Tracking.StoppingThreshold)
	tracker, err := tracking.NewLocalTracker(getter, criterion, cfg.Tracking.StepSizeMm, cfg.Tracking.MaxSteps)
	if err != nil {
		return fmt.Errorf("failed to build tracker: %v", err)
	}

	start := time.Now()
	raw := tracker.TrackAll(seeds)
	p.stats.TrackSeconds = time.Since(start).Seconds()
	p.stats.RawStreamlines = len(raw)
	p.logf("  %d raw streamlines", len(raw))

	// Step 5: Filter short tracks
	p.logf("Step 5: Filtering tracks with more than %d nodes...", cfg.Tracking.MinNodes)
	p.tracks = streamline.FilterByNodeCount(raw, cfg.Tracking.MinNodes)
	p.stats.KeptStreamlines = len(p.tracks)
	p.logf("  %d streamlines kept", len(p.tracks))

	p.stats.Lengths, err = streamline.Summarize(p.tracks)
	if err != nil {
		return fmt.Errorf("failed to summarize streamlines: %v", err)
	}

	// Step 6: Write the track bundle
	trkPath := filepath.Join(p.params.OutputDir, cfg.Output.TrackFile)
	p.logf("Step 6: Writing track bundle to %s...", trkPath)
	geom := trackvis.Geometry{
		Dim:       [3]int{p.study.Stop.Nx, p.study.Stop.Ny, p.study.Stop.Nz},
		VoxelSize: p.study.Stop.VoxelSize,
		VoxToRAS:  p.study.Stop.Affine().Elements(),
	}
	if err := trackvis.Write(trkPath, p.tracks, geom); err != nil {
		return fmt.Errorf("failed to write track bundle: %v", err)
	}

	// Step 7: Render projection stills
	for _, name := range cfg.Output.ProjectionAxes {
		axis, err := render.ParseAxis(name)
		if err != nil {
			return fmt.Errorf("invalid projection axis: %v", err)
		}
		pngPath := filepath.Join(p.params.OutputDir, fmt.Sprintf("tracts_%s.png", axis))
		p.logf("Step 7: Rendering %s projection to %s...", axis, pngPath)
		if err := render.SaveProjection(pngPath, p.study.Stop, p.tracks, axis); err != nil {
			return fmt.Errorf("failed to render %s projection: %v", axis, err)
		}
	}

	// Step 8: Chart the signal decay across the acquired b-values
	if cfg.Output.DecayChart != "" {
		chartPath := filepath.Join(p.params.OutputDir, cfg.Output.DecayChart)
		p.logf("Step 8: Charting signal decay to %s...", chartPath)
		if err := p.saveDecayChart(chartPath); err != nil {
			return fmt.Errorf("failed to chart signal decay: %v", err)
		}
	}

	return nil
}

// saveDecayChart plots the Stejskal-Tanner decay over the study's b-value
// range for representative tissue diffusivities.
func (p *Pipeline) saveDecayChart(path string) error {
	maxB := p.study.Table.MaxBValue()
	if maxB <= 0 {
		maxB = 3000
	}

	bValues := make([]float64, 0, 61)
	for i := 0; i <= 60; i++ {
		bValues = append(bValues, maxB*float64(i)/60)
	}

	// CSF, gray matter, white matter (mm^2/s)
	diffusivities := []float64{0.003, 0.0009, 0.0007}

	return signal.SaveDecayChart(path, bValues, diffusivities, 1.0)
}

// loadVolume reads one NIfTI volume and applies the affine override when
// configured.
func (p *Pipeline) loadVolume(name string) (*volume.Volume, error) {
	v, err := volume.LoadNIfTI(filepath.Join(p.params.DataDir, name))
	if err != nil {
		return nil, err
	}

	if len(p.params.Config.Affine) == 16 {
		var elems [16]float64
		copy(elems[:], p.params.Config.Affine)
		aff, err := volume.NewAffine(elems)
		if err != nil {
			return nil, fmt.Errorf("invalid affine override: %v", err)
		}
		if err := v.SetAffine(aff); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// logf prints progress when verbose output is enabled.
func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.params.Config.Output.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}
