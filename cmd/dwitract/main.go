package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"

	"dwitract/pkg/config"
	"dwitract/pkg/streamline"
	"dwitract/pkg/tractography"
)

func main() {
	// Parse command line arguments
	dataDir := flag.String("data", "", "Directory containing the study files")
	configPath := flag.String("config", "dwitract.yaml", "Path to the YAML configuration file")
	outputDir := flag.String("out", "output", "Directory for the track bundle and rendered stills")
	peaksFile := flag.String("peaks", "peaks.nii.gz", "Peak-orientation volume (4D, x/y/z frames), relative to the data directory")
	stopFile := flag.String("stop", "fa.nii.gz", "Scalar stopping field volume, relative to the data directory")
	labelsFile := flag.String("labels", "labels.nii.gz", "Label volume for seeding, relative to the data directory")
	bvalFile := flag.String("bvals", "bvals", "b-value text file, relative to the data directory")
	bvecFile := flag.String("bvecs", "bvecs", "Gradient-direction text file, relative to the data directory")
	stepSize := flag.Float64("step", 0, "Override the tracking step size in mm (0: use config)")
	minNodes := flag.Int("min-nodes", -1, "Override the minimum node count filter (-1: use config)")
	stopThreshold := flag.Float64("stop-threshold", 0, "Override the stopping threshold (0: use config)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the config path and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Apply command line overrides
	if *stepSize > 0 {
		cfg.Tracking.StepSizeMm = *stepSize
	}
	if *minNodes >= 0 {
		cfg.Tracking.MinNodes = *minNodes
	}
	if *stopThreshold > 0 {
		cfg.Tracking.StoppingThreshold = *stopThreshold
	}

	fmt.Println("================================")
	fmt.Println("DWITRACT: DETERMINISTIC STREAMLINE TRACTOGRAPHY")
	fmt.Println("Peak-field tracking with Stejskal-Tanner signal tooling")
	fmt.Println("================================")

	params := &tractography.Params{
		DataDir:    *dataDir,
		PeaksFile:  *peaksFile,
		StopFile:   *stopFile,
		LabelsFile: *labelsFile,
		BvalFile:   *bvalFile,
		BvecFile:   *bvecFile,
		OutputDir:  *outputDir,
		Config:     cfg,
	}

	pipeline := tractography.NewPipeline(params)

	fmt.Println("Starting tractography pipeline...")
	startTime := time.Now()
	if err := pipeline.Run(); err != nil {
		log.Fatalf("Tractography failed: %v", err)
	}
	elapsed := time.Since(startTime)

	stats := pipeline.Stats()
	fmt.Printf("\nTractography completed successfully in %.2f seconds!\n", elapsed.Seconds())
	fmt.Printf("Output written to: %s\n\n", *outputDir)

	fmt.Printf("Run statistics:\n")
	fmt.Printf("===============\n")
	fmt.Printf("Seed points: %d\n", stats.SeedCount)
	fmt.Printf("Raw streamlines: %d\n", stats.RawStreamlines)
	fmt.Printf("Kept streamlines (> %d nodes): %d\n", cfg.Tracking.MinNodes, stats.KeptStreamlines)
	fmt.Printf("Mean track length: %.1f mm (%.1f nodes)\n", stats.Lengths.MeanLengthMm, stats.Lengths.MeanNodes)
	fmt.Printf("Node count range: %.0f - %.0f (median %.0f)\n",
		stats.Lengths.MinNodes, stats.Lengths.MaxNodes, stats.Lengths.MedianNodes)
	fmt.Printf("Load time: %.2f s, track time: %.2f s\n", stats.LoadSeconds, stats.TrackSeconds)

	// Node count histogram across the kept tracks
	counts := streamline.NodeCounts(pipeline.Streamlines())
	if len(counts) > 0 {
		fmt.Println("\nStreamline node count distribution:")
		hist := histogram.Hist(10, counts)
		if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
			log.Printf("Warning: Failed to print histogram: %v", err)
		}
	}
}
