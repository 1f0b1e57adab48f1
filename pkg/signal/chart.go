package signal

import (
	"bytes"
	"fmt"
	"os"

	"github.com/wcharczuk/go-chart/v2"
)

// SaveDecayChart renders the Stejskal-Tanner decay curves for the given
// diffusivities across the given b-values and writes a PNG to path. One
// series is drawn per diffusivity, all starting from the same baseline
// signal s0.
func SaveDecayChart(path string, bValues, diffusivities []float64, s0 float64) error {
	if len(bValues) < 2 {
		return fmt.Errorf("need at least two b-values to chart decay, got %d", len(bValues))
	}
	if len(diffusivities) == 0 {
		return fmt.Errorf("need at least one diffusivity to chart decay")
	}

	series := make([]chart.Series, 0, len(diffusivities))
	for _, d := range diffusivities {
		yValues := make([]float64, len(bValues))
		for i, b := range bValues {
			yValues[i] = Decay(b, d, s0)
		}

		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("D=%.2e mm^2/s", d),
			XValues: bValues,
			YValues: yValues,
		})
	}

	graph := chart.Chart{
		Width:  640,
		Height: 480,
		XAxis: chart.XAxis{
			Name: "b-value (s/mm^2)",
		},
		YAxis: chart.YAxis{
			Name: "signal",
		},
		Series: series,
	}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return fmt.Errorf("failed to render decay chart: %v", err)
	}

	outFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if _, err := buffer.WriteTo(outFile); err != nil {
		return err
	}

	return nil
}
