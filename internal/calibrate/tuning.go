package calibrate

import (
	"fmt"
	"math"

	"github.com/ltmtri/vnspend/internal/model"
)

// Sample is one labeled validation example: the raw score vector a layer
// produced and the category a human confirmed.
type Sample struct {
	Raw          model.CategoryScores
	TrueCategory string
}

// TuneOptions configures the temperature grid search. The search range and
// step are tuning knobs, not contracts; the defaults cover the useful range.
type TuneOptions struct {
	Min      float64
	Max      float64
	Step     float64
	Bins     int
	Progress func(done, total int)
}

// TuneResult is the winning temperature and its calibration error.
type TuneResult struct {
	Temperature float64
	ECE         float64
}

// TuneTemperature grid-searches the temperature that minimizes Expected
// Calibration Error over a labeled validation set.
func TuneTemperature(samples []Sample, opts TuneOptions) (TuneResult, error) {
	if len(samples) == 0 {
		return TuneResult{}, fmt.Errorf("no validation samples")
	}
	if opts.Min <= 0 {
		opts.Min = 0.5
	}
	if opts.Max <= opts.Min {
		opts.Max = 3.0
	}
	if opts.Step <= 0 {
		opts.Step = 0.1
	}
	if opts.Bins <= 0 {
		opts.Bins = 10
	}

	total := int((opts.Max-opts.Min)/opts.Step) + 1

	best := TuneResult{Temperature: DefaultTemperature, ECE: math.Inf(1)}
	done := 0
	for t := opts.Min; t <= opts.Max+1e-9; t += opts.Step {
		ece := expectedCalibrationError(samples, t, opts.Bins)
		if ece < best.ECE {
			best = TuneResult{Temperature: t, ECE: ece}
		}
		done++
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}

	return best, nil
}

// expectedCalibrationError bins predictions by confidence and sums the
// weighted gaps between per-bin accuracy and per-bin mean confidence.
func expectedCalibrationError(samples []Sample, temperature float64, bins int) float64 {
	cal := New(temperature, nil)

	binConf := make([]float64, bins)
	binAcc := make([]float64, bins)
	binN := make([]int, bins)

	for _, sample := range samples {
		c := cal.Calibrate(sample.Raw)

		bin := int(c.Top.Score * float64(bins))
		if bin >= bins {
			bin = bins - 1
		}

		binConf[bin] += c.Top.Score
		if c.Top.CategoryID == sample.TrueCategory {
			binAcc[bin]++
		}
		binN[bin]++
	}

	var ece float64
	n := float64(len(samples))
	for b := 0; b < bins; b++ {
		if binN[b] == 0 {
			continue
		}
		count := float64(binN[b])
		ece += math.Abs(binAcc[b]/count-binConf[b]/count) * count / n
	}

	return ece
}
