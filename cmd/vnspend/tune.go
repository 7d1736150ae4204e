package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ltmtri/vnspend/internal/calibrate"
	"github.com/ltmtri/vnspend/internal/classify"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
	"github.com/ltmtri/vnspend/internal/storage"
)

// labeledExample is one line of the validation file: a description with the
// category a human assigned it.
type labeledExample struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount,omitempty"`
	Category    string   `json:"category"`
}

func tuneCmd() *cobra.Command {
	var (
		samplesPath string
		minT        float64
		maxT        float64
		step        float64
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Tune the calibration temperature on labeled data",
		Long: `Grid-search the softmax temperature that minimizes Expected Calibration
Error over a JSON file of labeled descriptions. Raw scores come from the
keyword layer, the cascade's workhorse.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			examples, err := loadExamples(samplesPath)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			samples, err := buildSamples(ctx, store, examples)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("searching temperatures"),
				progressbar.OptionShowCount(),
			)
			result, err := calibrate.TuneTemperature(samples, calibrate.TuneOptions{
				Min:  minT,
				Max:  maxT,
				Step: step,
				Progress: func(done, total int) {
					bar.ChangeMax(total)
					_ = bar.Set(done)
				},
			})
			if err != nil {
				return fmt.Errorf("tuning failed: %w", err)
			}
			_ = bar.Finish()
			fmt.Println()

			fmt.Printf("Best temperature: %.2f (ECE %.4f over %d samples)\n",
				result.Temperature, result.ECE, len(samples))
			fmt.Println("Set calibration.temperature in your config to apply it.")
			return nil
		},
	}

	cmd.Flags().StringVar(&samplesPath, "samples", "", "path to a JSON array of {description, amount, category}")
	cmd.Flags().Float64Var(&minT, "min", 0.5, "lowest temperature to try")
	cmd.Flags().Float64Var(&maxT, "max", 3.0, "highest temperature to try")
	cmd.Flags().Float64Var(&step, "step", 0.1, "grid step")
	_ = cmd.MarkFlagRequired("samples")

	return cmd
}

func loadExamples(path string) ([]labeledExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples file: %w", err)
	}

	var examples []labeledExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("failed to parse samples file: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("samples file is empty")
	}
	return examples, nil
}

// buildSamples scores every labeled description with the keyword layer to
// obtain the raw vectors the tuner calibrates.
func buildSamples(ctx context.Context, store *storage.SQLiteStorage, examples []labeledExample) ([]calibrate.Sample, error) {
	normalizer := normalize.New()
	registry, err := buildRegistry(ctx, normalizer, store)
	if err != nil {
		return nil, err
	}
	keyword := classify.NewKeyword(registry, normalizer, nil)

	samples := make([]calibrate.Sample, 0, len(examples))
	for _, ex := range examples {
		raw, _, err := keyword.Scores(ctx, model.ClassificationRequest{
			Description: ex.Description,
			Amount:      ex.Amount,
		})
		if err != nil {
			return nil, err
		}
		samples = append(samples, calibrate.Sample{Raw: raw, TrueCategory: ex.Category})
	}
	return samples, nil
}
