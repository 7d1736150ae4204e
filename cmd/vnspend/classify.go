package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ltmtri/vnspend/internal/model"
)

func classifyCmd() *cobra.Command {
	var (
		amount float64
		userID string
	)

	cmd := &cobra.Command{
		Use:   "classify <description>",
		Short: "Classify a transaction description",
		Long: `Run one Vietnamese transaction description through the cascade and print
the category, confidence and the layer that resolved it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			orchestrator, cleanup, err := buildOrchestrator(ctx, store)
			if err != nil {
				return err
			}
			defer cleanup()

			req := model.ClassificationRequest{
				Description: strings.Join(args, " "),
				UserID:      userID,
			}
			if cmd.Flags().Changed("amount") {
				req.Amount = &amount
			}

			result, err := orchestrator.Classify(ctx, req)
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Category:\t%s\n", result.CategoryID)
			fmt.Fprintf(w, "Confidence:\t%.1f%%\n", result.Confidence*100)
			fmt.Fprintf(w, "Layer:\t%s\n", result.Layer)
			fmt.Fprintf(w, "Explanation:\t%s\n", result.Explanation)
			if result.RequiresHumanReview {
				fmt.Fprintf(w, "Review:\tneeds human review\n")
			}
			for _, alt := range result.Alternatives {
				fmt.Fprintf(w, "Alternative:\t%s (%.1f%%)\n", alt.CategoryID, alt.Score*100)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount in VND")
	cmd.Flags().StringVar(&userID, "user", "", "user id for personalized adjustments")

	return cmd
}
