package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ltmtri/vnspend/internal/feedback"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and inspect classification corrections",
	}

	cmd.AddCommand(recordFeedbackCmd())
	cmd.AddCommand(listPatternsCmd())

	return cmd
}

func recordFeedbackCmd() *cobra.Command {
	var (
		userID      string
		description string
		predicted   string
		corrected   string
		layer       string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one correction or confirmation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := feedback.NewLearner(normalize.New(), store, nil, nil)
			err = learner.RecordCorrection(ctx, model.CorrectionEvent{
				UserID:      userID,
				Description: description,
				Predicted:   predicted,
				Corrected:   corrected,
				Layer:       model.Layer(layer),
			})
			if err != nil {
				return fmt.Errorf("failed to record correction: %w", err)
			}

			if predicted == corrected {
				fmt.Println("Confirmation recorded.")
			} else {
				fmt.Printf("Correction recorded: %s -> %s\n", predicted, corrected)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&description, "description", "", "transaction description")
	cmd.Flags().StringVar(&predicted, "predicted", "", "category the cascade predicted")
	cmd.Flags().StringVar(&corrected, "corrected", "", "category the user chose")
	cmd.Flags().StringVar(&layer, "layer", string(model.LayerKeyword), "layer that produced the prediction")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("predicted")
	_ = cmd.MarkFlagRequired("corrected")

	return cmd
}

func listPatternsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Show a user's learned correction patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := feedback.NewLearner(normalize.New(), store, nil, nil)
			if err := learner.Replay(ctx); err != nil {
				return err
			}

			patterns := learner.Patterns(userID)
			if len(patterns) == 0 {
				fmt.Println("No correction patterns for this user yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "From\tTo\tCount\tLast seen")
			for _, p := range patterns {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					p.FromID, p.ToID, p.Count, p.LastSeenAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
