package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ltmtri/vnspend/internal/discovery"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
	"github.com/ltmtri/vnspend/internal/storage"
)

func suggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review discovered category suggestions",
		Long: `Transactions that keep landing in the miscellaneous bucket are mined for
recurring themes. Each theme becomes a suggestion you can approve into a
real category, reject, or merge into an existing one.`,
	}

	cmd.AddCommand(listSuggestionsCmd())
	cmd.AddCommand(approveSuggestionCmd())
	cmd.AddCommand(rejectSuggestionCmd())
	cmd.AddCommand(mergeSuggestionCmd())

	return cmd
}

func newDiscoverer(store *storage.SQLiteStorage) (*discovery.Discoverer, error) {
	return discovery.NewDiscoverer(normalize.New(), store, nil, nil, nil)
}

func listSuggestionsCmd() *cobra.Command {
	var (
		userID string
		status string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's suggestions by status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggestions, err := store.GetSuggestionsByStatus(ctx, userID, model.SuggestionStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list suggestions: %w", err)
			}
			if len(suggestions) == 0 {
				fmt.Printf("No %s suggestions.\n", status)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tName\tType\tConfidence\tTransactions\tSamples")
			for _, s := range suggestions {
				fmt.Fprintf(w, "%s\t%s %s\t%s\t%.0f%%\t%d\t%s\n",
					s.ID, s.Icon, s.Name, s.Type, s.Confidence*100,
					s.TransactionCount, strings.Join(s.Samples, "; "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&status, "status", string(model.SuggestionPending), "lifecycle status to list")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func approveSuggestionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <suggestion-id>",
		Short: "Approve a suggestion and create its category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			discoverer, err := newDiscoverer(store)
			if err != nil {
				return err
			}

			category, err := discoverer.Approve(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to approve suggestion: %w", err)
			}

			fmt.Printf("Created category %s (%s).\n", category.ID, category.Name)
			return nil
		},
	}
}

func rejectSuggestionCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <suggestion-id>",
		Short: "Reject a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			discoverer, err := newDiscoverer(store)
			if err != nil {
				return err
			}

			if err := discoverer.Reject(ctx, args[0], reason); err != nil {
				return fmt.Errorf("failed to reject suggestion: %w", err)
			}

			fmt.Println("Suggestion rejected.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the suggestion was rejected")

	return cmd
}

func mergeSuggestionCmd() *cobra.Command {
	var into string

	cmd := &cobra.Command{
		Use:   "merge <suggestion-id>",
		Short: "Merge a suggestion into an existing category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			discoverer, err := newDiscoverer(store)
			if err != nil {
				return err
			}

			if err := discoverer.Merge(ctx, args[0], into); err != nil {
				return fmt.Errorf("failed to merge suggestion: %w", err)
			}

			fmt.Printf("Suggestion merged into %s.\n", into)
			return nil
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "category id to merge into")
	_ = cmd.MarkFlagRequired("into")

	return cmd
}
