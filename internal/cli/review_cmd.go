package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quintalabs/fieldplan/internal/cli/formatter"
	"github.com/quintalabs/fieldplan/internal/contract"
)

func newReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Analyze execution and revise plans",
	}

	cmd.AddCommand(
		newReviewAnalyzeCmd(app),
		newReviewReviseCmd(app),
		newReviewCloseCmd(app),
	)

	return cmd
}

func newReviewAnalyzeCmd(app *App) *cobra.Command {
	var periodIndex int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <plan-id>",
		Short: "Compare one sub-period against recorded visits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Review.Analyze(context.Background(), contract.AnalyzeRequest{
				PlanID:      args[0],
				PeriodIndex: periodIndex,
			})
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(formatter.RenderAnalysis(&resp.Analysis))
			fmt.Println(formatter.StyleDim.Render(
				fmt.Sprintf("revision count %d (pass to revise)", resp.RevisionCount)))
			return nil
		},
	}

	cmd.Flags().IntVar(&periodIndex, "period-index", 0, "Sub-period index to analyze")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the analysis as JSON")
	_ = cmd.MarkFlagRequired("period-index")
	return cmd
}

func newReviewReviseCmd(app *App) *cobra.Command {
	var periodIndex, expectedRevision int

	cmd := &cobra.Command{
		Use:   "revise <plan-id>",
		Short: "Redistribute an analyzed period's gap across remaining periods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			// Revise needs a fresh analysis; the command chains the two
			// so the CLI stays stateless between invocations.
			analyzed, err := app.Review.Analyze(ctx, contract.AnalyzeRequest{
				PlanID:      args[0],
				PeriodIndex: periodIndex,
			})
			if err != nil {
				return err
			}

			expected := analyzed.RevisionCount
			if cmd.Flags().Changed("expected-revision") {
				expected = expectedRevision
			}

			resp, err := app.Review.Revise(ctx, contract.ReviseRequest{
				PlanID:                args[0],
				Analysis:              analyzed.Analysis,
				ExpectedRevisionCount: expected,
			})
			if err != nil {
				return err
			}

			fmt.Print(formatter.RenderAnalysis(&resp.Revision.Analysis))
			fmt.Println()
			fmt.Print(formatter.RenderRevision(&resp.Revision))
			return nil
		},
	}

	cmd.Flags().IntVar(&periodIndex, "period-index", 0, "Sub-period index to analyze and revise")
	cmd.Flags().IntVar(&expectedRevision, "expected-revision", 0, "Expected revision count for the version check")
	_ = cmd.MarkFlagRequired("period-index")
	return cmd
}

func newReviewCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <plan-id>",
		Short: "Close a horizon and report unabsorbed carry-over",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Review.Close(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Print(formatter.RenderCloseReport(report))
			return nil
		},
	}
}
