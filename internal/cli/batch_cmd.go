package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/quintalabs/fieldplan/internal/batch"
	"github.com/quintalabs/fieldplan/internal/cli/formatter"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run plan operations across many agents",
	}

	cmd.AddCommand(newBatchGenerateCmd(app))
	return cmd
}

func newBatchGenerateCmd(app *App) *cobra.Command {
	var agents, kind, start string
	var concurrency int
	var skipNarrative bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft plans for a list of agents concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			periodKind, err := parsePeriodKind(kind)
			if err != nil {
				return err
			}
			periodStart, err := time.Parse(domain.DateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid start date %q: %w", start, err)
			}

			var reqs []contract.GeneratePlanRequest
			for _, id := range strings.Split(agents, ",") {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				reqs = append(reqs, contract.GeneratePlanRequest{
					AgentID:       id,
					PeriodKind:    periodKind,
					PeriodStart:   periodStart,
					SkipNarrative: skipNarrative,
				})
			}
			if len(reqs) == 0 {
				return fmt.Errorf("no agents given")
			}

			opts := []batch.Option{batch.WithConcurrency(concurrency)}
			if isatty.IsTerminal(os.Stderr.Fd()) {
				bar := progressbar.NewOptions(len(reqs),
					progressbar.OptionSetDescription("generating plans"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				opts = append(opts, batch.WithProgress(func(done, total int, r batch.Result) {
					_ = bar.Add(1)
				}))
			}

			runner := batch.NewRunner(app.Plans, opts...)
			results := runner.GenerateAll(context.Background(), reqs)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := formatter.StyleGreen.Render("ok")
				detail := ""
				if r.Err != nil {
					status = formatter.StyleRed.Render("failed")
					detail = r.Err.Error()
				} else if r.Plan != nil {
					detail = fmt.Sprintf("%d visits, %.2f revenue", r.Plan.Targets.Visits, r.Plan.Targets.Revenue)
				}
				rows = append(rows, []string{r.AgentID, status, r.Elapsed.Round(time.Millisecond).String(), detail})
			}
			fmt.Print(formatter.RenderTable([]string{"AGENT", "STATUS", "TIME", "DETAIL"}, rows))

			if failed := batch.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d generations failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agents, "agents", "", "Comma-separated agent IDs")
	cmd.Flags().StringVar(&kind, "period", "month", "Period kind (week or month)")
	cmd.Flags().StringVar(&start, "start", "", "Any date inside the period (YYYY-MM-DD)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel generations")
	cmd.Flags().BoolVar(&skipNarrative, "no-narrative", false, "Skip narrative annotation")
	_ = cmd.MarkFlagRequired("agents")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}
