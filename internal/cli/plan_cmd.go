package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quintalabs/fieldplan/internal/cli/formatter"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and manage visit plans",
	}

	cmd.AddCommand(
		newPlanGenerateCmd(app),
		newPlanShowCmd(app),
		newPlanPublishCmd(app),
	)

	return cmd
}

func parsePeriodKind(s string) (domain.PeriodKind, error) {
	switch domain.PeriodKind(s) {
	case domain.PeriodWeek:
		return domain.PeriodWeek, nil
	case domain.PeriodMonth:
		return domain.PeriodMonth, nil
	default:
		return "", fmt.Errorf("invalid period kind %q (want week or month)", s)
	}
}

func newPlanGenerateCmd(app *App) *cobra.Command {
	var agentID, kind, start string
	var carryVisits int
	var carryRevenue float64
	var skipNarrative bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a plan for one agent and period",
		RunE: func(cmd *cobra.Command, args []string) error {
			periodKind, err := parsePeriodKind(kind)
			if err != nil {
				return err
			}
			periodStart, err := time.Parse(domain.DateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid start date %q: %w", start, err)
			}

			resp, err := app.Plans.Generate(context.Background(), contract.GeneratePlanRequest{
				AgentID:          agentID,
				PeriodKind:       periodKind,
				PeriodStart:      periodStart,
				CarryOverVisits:  carryVisits,
				CarryOverRevenue: carryRevenue,
				SkipNarrative:    skipNarrative,
			})
			if err != nil {
				return err
			}

			fmt.Print(formatter.RenderPlan(resp.Plan))
			for _, sk := range resp.Skipped {
				fmt.Println(formatter.StyleDim.Render(
					fmt.Sprintf("skipped %s: %s", sk.CustomerCode, sk.Reason)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent ID")
	cmd.Flags().StringVar(&kind, "period", "month", "Period kind (week or month)")
	cmd.Flags().StringVar(&start, "start", "", "Any date inside the period (YYYY-MM-DD)")
	cmd.Flags().IntVar(&carryVisits, "carry-visits", 0, "Visit gap carried over from the previous horizon")
	cmd.Flags().Float64Var(&carryRevenue, "carry-revenue", 0, "Revenue gap carried over from the previous horizon")
	cmd.Flags().BoolVar(&skipNarrative, "no-narrative", false, "Skip narrative annotation")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func newPlanShowCmd(app *App) *cobra.Command {
	var effective, asJSON bool

	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := app.Plans.Get(context.Background(), args[0], effective)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(formatter.RenderPlan(plan))
			return nil
		},
	}

	cmd.Flags().BoolVar(&effective, "effective", false, "Replay revisions onto the baseline")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the plan as JSON")
	return cmd
}

func newPlanPublishCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <plan-id>",
		Short: "Publish a drafted plan, freezing its baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := app.Plans.Publish(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Published plan %s for %s (%s)\n", plan.ID, plan.AgentID, plan.Period.Key())
			return nil
		},
	}
}
