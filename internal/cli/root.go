package cli

import (
	"github.com/spf13/cobra"

	"github.com/quintalabs/fieldplan/internal/importer"
	"github.com/quintalabs/fieldplan/internal/service"
)

// App holds references to the service interfaces CLI commands use.
type App struct {
	Plans    service.PlanService
	Review   service.ReviewService
	Importer *importer.Importer
}

// NewRootCmd creates the top-level "fieldplan" command and registers
// all subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldplan",
		Short: "Territory visit planner and revision engine",
	}

	root.AddCommand(
		newPlanCmd(app),
		newReviewCmd(app),
		newBatchCmd(app),
		newPortfolioCmd(app),
	)

	return root
}
