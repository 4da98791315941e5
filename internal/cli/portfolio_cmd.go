package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPortfolioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Manage customer portfolios",
	}

	cmd.AddCommand(newPortfolioImportCmd(app))
	return cmd
}

func newPortfolioImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a customer portfolio from a CSV or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Importer.ImportFile(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d customers for agent %s\n", result.Customers, result.AgentID)
			return nil
		},
	}
}
