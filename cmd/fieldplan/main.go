package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quintalabs/fieldplan/internal/annotate"
	"github.com/quintalabs/fieldplan/internal/cli"
	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/db"
	"github.com/quintalabs/fieldplan/internal/importer"
	"github.com/quintalabs/fieldplan/internal/repository"
	"github.com/quintalabs/fieldplan/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine DB path: env var or default ~/.fieldplan/fieldplan.db
	dbPath := os.Getenv("FIELDPLAN_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".fieldplan", "fieldplan.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	cfg, err := config.Load(os.Getenv("FIELDPLAN_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	portfolioRepo := repository.NewSQLitePortfolioRepo(database)
	planRepo := repository.NewSQLitePlanRepo(database)

	// Narrative annotation is optional: no reachable model, no narrator.
	var narrator annotate.NarrativeService
	llmCfg := annotate.LoadConfig()
	if llmCfg.Enabled {
		var observer annotate.Observer = annotate.NoopObserver{}
		if llmCfg.LogCalls {
			observer = annotate.NewLogObserver(os.Stderr)
		}
		client := annotate.NewRateLimited(
			annotate.NewOllamaClient(llmCfg, observer),
			annotate.LimiterForConfig(llmCfg),
		)
		narrator = annotate.NewNarrativeService(client, observer)
	}

	obs := service.NewLogUseCaseObserver(os.Stderr)
	app := &cli.App{
		Plans:    service.NewPlanService(cfg, portfolioRepo, planRepo, narrator, obs),
		Review:   service.NewReviewService(cfg, portfolioRepo, planRepo, obs),
		Importer: importer.NewImporter(db.NewSQLiteUnitOfWork(database)),
	}

	return cli.NewRootCmd(app).Execute()
}
