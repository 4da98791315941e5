package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/quintalabs/fieldplan/internal/db"
	"github.com/quintalabs/fieldplan/internal/repository"
)

// Result summarizes a completed import.
type Result struct {
	AgentID   string
	Customers int
}

// Importer persists validated portfolio files transactionally.
type Importer struct {
	uow db.UnitOfWork
}

func NewImporter(uow db.UnitOfWork) *Importer {
	return &Importer{uow: uow}
}

// ImportFile loads, validates and persists one portfolio file. All rows
// commit or none do.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	pf, err := Load(path)
	if err != nil {
		return nil, err
	}
	return im.ImportPortfolio(ctx, pf)
}

// ImportPortfolio persists an already-parsed portfolio inside a single
// transaction.
func (im *Importer) ImportPortfolio(ctx context.Context, pf *PortfolioFile) (*Result, error) {
	if errs := ValidatePortfolioFile(pf); len(errs) > 0 {
		return nil, fmt.Errorf("import validation failed: %w", errors.Join(errs...))
	}

	count := 0
	err := im.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLitePortfolioRepo(tx)
		for i := range pf.Customers {
			cust, err := pf.Customers[i].ToDomain()
			if err != nil {
				return fmt.Errorf("customer %s: %w", pf.Customers[i].Code, err)
			}
			if err := repo.UpsertCustomer(ctx, pf.AgentID, cust); err != nil {
				return fmt.Errorf("customer %s: %w", cust.Code, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{AgentID: pf.AgentID, Customers: count}, nil
}
