package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/andy/billhours/internal/allocation"
	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/repository"
)

// projectSnapshot is everything one request needs about a project, loaded
// once. The allocation pass is computed on first use and then reused.
type projectSnapshot struct {
	projectID int64
	contracts []*domain.Contract
	entries   []*domain.TimeEntry
	rates     *billing.RateResolver
	expenses  map[int64][]*domain.ContractsExpense
	smart     bool

	once  sync.Once
	alloc *allocation.Allocation
}

func loadSnapshot(ctx context.Context, repos Repos, projectID int64, smart bool) (*projectSnapshot, error) {
	contracts, err := repos.Contracts.ListByProject(ctx, projectID, repository.ByID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts: %w", err)
	}

	entries, err := repos.Entries.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load time entries: %w", err)
	}

	contractRates, err := repos.Rates.ContractRatesForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract rates: %w", err)
	}

	projectRates, err := repos.Rates.ProjectRates(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project rates: %w", err)
	}

	expenses, err := repos.Ledger.ExpensesForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	byContract := make(map[int64][]*domain.ContractsExpense)
	for _, e := range expenses {
		byContract[e.ContractID] = append(byContract[e.ContractID], e)
	}

	return &projectSnapshot{
		projectID: projectID,
		contracts: contracts,
		entries:   entries,
		rates:     billing.NewRateResolver(contractRates, projectRates),
		expenses:  byContract,
		smart:     smart,
	}, nil
}

func (p *projectSnapshot) allocation() *allocation.Allocation {
	p.once.Do(func() {
		p.alloc = allocation.Allocate(p.contracts, p.entries, p.smart)
	})
	return p.alloc
}

func (p *projectSnapshot) contract(id int64) *domain.Contract {
	for _, c := range p.contracts {
		if c.ID == id {
			return c
		}
	}
	return nil
}
