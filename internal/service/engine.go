package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// contractLocks serialises lock transitions and cache fills per contract
// across every service of the process
var contractLocks = newKeyedMutex()

// engine holds what the services share: the repositories, the calculator
// and the per-contract locks
type engine struct {
	repos Repos
	opts  Options
	calc  billing.Calculator
	locks *keyedMutex
	log   zerolog.Logger
}

func newEngine(repos Repos, opts Options, component string) *engine {
	opts = opts.withDefaults()
	return &engine{
		repos: repos,
		opts:  opts,
		calc:  opts.Calculator,
		locks: contractLocks,
		log:   opts.Logger.With().Str("component", component).Logger(),
	}
}

func (e *engine) getContract(ctx context.Context, id int64) (*domain.Contract, error) {
	c, err := e.repos.Contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrContractNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

// load reads the contract and a snapshot of its project
func (e *engine) load(ctx context.Context, id int64) (*projectSnapshot, *domain.Contract, error) {
	c, err := e.getContract(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	snap, err := loadSnapshot(ctx, e.repos, c.ProjectID, e.opts.SmartTimeEntries)
	if err != nil {
		return nil, nil, err
	}

	sc := snap.contract(id)
	if sc == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrContractNotFound, id)
	}
	return snap, sc, nil
}

func (e *engine) summarize(ctx context.Context, snap *projectSnapshot, c *domain.Contract, invoices []*domain.ContractsInvoice) (*billing.Summary, error) {
	hours, err := e.hoursSpent(ctx, snap, c)
	if err != nil {
		return nil, err
	}

	billable, err := e.billableTotal(ctx, snap, c)
	if err != nil {
		return nil, err
	}

	return billing.Summarize(billing.Input{
		Contract:      c,
		HoursSpent:    hours,
		BillableTotal: billable,
		Expenses:      snap.expenses[c.ID],
		Invoices:      invoices,
	}), nil
}

// hoursSpent is live while unlocked and cached once locked
func (e *engine) hoursSpent(ctx context.Context, snap *projectSnapshot, c *domain.Contract) (decimal.Decimal, error) {
	compute := func() decimal.Decimal {
		return e.calc.HoursSpent(snap.allocation().Entries(c.ID))
	}
	if !c.IsLocked {
		return compute(), nil
	}
	return e.fillCache(ctx, c, hoursWorkedField, compute)
}

func (e *engine) billableTotal(ctx context.Context, snap *projectSnapshot, c *domain.Contract) (decimal.Decimal, error) {
	compute := func() decimal.Decimal {
		return e.calc.BillableTotal(c, snap.allocation().Entries(c.ID), snap.rates)
	}
	if !c.IsLocked {
		return compute(), nil
	}
	return e.fillCache(ctx, c, billableAmountField, compute)
}

// cacheField binds one of the two cached contract totals to its storage
type cacheField struct {
	name  string
	get   func(c *domain.Contract) *decimal.NullDecimal
	store func(ctx context.Context, repo repository.ContractRepository, id int64, v decimal.Decimal) (bool, error)
}

var hoursWorkedField = cacheField{
	name: "hours_worked",
	get:  func(c *domain.Contract) *decimal.NullDecimal { return &c.HoursWorked },
	store: func(ctx context.Context, repo repository.ContractRepository, id int64, v decimal.Decimal) (bool, error) {
		return repo.CacheHoursWorked(ctx, id, v)
	},
}

var billableAmountField = cacheField{
	name: "billable_amount_total",
	get:  func(c *domain.Contract) *decimal.NullDecimal { return &c.BillableAmountTotal },
	store: func(ctx context.Context, repo repository.ContractRepository, id int64, v decimal.Decimal) (bool, error) {
		return repo.CacheBillableAmountTotal(ctx, id, v)
	},
}

// fillCache returns the cached value of f, computing and storing it first
// if it is absent. At most one computation per field per lock period.
func (e *engine) fillCache(ctx context.Context, c *domain.Contract, f cacheField, compute func() decimal.Decimal) (decimal.Decimal, error) {
	if v := f.get(c); v.Valid {
		return v.Decimal, nil
	}

	unlock := e.locks.Lock(c.ID)
	defer unlock()

	fresh, err := e.getContract(ctx, c.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if !fresh.IsLocked {
		// unlocked while waiting, nothing to cache
		return compute(), nil
	}
	if v := f.get(fresh); v.Valid {
		*f.get(c) = *v
		return v.Decimal, nil
	}

	value := compute()
	stored, err := f.store(ctx, e.repos.Contracts, c.ID, value)
	if err != nil {
		return decimal.Zero, err
	}
	if stored {
		*f.get(c) = decimal.NewNullDecimal(value)
		e.log.Debug().
			Int64("contract_id", c.ID).
			Str("field", f.name).
			Str("value", value.String()).
			Msg("cached locked total")
	}
	return value, nil
}

