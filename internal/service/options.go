package service

import (
	"errors"
	"time"

	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/repository"
	"github.com/rs/zerolog"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrContractLocked   = errors.New("contract is locked")
	ErrProjectNotFound  = errors.New("project not found")
)

// Options carries the process-wide settings the services read
type Options struct {
	// SmartTimeEntries enables date-range allocation; off means plain
	// contract_id membership
	SmartTimeEntries bool
	// LegacySingleEntryRange makes ContractForTimeEntry bound the range by
	// the start date on both ends
	LegacySingleEntryRange bool
	// ShowLockedContracts keeps locked contracts in overviews
	ShowLockedContracts bool

	Logger     zerolog.Logger
	Calculator billing.Calculator
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Calculator == nil {
		o.Calculator = billing.NewCalculator()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Repos groups the repositories the services depend on
type Repos struct {
	Projects   repository.ProjectRepository
	Users      repository.UserRepository
	Categories repository.CategoryRepository
	Contracts  repository.ContractRepository
	Entries    repository.TimeEntryRepository
	Rates      repository.RateRepository
	Ledger     repository.LedgerRepository
}
