package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNotFound is wrapped by every lookup that matched no row
var ErrNotFound = errors.New("not found")

// ContractOrder selects how contract lists are sorted
type ContractOrder int

const (
	// ByID is creation order, oldest first. Allocation depends on it.
	ByID ContractOrder = iota
	ByStartDate
)

// EntryFilter narrows a time entry listing. Zero fields are ignored.
type EntryFilter struct {
	ProjectID  *int64
	ContractID *int64
	Unassigned bool
	From       *time.Time
	To         *time.Time
}

// ProjectRepository manages projects and their membership
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	AddMember(ctx context.Context, projectID, userID int64) error
	Members(ctx context.Context, projectID int64) ([]*domain.User, error)
	// MembersWithSubprojects includes the members of every descendant project
	MembersWithSubprojects(ctx context.Context, projectID int64) ([]*domain.User, error)
}

// UserRepository manages users
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// CategoryRepository manages contract categories
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.ContractCategory) error
	GetByID(ctx context.Context, id int64) (*domain.ContractCategory, error)
	List(ctx context.Context) ([]*domain.ContractCategory, error)
}

// ContractRepository manages contracts and their lock state
type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) error
	GetByID(ctx context.Context, id int64) (*domain.Contract, error)
	// Update saves the contract's terms. Lock state and cached totals are
	// only changed through Lock, Unlock and the Cache methods.
	Update(ctx context.Context, contract *domain.Contract) error
	// Delete detaches the contract's time entries and removes the contract
	// together with its rates, expenses and invoices.
	Delete(ctx context.Context, id int64) error
	ListByProject(ctx context.Context, projectID int64, order ContractOrder) ([]*domain.Contract, error)
	ListAll(ctx context.Context, order ContractOrder) ([]*domain.Contract, error)
	LastProjectContractID(ctx context.Context, projectID int64) (int, error)

	// Lock pins entryIDs to the contract and sets is_locked in one
	// transaction. It reports false when the contract was already locked.
	Lock(ctx context.Context, id int64, entryIDs []int64) (bool, error)
	// Unlock clears is_locked and both cached totals. It reports false when
	// the contract was not locked.
	Unlock(ctx context.Context, id int64) (bool, error)
	// CacheHoursWorked stores the value only if the contract is locked and
	// the field is still empty. It reports whether the value was stored.
	CacheHoursWorked(ctx context.Context, id int64, hours decimal.Decimal) (bool, error)
	CacheBillableAmountTotal(ctx context.Context, id int64, amount decimal.Decimal) (bool, error)
}

// TimeEntryRepository manages time entries with an audit trail of
// contract reassignments
type TimeEntryRepository interface {
	Create(ctx context.Context, entry *domain.TimeEntry) error
	GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error)
	Delete(ctx context.Context, id int64) error
	// ListByProject returns every entry of the project in ID order
	ListByProject(ctx context.Context, projectID int64) ([]*domain.TimeEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]*domain.TimeEntry, error)
	// AssignContract moves an entry to contractID (nil dissociates). The
	// write is skipped when the entry's current contract or the target is
	// locked; changed reports whether the row moved.
	AssignContract(ctx context.Context, entryID int64, contractID *int64, reason string) (changed bool, err error)
	GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error)
}

// RateRepository manages per-user rate overrides
type RateRepository interface {
	ContractRates(ctx context.Context, contractID int64) ([]*domain.UserContractRate, error)
	// ContractRatesForProject returns the overrides of every contract of the project
	ContractRatesForProject(ctx context.Context, projectID int64) ([]*domain.UserContractRate, error)
	ProjectRates(ctx context.Context, projectID int64) ([]*domain.UserProjectRate, error)
	// Apply upserts each contract rate and mirrors it as the user's
	// project default, all in one transaction
	Apply(ctx context.Context, contractID, projectID int64, rates map[int64]decimal.Decimal) error
}

// LedgerRepository manages contract expenses and invoices
type LedgerRepository interface {
	AddExpense(ctx context.Context, expense *domain.ContractsExpense) error
	DeleteExpense(ctx context.Context, id int64) error
	Expenses(ctx context.Context, contractID int64) ([]*domain.ContractsExpense, error)
	ExpensesForProject(ctx context.Context, projectID int64) ([]*domain.ContractsExpense, error)
	AddInvoice(ctx context.Context, invoice *domain.ContractsInvoice) error
	DeleteInvoice(ctx context.Context, id int64) error
	Invoices(ctx context.Context, contractID int64) ([]*domain.ContractsInvoice, error)
}
