package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/andy/billhours/internal/allocation"
	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnlockResult reports how many entries the contract owned on each side of
// an unlock
type UnlockResult struct {
	ContractID  int64
	Before      int
	After       int
	HoursBefore decimal.Decimal
	HoursAfter  decimal.Decimal
}

// Added is the number of entries the contract picked up by unlocking
func (r *UnlockResult) Added() int {
	return r.After - r.Before
}

// HoursAdded is the hours those entries carry
func (r *UnlockResult) HoursAdded() decimal.Decimal {
	return r.HoursAfter.Sub(r.HoursBefore)
}

// ReassignResult reports a batch reassignment entry by entry
type ReassignResult struct {
	Attempted int
	Succeeded int
	Rejected  []int64
	// HoursOver is set when the target ends up billing more than its budget
	HoursOver bool
}

// Partial reports whether some entries were left where they were
func (r *ReassignResult) Partial() bool {
	return len(r.Rejected) > 0
}

// ContractDetail is everything shown for a single contract
type ContractDetail struct {
	Contract *domain.Contract
	Project  *domain.Project
	Title    string
	Entries  []*domain.TimeEntry
	Members  []MemberBilling
	Expenses []*domain.ContractsExpense
	Invoices []*domain.ContractsInvoice
	Issues   []billing.IssueSummary
	Summary  *billing.Summary
}

// MemberBilling is one user's share of a contract
type MemberBilling struct {
	User     *domain.User
	Hours    decimal.Decimal
	Rate     decimal.Decimal
	Override bool
	Amount   decimal.Decimal
}

// ContractorRate is one row of the rates form
type ContractorRate struct {
	User *domain.User
	Rate decimal.Decimal
}

// ContractService runs the allocation and billing engine over stored contracts
type ContractService interface {
	// CreateContract numbers, saves and then applies rates to a new contract
	CreateContract(ctx context.Context, c *domain.Contract, rates map[int64]decimal.Decimal) error
	UpdateContract(ctx context.Context, c *domain.Contract, rates map[int64]decimal.Decimal) error
	DeleteContract(ctx context.Context, id int64) error
	// CopyContract starts the next contract of a recurring series
	CopyContract(ctx context.Context, id int64) (*domain.Contract, error)

	GetContract(ctx context.Context, id int64) (*domain.Contract, error)
	Show(ctx context.Context, id int64) (*ContractDetail, error)

	Billing(ctx context.Context, id int64) (*billing.Summary, error)
	HoursWorked(ctx context.Context, id int64) (decimal.Decimal, error)
	BillableAmountTotal(ctx context.Context, id int64) (decimal.Decimal, error)

	Lock(ctx context.Context, id int64) error
	Unlock(ctx context.Context, id int64) (*UnlockResult, error)

	// AssignEntries moves entries to contractID, or detaches them when it
	// is nil. Entries touching a locked contract are skipped one by one.
	AssignEntries(ctx context.Context, entryIDs []int64, contractID *int64) (*ReassignResult, error)
	ApplyRates(ctx context.Context, contractID int64, rates map[int64]decimal.Decimal) error
	// ContractorRates pre-fills the rates form; contractID is nil for a new contract
	ContractorRates(ctx context.Context, projectID int64, contractID *int64) ([]ContractorRate, error)
	ContractForTimeEntry(ctx context.Context, entryID int64) (*domain.Contract, error)
}

type contractService struct {
	*engine
}

// NewContractService creates a new contract service
func NewContractService(repos Repos, opts Options) ContractService {
	return &contractService{engine: newEngine(repos, opts, "contracts")}
}

func (s *contractService) CreateContract(ctx context.Context, c *domain.Contract, rates map[int64]decimal.Decimal) error {
	if err := domain.ValidateRates(rates); err != nil {
		return err
	}

	if _, err := s.repos.Projects.GetByID(ctx, c.ProjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrProjectNotFound, c.ProjectID)
		}
		return err
	}

	if c.ProjectContractID == 0 {
		last, err := s.repos.Contracts.LastProjectContractID(ctx, c.ProjectID)
		if err != nil {
			return err
		}
		c.ProjectContractID = last + 1
	}

	if err := s.repos.Contracts.Create(ctx, c); err != nil {
		return err
	}

	return s.repos.Rates.Apply(ctx, c.ID, c.ProjectID, rates)
}

func (s *contractService) UpdateContract(ctx context.Context, c *domain.Contract, rates map[int64]decimal.Decimal) error {
	if err := domain.ValidateRates(rates); err != nil {
		return err
	}

	if err := s.repos.Contracts.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrContractNotFound, c.ID)
		}
		return err
	}

	return s.repos.Rates.Apply(ctx, c.ID, c.ProjectID, rates)
}

func (s *contractService) DeleteContract(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.getContract(ctx, id)
	if err != nil {
		return err
	}
	if c.IsLocked {
		return ErrContractLocked
	}

	if err := s.repos.Contracts.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Int64("contract_id", id).Msg("contract deleted")
	return nil
}

func (s *contractService) CopyContract(ctx context.Context, id int64) (*domain.Contract, error) {
	src, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}

	if src.SeriesID == "" {
		src.SeriesID = uuid.NewString()
		if err := s.repos.Contracts.Update(ctx, src); err != nil {
			return nil, fmt.Errorf("failed to start series: %w", err)
		}
	}

	last, err := s.repos.Contracts.LastProjectContractID(ctx, src.ProjectID)
	if err != nil {
		return nil, err
	}

	cp := domain.NewContract(src.ProjectID, src.StartDate, src.PurchaseAmount, src.HourlyRate)
	cp.ProjectContractID = last + 1
	cp.CategoryID = src.CategoryID
	cp.Title = src.Title
	cp.Description = src.Description
	cp.IsFixedPrice = src.IsFixedPrice
	cp.RecurringFrequency = src.RecurringFrequency
	cp.SeriesID = src.SeriesID

	switch {
	case src.Type() == domain.ContractRecurring && src.RecurringFrequency == domain.Monthly:
		cp.StartDate = domain.AddMonths(src.StartDate, 1)
		end := domain.AddMonths(src.StartDate, 2)
		cp.EndDate = &end
	case src.Type() == domain.ContractRecurring && src.RecurringFrequency == domain.Yearly:
		cp.StartDate = domain.AddMonths(src.StartDate, 12)
		end := domain.AddMonths(src.StartDate, 24)
		cp.EndDate = &end
	default:
		cp.StartDate = domain.DateOnly(s.opts.Now())
	}

	members, err := s.repos.Projects.MembersWithSubprojects(ctx, src.ProjectID)
	if err != nil {
		return nil, err
	}
	contractRates, err := s.repos.Rates.ContractRates(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	resolver := billing.NewRateResolver(contractRates, nil)

	rates := make(map[int64]decimal.Decimal, len(members))
	for _, m := range members {
		rates[m.ID] = resolver.ResolveRate(src, m.ID, billing.ScopeContract)
	}

	if err := s.CreateContract(ctx, cp, rates); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("source_id", src.ID).
		Int64("contract_id", cp.ID).
		Str("series_id", cp.SeriesID).
		Msg("contract copied")
	return cp, nil
}

func (s *contractService) GetContract(ctx context.Context, id int64) (*domain.Contract, error) {
	return s.getContract(ctx, id)
}

func (s *contractService) Show(ctx context.Context, id int64) (*ContractDetail, error) {
	snap, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	project, err := s.repos.Projects.GetByID(ctx, c.ProjectID)
	if err != nil {
		return nil, err
	}

	categoryName := ""
	if c.CategoryID != nil {
		category, err := s.repos.Categories.GetByID(ctx, *c.CategoryID)
		if err != nil {
			return nil, err
		}
		categoryName = category.Name
	}

	entries := append([]*domain.TimeEntry(nil), snap.allocation().Entries(c.ID)...)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].SpentOn.Equal(entries[j].SpentOn) {
			return entries[i].SpentOn.After(entries[j].SpentOn)
		}
		return entries[i].ID > entries[j].ID
	})

	members := make([]MemberBilling, 0)
	for _, m := range billing.HoursByUser(entries) {
		u, err := s.repos.Users.GetByID(ctx, m.UserID)
		if err != nil {
			return nil, err
		}
		members = append(members, MemberBilling{
			User:     u,
			Hours:    m.Hours,
			Rate:     snap.rates.ResolveRate(c, m.UserID, billing.ScopeContract),
			Override: snap.rates.HasOverride(c.ID, m.UserID),
			Amount:   billing.AmountForUser(c, entries, m.UserID, snap.rates),
		})
	}

	invoices, err := s.repos.Ledger.Invoices(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, snap, c, invoices)
	if err != nil {
		return nil, err
	}

	return &ContractDetail{
		Contract: c,
		Project:  project,
		Title:    c.DisplayTitle(project.Identifier, categoryName),
		Entries:  entries,
		Members:  members,
		Expenses: snap.expenses[c.ID],
		Invoices: invoices,
		Issues:   billing.IssueSummaries(c, entries, snap.rates),
		Summary:  summary,
	}, nil
}

func (s *contractService) Billing(ctx context.Context, id int64) (*billing.Summary, error) {
	snap, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	invoices, err := s.repos.Ledger.Invoices(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	return s.summarize(ctx, snap, c, invoices)
}

func (s *contractService) HoursWorked(ctx context.Context, id int64) (decimal.Decimal, error) {
	snap, c, err := s.load(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return s.hoursSpent(ctx, snap, c)
}

func (s *contractService) BillableAmountTotal(ctx context.Context, id int64) (decimal.Decimal, error) {
	snap, c, err := s.load(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return s.billableTotal(ctx, snap, c)
}

func (s *contractService) Lock(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	snap, c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if c.IsLocked {
		s.log.Debug().Int64("contract_id", id).Msg("contract already locked")
		return nil
	}

	var pinned []int64
	if s.opts.SmartTimeEntries {
		pinned = snap.allocation().EntryIDs(id)
	}

	locked, err := s.repos.Contracts.Lock(ctx, id, pinned)
	if err != nil {
		return fmt.Errorf("failed to lock contract %d: %w", id, err)
	}

	s.log.Info().
		Int64("contract_id", id).
		Bool("changed", locked).
		Int("entries", len(pinned)).
		Msg("contract locked")
	return nil
}

func (s *contractService) Unlock(ctx context.Context, id int64) (*UnlockResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	before, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &UnlockResult{
		ContractID:  id,
		Before:      before.allocation().Count(id),
		HoursBefore: before.allocation().HoursFor(id),
	}
	if !c.IsLocked {
		result.After = result.Before
		result.HoursAfter = result.HoursBefore
		return result, nil
	}

	if _, err := s.repos.Contracts.Unlock(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to unlock contract %d: %w", id, err)
	}

	after, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	result.After = after.allocation().Count(id)
	result.HoursAfter = after.allocation().HoursFor(id)

	event := s.log.Info()
	if result.Added() > 0 {
		event = s.log.Warn()
	}
	event.
		Int64("contract_id", id).
		Int("before", result.Before).
		Int("after", result.After).
		Str("hours_added", result.HoursAdded().String()).
		Msg("contract unlocked")
	return result, nil
}

func (s *contractService) AssignEntries(ctx context.Context, entryIDs []int64, contractID *int64) (*ReassignResult, error) {
	result := &ReassignResult{Attempted: len(entryIDs)}

	reason := domain.ReasonManual
	if contractID == nil {
		reason = domain.ReasonDissolve
	} else if _, err := s.getContract(ctx, *contractID); err != nil {
		return nil, err
	}

	for _, entryID := range entryIDs {
		entry, err := s.repos.Entries.GetByID(ctx, entryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				result.Rejected = append(result.Rejected, entryID)
				continue
			}
			return nil, err
		}
		if sameContract(entry.ContractID, contractID) {
			result.Succeeded++
			continue
		}

		changed, err := s.repos.Entries.AssignContract(ctx, entryID, contractID, reason)
		if err != nil {
			return nil, err
		}
		if !changed {
			s.log.Debug().Int64("entry_id", entryID).Msg("reassignment rejected by locked contract")
			result.Rejected = append(result.Rejected, entryID)
			continue
		}
		result.Succeeded++
	}

	if contractID != nil && result.Succeeded > 0 {
		summary, err := s.Billing(ctx, *contractID)
		if err != nil {
			return nil, err
		}
		result.HoursOver = summary.HasWarning(billing.WarnOverBudget)
	}

	if result.Partial() {
		s.log.Warn().
			Int("attempted", result.Attempted).
			Int("succeeded", result.Succeeded).
			Msg("reassignment partially applied")
	}
	return result, nil
}

func sameContract(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *contractService) ApplyRates(ctx context.Context, contractID int64, rates map[int64]decimal.Decimal) error {
	if err := domain.ValidateRates(rates); err != nil {
		return err
	}

	c, err := s.getContract(ctx, contractID)
	if err != nil {
		return err
	}

	return s.repos.Rates.Apply(ctx, c.ID, c.ProjectID, rates)
}

func (s *contractService) ContractorRates(ctx context.Context, projectID int64, contractID *int64) ([]ContractorRate, error) {
	members, err := s.repos.Projects.MembersWithSubprojects(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows := make([]ContractorRate, 0, len(members))

	if contractID == nil {
		projectRates, err := s.repos.Rates.ProjectRates(ctx, projectID)
		if err != nil {
			return nil, err
		}
		resolver := billing.NewRateResolver(nil, projectRates)
		for _, m := range members {
			rows = append(rows, ContractorRate{User: m, Rate: resolver.ProjectRate(projectID, m.ID)})
		}
		return rows, nil
	}

	c, err := s.getContract(ctx, *contractID)
	if err != nil {
		return nil, err
	}
	contractRates, err := s.repos.Rates.ContractRates(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	resolver := billing.NewRateResolver(contractRates, nil)
	for _, m := range members {
		rows = append(rows, ContractorRate{User: m, Rate: resolver.ResolveRate(c, m.ID, billing.ScopeContract)})
	}
	return rows, nil
}

func (s *contractService) ContractForTimeEntry(ctx context.Context, entryID int64) (*domain.Contract, error) {
	entry, err := s.repos.Entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	contracts, err := s.repos.Contracts.ListByProject(ctx, entry.ProjectID, repository.ByID)
	if err != nil {
		return nil, err
	}

	return allocation.ContractForTimeEntry(entry, contracts, allocation.SingleEntryOptions{
		LegacyRange: s.opts.LegacySingleEntryRange,
	}), nil
}
