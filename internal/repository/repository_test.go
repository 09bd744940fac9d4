package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite

	ctx       context.Context
	db        *db.DB
	projects  *repository.ProjectRepo
	users     *repository.UserRepo
	contracts *repository.ContractRepo
	entries   *repository.EntryRepo
	rates     *repository.RateRepo
	ledger    *repository.LedgerRepo

	project *domain.Project
	user    *domain.User
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()

	database, err := db.Open(filepath.Join(s.T().TempDir(), "test.db"), "test-key")
	s.Require().NoError(err)
	s.Require().NoError(database.RunMigrations())
	s.db = database

	s.projects = repository.NewProjectRepo(database)
	s.users = repository.NewUserRepo(database)
	s.contracts = repository.NewContractRepo(database)
	s.entries = repository.NewEntryRepo(database)
	s.rates = repository.NewRateRepo(database)
	s.ledger = repository.NewLedgerRepo(database)

	s.project = domain.NewProject("acme", "Acme")
	s.Require().NoError(s.projects.Create(s.ctx, s.project))

	s.user = &domain.User{Login: "alice", Name: "Alice"}
	s.Require().NoError(s.users.Create(s.ctx, s.user))
	s.Require().NoError(s.projects.AddMember(s.ctx, s.project.ID, s.user.ID))
}

func (s *RepositorySuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *RepositorySuite) newContract(start time.Time, end *time.Time) *domain.Contract {
	last, err := s.contracts.LastProjectContractID(s.ctx, s.project.ID)
	s.Require().NoError(err)

	c := domain.NewContract(s.project.ID, start, decimal.NewFromInt(1000), decimal.NewFromInt(100))
	c.ProjectContractID = last + 1
	c.EndDate = end
	s.Require().NoError(s.contracts.Create(s.ctx, c))
	return c
}

func (s *RepositorySuite) newEntry(day time.Time, hours string) *domain.TimeEntry {
	e := domain.NewTimeEntry(s.project.ID, s.user.ID, day, decimal.RequireFromString(hours))
	s.Require().NoError(s.entries.Create(s.ctx, e))
	return e
}

func (s *RepositorySuite) TestContractRoundTrip() {
	end := domain.Date(2024, 1, 31)
	c := s.newContract(domain.Date(2024, 1, 1), &end)
	c.SeriesID = "series-1"
	c.IsFixedPrice = true
	c.RecurringFrequency = domain.Monthly
	s.Require().NoError(s.contracts.Update(s.ctx, c))

	got, err := s.contracts.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)

	s.Equal(1, got.ProjectContractID)
	s.True(got.StartDate.Equal(domain.Date(2024, 1, 1)))
	s.Require().NotNil(got.EndDate)
	s.True(got.EndDate.Equal(end))
	s.True(got.PurchaseAmount.Equal(decimal.NewFromInt(1000)))
	s.True(got.HourlyRate.Equal(decimal.NewFromInt(100)))
	s.Equal(domain.ContractRecurring, got.Type())
	s.Equal("series-1", got.SeriesID)
	s.False(got.HoursWorked.Valid)
	s.False(got.BillableAmountTotal.Valid)
}

func (s *RepositorySuite) TestGetMissingContract() {
	_, err := s.contracts.GetByID(s.ctx, 999)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositorySuite) TestCreateRejectsInvalidContract() {
	c := domain.NewContract(s.project.ID, domain.Date(2024, 1, 1), decimal.NewFromInt(-1), decimal.Zero)
	c.ProjectContractID = 1

	err := s.contracts.Create(s.ctx, c)
	s.ErrorIs(err, domain.ErrInvalid)
}

func (s *RepositorySuite) TestDuplicateProjectContractIDIsInvalid() {
	first := s.newContract(domain.Date(2024, 1, 1), nil)

	dup := domain.NewContract(s.project.ID, domain.Date(2024, 2, 1), decimal.NewFromInt(10), decimal.NewFromInt(1))
	dup.ProjectContractID = first.ProjectContractID
	err := s.contracts.Create(s.ctx, dup)
	s.ErrorIs(err, domain.ErrInvalid)

	var verrs domain.ValidationErrors
	s.Require().ErrorAs(err, &verrs)
	s.True(verrs.Has("project_contract_id"))

	dup.ProjectContractID = first.ProjectContractID + 1
	s.Require().NoError(s.contracts.Create(s.ctx, dup))

	dup.ProjectContractID = first.ProjectContractID
	err = s.contracts.Update(s.ctx, dup)
	s.ErrorIs(err, domain.ErrInvalid)
}

func (s *RepositorySuite) TestListByProjectOrder() {
	late := s.newContract(domain.Date(2024, 3, 1), nil)
	early := s.newContract(domain.Date(2024, 1, 1), nil)

	byID, err := s.contracts.ListByProject(s.ctx, s.project.ID, repository.ByID)
	s.Require().NoError(err)
	s.Require().Len(byID, 2)
	s.Equal(late.ID, byID[0].ID)

	byStart, err := s.contracts.ListByProject(s.ctx, s.project.ID, repository.ByStartDate)
	s.Require().NoError(err)
	s.Equal(early.ID, byStart[0].ID)

	last, err := s.contracts.LastProjectContractID(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Equal(2, last)
}

func (s *RepositorySuite) TestLockPinsEntriesOnce() {
	c := s.newContract(domain.Date(2024, 1, 1), nil)
	e := s.newEntry(domain.Date(2024, 1, 15), "2")

	locked, err := s.contracts.Lock(s.ctx, c.ID, []int64{e.ID})
	s.Require().NoError(err)
	s.True(locked)

	got, err := s.entries.GetByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.ContractID)
	s.Equal(c.ID, *got.ContractID)

	history, err := s.entries.GetHistory(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.ReasonLock, history[0].ChangeReason)
	s.Equal("", history[0].OldValue)

	again, err := s.contracts.Lock(s.ctx, c.ID, []int64{e.ID})
	s.Require().NoError(err)
	s.False(again, "second lock is a no-op")

	_, err = s.contracts.Lock(s.ctx, 999, nil)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositorySuite) TestCacheCompareAndSet() {
	c := s.newContract(domain.Date(2024, 1, 1), nil)

	stored, err := s.contracts.CacheHoursWorked(s.ctx, c.ID, decimal.NewFromInt(2))
	s.Require().NoError(err)
	s.False(stored, "unlocked contracts never cache")

	_, err = s.contracts.Lock(s.ctx, c.ID, nil)
	s.Require().NoError(err)

	stored, err = s.contracts.CacheHoursWorked(s.ctx, c.ID, decimal.NewFromInt(2))
	s.Require().NoError(err)
	s.True(stored)

	stored, err = s.contracts.CacheHoursWorked(s.ctx, c.ID, decimal.NewFromInt(5))
	s.Require().NoError(err)
	s.False(stored, "first value wins")

	stored, err = s.contracts.CacheBillableAmountTotal(s.ctx, c.ID, decimal.NewFromInt(200))
	s.Require().NoError(err)
	s.True(stored)

	got, err := s.contracts.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(got.HoursWorked.Valid)
	s.True(got.HoursWorked.Decimal.Equal(decimal.NewFromInt(2)))
	s.True(got.BillableAmountTotal.Decimal.Equal(decimal.NewFromInt(200)))

	unlocked, err := s.contracts.Unlock(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(unlocked)

	got, err = s.contracts.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.False(got.IsLocked)
	s.False(got.HoursWorked.Valid)
	s.False(got.BillableAmountTotal.Valid)

	unlocked, err = s.contracts.Unlock(s.ctx, c.ID)
	s.Require().NoError(err)
	s.False(unlocked)
}

func (s *RepositorySuite) TestAssignContractRespectsLocks() {
	open := s.newContract(domain.Date(2024, 1, 1), nil)
	closed := s.newContract(domain.Date(2024, 1, 1), nil)
	_, err := s.contracts.Lock(s.ctx, closed.ID, nil)
	s.Require().NoError(err)

	e := s.newEntry(domain.Date(2024, 1, 15), "1")

	changed, err := s.entries.AssignContract(s.ctx, e.ID, &closed.ID, domain.ReasonManual)
	s.Require().NoError(err)
	s.False(changed, "target is locked")

	changed, err = s.entries.AssignContract(s.ctx, e.ID, &open.ID, domain.ReasonManual)
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.entries.AssignContract(s.ctx, e.ID, &open.ID, domain.ReasonManual)
	s.Require().NoError(err)
	s.False(changed, "already there")

	changed, err = s.entries.AssignContract(s.ctx, e.ID, nil, domain.ReasonDissolve)
	s.Require().NoError(err)
	s.True(changed)

	pinned := s.newEntry(domain.Date(2024, 1, 16), "1")
	_, err = s.entries.AssignContract(s.ctx, pinned.ID, &open.ID, domain.ReasonManual)
	s.Require().NoError(err)
	_, err = s.contracts.Lock(s.ctx, open.ID, nil)
	s.Require().NoError(err)

	changed, err = s.entries.AssignContract(s.ctx, pinned.ID, nil, domain.ReasonDissolve)
	s.Require().NoError(err)
	s.False(changed, "source is locked")

	history, err := s.entries.GetHistory(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *RepositorySuite) TestEntryFilters() {
	c := s.newContract(domain.Date(2024, 1, 1), nil)
	a := s.newEntry(domain.Date(2024, 1, 10), "1")
	b := s.newEntry(domain.Date(2024, 2, 10), "2")
	_, err := s.entries.AssignContract(s.ctx, b.ID, &c.ID, domain.ReasonManual)
	s.Require().NoError(err)

	all, err := s.entries.ListByProject(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Len(all, 2)
	s.True(all[1].Hours.Equal(decimal.NewFromInt(2)))

	unassigned, err := s.entries.List(s.ctx, repository.EntryFilter{ProjectID: &s.project.ID, Unassigned: true})
	s.Require().NoError(err)
	s.Require().Len(unassigned, 1)
	s.Equal(a.ID, unassigned[0].ID)

	to := domain.Date(2024, 1, 31)
	january, err := s.entries.List(s.ctx, repository.EntryFilter{To: &to})
	s.Require().NoError(err)
	s.Require().Len(january, 1)
	s.Equal(a.ID, january[0].ID)

	byContract, err := s.entries.List(s.ctx, repository.EntryFilter{ContractID: &c.ID})
	s.Require().NoError(err)
	s.Require().Len(byContract, 1)
	s.Equal(b.ID, byContract[0].ID)
}

func (s *RepositorySuite) TestDeleteContractDetachesEntries() {
	c := s.newContract(domain.Date(2024, 1, 1), nil)
	e := s.newEntry(domain.Date(2024, 1, 10), "1")
	_, err := s.entries.AssignContract(s.ctx, e.ID, &c.ID, domain.ReasonManual)
	s.Require().NoError(err)
	s.Require().NoError(s.rates.Apply(s.ctx, c.ID, s.project.ID, map[int64]decimal.Decimal{s.user.ID: decimal.NewFromInt(80)}))
	s.Require().NoError(s.ledger.AddExpense(s.ctx, &domain.ContractsExpense{ContractID: c.ID, Date: domain.Date(2024, 1, 2), Amount: decimal.NewFromInt(50)}))

	s.Require().NoError(s.contracts.Delete(s.ctx, c.ID))

	got, err := s.entries.GetByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Nil(got.ContractID)

	rates, err := s.rates.ContractRates(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(rates)

	projectRates, err := s.rates.ProjectRates(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Len(projectRates, 1, "project defaults outlive the contract")

	s.ErrorIs(s.contracts.Delete(s.ctx, c.ID), repository.ErrNotFound)
}

func (s *RepositorySuite) TestApplyRatesUpserts() {
	c := s.newContract(domain.Date(2024, 1, 1), nil)

	s.Require().NoError(s.rates.Apply(s.ctx, c.ID, s.project.ID, map[int64]decimal.Decimal{s.user.ID: decimal.NewFromInt(80)}))
	s.Require().NoError(s.rates.Apply(s.ctx, c.ID, s.project.ID, map[int64]decimal.Decimal{s.user.ID: decimal.RequireFromString("92.5")}))

	rates, err := s.rates.ContractRates(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(rates, 1)
	s.True(rates[0].Rate.Equal(decimal.RequireFromString("92.5")))

	projectRates, err := s.rates.ProjectRates(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(projectRates, 1)
	s.True(projectRates[0].Rate.Equal(decimal.RequireFromString("92.5")))

	all, err := s.rates.ContractRatesForProject(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *RepositorySuite) TestLedger() {
	c := s.newContract(domain.Date(2024, 1, 1), nil)

	expense := &domain.ContractsExpense{ContractID: c.ID, Name: "licence", Date: domain.Date(2024, 1, 5), Amount: decimal.NewFromInt(120)}
	s.Require().NoError(s.ledger.AddExpense(s.ctx, expense))
	invoice := &domain.ContractsInvoice{ContractID: c.ID, Number: "INV-1", Date: domain.Date(2024, 1, 31), Amount: decimal.NewFromInt(500)}
	s.Require().NoError(s.ledger.AddInvoice(s.ctx, invoice))

	expenses, err := s.ledger.ExpensesForProject(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(expenses, 1)
	s.Equal("licence", expenses[0].Name)

	invoices, err := s.ledger.Invoices(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.True(invoices[0].Amount.Equal(decimal.NewFromInt(500)))

	s.Require().NoError(s.ledger.DeleteExpense(s.ctx, expense.ID))
	s.ErrorIs(s.ledger.DeleteExpense(s.ctx, expense.ID), repository.ErrNotFound)
}

func (s *RepositorySuite) TestMembersWithSubprojects() {
	child := domain.NewProject("acme-web", "Acme Web")
	child.ParentID = &s.project.ID
	s.Require().NoError(s.projects.Create(s.ctx, child))

	grandchild := domain.NewProject("acme-web-api", "Acme API")
	grandchild.ParentID = &child.ID
	s.Require().NoError(s.projects.Create(s.ctx, grandchild))

	bob := &domain.User{Login: "bob"}
	s.Require().NoError(s.users.Create(s.ctx, bob))
	s.Require().NoError(s.projects.AddMember(s.ctx, grandchild.ID, bob.ID))
	s.Require().NoError(s.projects.AddMember(s.ctx, child.ID, s.user.ID))

	direct, err := s.projects.Members(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Len(direct, 1)

	all, err := s.projects.MembersWithSubprojects(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(all, 2, "alice appears once")
	s.Equal("alice", all[0].Login)
	s.Equal("bob", all[1].Login)

	got, err := s.projects.GetByIdentifier(s.ctx, "acme-web")
	s.Require().NoError(err)
	s.Require().NotNil(got.ParentID)
	s.Equal(s.project.ID, *got.ParentID)
}
