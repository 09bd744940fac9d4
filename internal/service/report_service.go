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
	"github.com/shopspring/decimal"
)

// ContractRow is one line of an overview
type ContractRow struct {
	Contract          *domain.Contract
	ProjectIdentifier string
	Title             string
	Summary           *billing.Summary
}

// OverviewTotals aggregates every contract of the overview, visible or not
type OverviewTotals struct {
	Purchased             decimal.Decimal
	FixedPurchased        decimal.Decimal
	HourlyPurchased       decimal.Decimal
	HourlyHoursPurchased  decimal.Decimal
	HourlyAmountRemaining decimal.Decimal
	HourlyHoursRemaining  decimal.Decimal
	// Warnings carries division_undefined when a zero-rate hourly
	// contract was left out of the hour sums
	Warnings []billing.Warning
}

// Overview lists the contracts of one or more projects
type Overview struct {
	Projects  []*domain.Project
	Contracts []ContractRow
	// ShowTabs is set when both fixed and hourly contracts exist
	ShowTabs bool
	// ShowFixed is set when Contracts holds the fixed contracts
	ShowFixed    bool
	HiddenLocked int
	Defaults     []allocation.DefaultContract
	Totals       OverviewTotals
}

// OverviewOptions tunes an overview
type OverviewOptions struct {
	FixedTab bool
	// ShowLocked overrides Options.ShowLockedContracts when set
	ShowLocked *bool
}

// EntryPage is one page of a project's unclaimed entries
type EntryPage struct {
	Entries []*domain.TimeEntry
	Page    int
	PerPage int
	Total   int
	Pages   int
	Hours   decimal.Decimal
}

// ReportService builds the read-only views over contracts
type ReportService interface {
	ProjectOverview(ctx context.Context, projectID int64, opts OverviewOptions) (*Overview, error)
	AllProjects(ctx context.Context, opts OverviewOptions) (*Overview, error)
	// DefaultEntries pages through the entries no contract claims
	DefaultEntries(ctx context.Context, projectID int64, page, perPage int) (*EntryPage, error)
}

type reportService struct {
	*engine
}

// NewReportService creates a new report service
func NewReportService(repos Repos, opts Options) ReportService {
	return &reportService{engine: newEngine(repos, opts, "reports")}
}

func (s *reportService) ProjectOverview(ctx context.Context, projectID int64, opts OverviewOptions) (*Overview, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.overview(ctx, []*domain.Project{project}, opts)
}

func (s *reportService) AllProjects(ctx context.Context, opts OverviewOptions) (*Overview, error) {
	projects, err := s.repos.Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.overview(ctx, projects, opts)
}

func (s *reportService) overview(ctx context.Context, projects []*domain.Project, opts OverviewOptions) (*Overview, error) {
	categories, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	out := &Overview{Projects: projects}
	var fixed, hourly []ContractRow

	for _, p := range projects {
		snap, err := loadSnapshot(ctx, s.repos, p.ID, s.opts.SmartTimeEntries)
		if err != nil {
			return nil, err
		}

		contracts := append([]*domain.Contract(nil), snap.contracts...)
		sort.SliceStable(contracts, func(i, j int) bool {
			if !contracts[i].StartDate.Equal(contracts[j].StartDate) {
				return contracts[i].StartDate.Before(contracts[j].StartDate)
			}
			return contracts[i].ID < contracts[j].ID
		})

		for _, c := range contracts {
			// invoices are not part of the overview figures
			summary, err := s.summarize(ctx, snap, c, nil)
			if err != nil {
				return nil, err
			}

			category := ""
			if c.CategoryID != nil {
				category = categories[*c.CategoryID]
			}

			row := ContractRow{
				Contract:          c,
				ProjectIdentifier: p.Identifier,
				Title:             c.DisplayTitle(p.Identifier, category),
				Summary:           summary,
			}
			if c.IsFixedPrice {
				fixed = append(fixed, row)
			} else {
				hourly = append(hourly, row)
			}
		}

		if d, ok := snap.allocation().DefaultContract(p.ID); ok {
			out.Defaults = append(out.Defaults, d)
		}
	}

	out.ShowTabs = len(fixed) > 0 && len(hourly) > 0
	out.ShowFixed = (len(fixed) > 0 && len(hourly) == 0) || opts.FixedTab
	out.Totals = totals(fixed, hourly)

	rows := hourly
	if out.ShowFixed {
		rows = fixed
	}

	showLocked := s.opts.ShowLockedContracts
	if opts.ShowLocked != nil {
		showLocked = *opts.ShowLocked
	}

	out.Contracts = make([]ContractRow, 0, len(rows))
	for _, row := range rows {
		if row.Contract.IsLocked && !showLocked {
			out.HiddenLocked++
			continue
		}
		out.Contracts = append(out.Contracts, row)
	}

	return out, nil
}

func totals(fixed, hourly []ContractRow) OverviewTotals {
	var t OverviewTotals
	undefined := false

	for _, row := range fixed {
		t.FixedPurchased = t.FixedPurchased.Add(row.Contract.PurchaseAmount)
	}
	for _, row := range hourly {
		t.HourlyPurchased = t.HourlyPurchased.Add(row.Contract.PurchaseAmount)
		t.HourlyAmountRemaining = t.HourlyAmountRemaining.Add(row.Summary.AmountRemaining)

		if row.Summary.HoursPurchased.Valid {
			t.HourlyHoursPurchased = t.HourlyHoursPurchased.Add(row.Summary.HoursPurchased.Decimal)
		} else {
			undefined = true
		}
		if row.Summary.HoursRemaining.Valid {
			t.HourlyHoursRemaining = t.HourlyHoursRemaining.Add(row.Summary.HoursRemaining.Decimal)
		}
	}
	t.Purchased = t.FixedPurchased.Add(t.HourlyPurchased)

	if undefined {
		t.Warnings = append(t.Warnings, billing.WarnDivisionUndefined)
	}
	return t
}

func (s *reportService) DefaultEntries(ctx context.Context, projectID int64, page, perPage int) (*EntryPage, error) {
	if _, err := s.getProject(ctx, projectID); err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(ctx, s.repos, projectID, s.opts.SmartTimeEntries)
	if err != nil {
		return nil, err
	}

	if perPage <= 0 {
		perPage = 25
	}
	if page < 1 {
		page = 1
	}

	pool := snap.allocation().Unassigned()
	result := &EntryPage{
		Page:    page,
		PerPage: perPage,
		Total:   len(pool),
		Pages:   len(pool) / perPage,
		Hours:   allocation.SumHours(pool),
	}
	if len(pool)%perPage != 0 {
		result.Pages++
	}

	// compare page numbers, not offsets, so a huge page cannot overflow
	if page > result.Pages {
		result.Entries = make([]*domain.TimeEntry, 0)
		return result, nil
	}
	start := (page - 1) * perPage
	end := len(pool)
	if perPage < end-start {
		end = start + perPage
	}
	result.Entries = pool[start:end]
	return result, nil
}

func (s *reportService) getProject(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := s.repos.Projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

func (s *reportService) categoryNames(ctx context.Context) (map[int64]string, error) {
	categories, err := s.repos.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}
