package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RecurringFrequency string

const (
	NotRecurring RecurringFrequency = "not_recurring"
	Monthly      RecurringFrequency = "monthly"
	Yearly       RecurringFrequency = "yearly"
	Completed    RecurringFrequency = "completed"
)

// Valid reports whether f is one of the known frequencies
func (f RecurringFrequency) Valid() bool {
	switch f {
	case NotRecurring, Monthly, Yearly, Completed:
		return true
	}
	return false
}

type ContractType string

const (
	ContractHourly    ContractType = "hourly"
	ContractFixed     ContractType = "fixed"
	ContractRecurring ContractType = "recurring"
)

const (
	MinProjectContractID = 1
	MaxProjectContractID = 999
)

type Contract struct {
	ID                 int64
	ProjectID          int64
	ProjectContractID  int
	CategoryID         *int64
	SeriesID           string
	Title              string
	Description        string
	AgreementDate      *time.Time
	StartDate          time.Time
	EndDate            *time.Time
	PurchaseAmount     decimal.Decimal
	HourlyRate         decimal.Decimal
	IsFixedPrice       bool
	RecurringFrequency RecurringFrequency
	ContractURL        string
	InvoiceURL         string
	IsLocked           bool

	// Cached totals, only meaningful while IsLocked is set
	HoursWorked         decimal.NullDecimal
	BillableAmountTotal decimal.NullDecimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewContract creates an unlocked, non-recurring hourly contract
func NewContract(projectID int64, start time.Time, purchaseAmount, hourlyRate decimal.Decimal) *Contract {
	now := time.Now()
	return &Contract{
		ProjectID:          projectID,
		StartDate:          DateOnly(start),
		PurchaseAmount:     purchaseAmount,
		HourlyRate:         hourlyRate,
		RecurringFrequency: NotRecurring,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Type derives the contract type; it is never stored
func (c *Contract) Type() ContractType {
	if !c.IsFixedPrice {
		return ContractHourly
	}
	if c.RecurringFrequency == NotRecurring || c.RecurringFrequency == "" {
		return ContractFixed
	}
	return ContractRecurring
}

// SetType only toggles IsFixedPrice. The recurring frequency is chosen
// separately, so setting "recurring" on a not_recurring contract reads back
// as fixed until a frequency is picked.
func (c *Contract) SetType(t ContractType) {
	switch t {
	case ContractHourly:
		c.IsFixedPrice = false
	case ContractFixed, ContractRecurring:
		c.IsFixedPrice = true
	}
}

// Covers reports whether day falls within the contract's date range
func (c *Contract) Covers(day time.Time) bool {
	day = DateOnly(day)
	if day.Before(c.StartDate) {
		return false
	}
	return c.EndDate == nil || !day.After(*c.EndDate)
}

// DisplayTitle returns the title, or a generated label such as "acme_Support#007"
func (c *Contract) DisplayTitle(projectIdentifier, categoryName string) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	if categoryName == "" {
		categoryName = "Contract"
	}
	return fmt.Sprintf("%s_%s#%03d", projectIdentifier, categoryName, c.ProjectContractID)
}

// Validate returns every field failure of the contract
func (c *Contract) Validate() error {
	var errs ValidationErrors

	if c.ProjectID <= 0 {
		errs.add("project_id", "is required")
	}
	if c.StartDate.IsZero() {
		errs.add("start_date", "is required")
	}
	if c.ProjectContractID < MinProjectContractID || c.ProjectContractID > MaxProjectContractID {
		errs.add("project_contract_id", fmt.Sprintf("must be between %d and %d", MinProjectContractID, MaxProjectContractID))
	}
	if c.PurchaseAmount.IsNegative() {
		errs.add("purchase_amount", "must be greater than or equal to 0")
	}
	if c.HourlyRate.IsNegative() {
		errs.add("hourly_rate", "must be greater than or equal to 0")
	}
	if c.EndDate != nil && !c.StartDate.IsZero() && c.EndDate.Before(c.StartDate) {
		errs.add("end_date", "must be after the start date")
	}
	if c.RecurringFrequency != "" && !c.RecurringFrequency.Valid() {
		errs.add("recurring_frequency", "is not a known frequency")
	}

	return errs.errOrNil()
}
