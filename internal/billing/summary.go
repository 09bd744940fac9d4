// Package billing turns a contract's allocated entries into money and hours.
package billing

import (
	"errors"

	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrDivisionUndefined is returned when a quotient needs a zero hourly rate
var ErrDivisionUndefined = errors.New("division undefined: hourly rate is zero")

type Warning string

const (
	WarnOverBudget        Warning = "over_budget"
	WarnDivisionUndefined Warning = "division_undefined"
)

// Summary is the full billing state of one contract
type Summary struct {
	ContractID      int64
	Locked          bool
	HoursPurchased  decimal.NullDecimal
	HoursSpent      decimal.Decimal
	ExpensesTotal   decimal.Decimal
	InvoicesTotal   decimal.Decimal
	BillableTotal   decimal.Decimal
	BillableLimit   decimal.Decimal
	AmountRemaining decimal.Decimal
	Overrun         decimal.Decimal // billable cut off by the limit
	HoursRemaining  decimal.NullDecimal
	EffectiveRate   decimal.Decimal
	Warnings        []Warning
}

// HasWarning reports whether w was raised
func (s *Summary) HasWarning(w Warning) bool {
	for _, got := range s.Warnings {
		if got == w {
			return true
		}
	}
	return false
}

func (s *Summary) warn(w Warning) {
	if !s.HasWarning(w) {
		s.Warnings = append(s.Warnings, w)
	}
}

// Input is what Summarize needs once hours and billable are known
type Input struct {
	Contract      *domain.Contract
	HoursSpent    decimal.Decimal
	BillableTotal decimal.Decimal
	Expenses      []*domain.ContractsExpense
	Invoices      []*domain.ContractsInvoice
}

// Summarize derives every figure of the contract from its two base totals.
// Callers decide whether those totals are live or cached.
func Summarize(in Input) *Summary {
	c := in.Contract
	s := &Summary{
		ContractID:    c.ID,
		Locked:        c.IsLocked,
		HoursSpent:    in.HoursSpent,
		BillableTotal: in.BillableTotal,
		ExpensesTotal: ExpensesTotal(in.Expenses),
		InvoicesTotal: InvoicesTotal(in.Invoices),
	}

	if hp, err := HoursPurchased(c); err == nil {
		s.HoursPurchased = decimal.NewNullDecimal(hp)
	} else {
		s.warn(WarnDivisionUndefined)
	}

	s.BillableLimit = BillableLimit(s.BillableTotal, c.PurchaseAmount, s.ExpensesTotal)
	s.AmountRemaining = AmountRemaining(c.PurchaseAmount, s.BillableLimit, s.ExpensesTotal)
	s.Overrun = s.BillableTotal.Sub(s.BillableLimit)
	if s.Overrun.IsPositive() || s.AmountRemaining.IsNegative() {
		s.warn(WarnOverBudget)
	}

	if hr, err := HoursRemaining(c, s.AmountRemaining); err == nil {
		s.HoursRemaining = decimal.NewNullDecimal(hr)
	} else {
		s.warn(WarnDivisionUndefined)
	}

	s.EffectiveRate = EffectiveRate(c.PurchaseAmount, s.ExpensesTotal, s.HoursSpent)
	return s
}
