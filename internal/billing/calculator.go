package billing

import (
	"sort"

	"github.com/andy/billhours/internal/allocation"
	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// Calculator computes the two totals that a locked contract caches
type Calculator interface {
	HoursSpent(entries []*domain.TimeEntry) decimal.Decimal
	BillableTotal(c *domain.Contract, entries []*domain.TimeEntry, rates *RateResolver) decimal.Decimal
}

type calculator struct{}

// NewCalculator returns the default Calculator
func NewCalculator() Calculator {
	return calculator{}
}

func (calculator) HoursSpent(entries []*domain.TimeEntry) decimal.Decimal {
	return allocation.SumHours(entries)
}

// BillableTotal sums member hours times the member's rate, per member
func (calculator) BillableTotal(c *domain.Contract, entries []*domain.TimeEntry, rates *RateResolver) decimal.Decimal {
	total := decimal.Zero
	for _, m := range HoursByUser(entries) {
		total = total.Add(m.Hours.Mul(rates.ResolveRate(c, m.UserID, ScopeContract)))
	}
	return total
}

// MemberHours is one user's share of a contract
type MemberHours struct {
	UserID int64
	Hours  decimal.Decimal
}

// HoursByUser groups hours per distinct user, ordered by user ID
func HoursByUser(entries []*domain.TimeEntry) []MemberHours {
	byUser := make(map[int64]decimal.Decimal)
	for _, e := range entries {
		byUser[e.UserID] = byUser[e.UserID].Add(e.Hours)
	}

	out := make([]MemberHours, 0, len(byUser))
	for userID, hours := range byUser {
		out = append(out, MemberHours{UserID: userID, Hours: hours})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// AmountForUser prices the hours userID logged on c
func AmountForUser(c *domain.Contract, entries []*domain.TimeEntry, userID int64, rates *RateResolver) decimal.Decimal {
	hours := decimal.Zero
	for _, e := range entries {
		if e.UserID == userID {
			hours = hours.Add(e.Hours)
		}
	}
	return hours.Mul(rates.ResolveRate(c, userID, ScopeContract))
}

// HoursPurchased is purchase_amount / hourly_rate
func HoursPurchased(c *domain.Contract) (decimal.Decimal, error) {
	if c.HourlyRate.IsZero() {
		return decimal.Zero, ErrDivisionUndefined
	}
	return c.PurchaseAmount.Div(c.HourlyRate), nil
}

// ExpensesTotal sums the expense amounts
func ExpensesTotal(expenses []*domain.ContractsExpense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// InvoicesTotal sums the invoiced amounts
func InvoicesTotal(invoices []*domain.ContractsInvoice) decimal.Decimal {
	total := decimal.Zero
	for _, i := range invoices {
		total = total.Add(i.Amount)
	}
	return total
}

// BillableLimit caps billable at the budget left after expenses
func BillableLimit(billable, purchase, expenses decimal.Decimal) decimal.Decimal {
	return decimal.Min(billable, purchase.Sub(expenses))
}

// AmountRemaining may go negative when expenses exceed the purchase
func AmountRemaining(purchase, limit, expenses decimal.Decimal) decimal.Decimal {
	return purchase.Sub(limit).Sub(expenses)
}

// HoursRemaining converts a remaining amount into hours at the contract rate
func HoursRemaining(c *domain.Contract, amountRemaining decimal.Decimal) (decimal.Decimal, error) {
	if c.HourlyRate.IsZero() {
		return decimal.Zero, ErrDivisionUndefined
	}
	return amountRemaining.Div(c.HourlyRate), nil
}

// EffectiveRate is the residual budget spread over the hours spent. Below
// one hour the residual itself is returned.
func EffectiveRate(purchase, expenses, hoursSpent decimal.Decimal) decimal.Decimal {
	if expenses.GreaterThanOrEqual(purchase) {
		return decimal.Zero
	}
	residual := purchase.Sub(expenses)
	if hoursSpent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return residual.Div(hoursSpent)
	}
	return residual
}
