package billing

import (
	"sort"

	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// IssueSummary is one row of a contract's per-issue breakdown. IssueID is
// nil for entries logged without an issue.
type IssueSummary struct {
	IssueID *int64
	Hours   decimal.Decimal
	Amount  decimal.Decimal
}

// IssueSummaries groups entries by issue and prices each row with the rate
// of the user who logged it. Rows are sorted by amount, largest first.
func IssueSummaries(c *domain.Contract, entries []*domain.TimeEntry, rates *RateResolver) []IssueSummary {
	const noIssue = int64(-1)

	rows := make(map[int64]*IssueSummary)
	var order []int64
	for _, e := range entries {
		key := noIssue
		if e.IssueID != nil {
			key = *e.IssueID
		}
		row, ok := rows[key]
		if !ok {
			row = &IssueSummary{IssueID: e.IssueID}
			rows[key] = row
			order = append(order, key)
		}
		row.Hours = row.Hours.Add(e.Hours)
		row.Amount = row.Amount.Add(e.Hours.Mul(rates.ResolveRate(c, e.UserID, ScopeContract)))
	}

	out := make([]IssueSummary, 0, len(order))
	for _, key := range order {
		out = append(out, *rows[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
