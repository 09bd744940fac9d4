package allocation

import (
	"time"

	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultContract is the display row for a project's unclaimed hours.
// It is never persisted.
type DefaultContract struct {
	ProjectID int64
	Hours     decimal.Decimal
	Entries   int
}

// DefaultContract returns the unclaimed pool of the pass as a display row.
// ok is false when every entry is claimed.
func (a *Allocation) DefaultContract(projectID int64) (DefaultContract, bool) {
	if len(a.unassigned) == 0 {
		return DefaultContract{}, false
	}
	return DefaultContract{
		ProjectID: projectID,
		Hours:     a.UnassignedHours(),
		Entries:   len(a.unassigned),
	}, true
}

// SingleEntryOptions tunes ContractForTimeEntry
type SingleEntryOptions struct {
	// LegacyRange bounds the range by the contract's start date on both
	// ends, the way older releases did. Only entries dated exactly on the
	// start date of a dated contract match in that mode.
	LegacyRange bool
}

// ContractForTimeEntry picks the contract a single entry belongs to: its
// explicit contract when it has one, otherwise the oldest unlocked contract
// whose range contains the entry's date. Returns nil when none matches.
func ContractForTimeEntry(entry *domain.TimeEntry, contracts []*domain.Contract, opts SingleEntryOptions) *domain.Contract {
	ordered := SortByID(contracts)

	if entry.ContractID != nil {
		for _, c := range ordered {
			if c.ID == *entry.ContractID {
				return c
			}
		}
		return nil
	}

	day := domain.DateOnly(entry.SpentOn)
	for _, c := range ordered {
		if c.IsLocked {
			continue
		}
		if inRange(c, day, opts) {
			return c
		}
	}
	return nil
}

func inRange(c *domain.Contract, day time.Time, opts SingleEntryOptions) bool {
	if !opts.LegacyRange {
		return c.Covers(day)
	}
	afterStart := !day.Before(c.StartDate)
	beforeEnd := c.EndDate == nil || !day.After(c.StartDate)
	return afterStart && beforeEnd
}
