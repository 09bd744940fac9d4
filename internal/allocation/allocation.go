// Package allocation decides which contract owns each time entry of a project.
//
// With smart allocation on, a contract owns the entries explicitly assigned
// to it plus, while unlocked, the unassigned entries dated inside its range.
// Contracts are resolved oldest first (ascending ID) and every claim is
// removed from the pool seen by younger contracts, so overlapping ranges
// never bill an entry twice. Locked contracts only keep their explicit
// entries. With smart allocation off, ownership is the plain contract_id.
package allocation

import (
	"sort"

	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// Allocation is the result of one allocation pass over a project.
// It is immutable once built and safe for concurrent readers.
type Allocation struct {
	contracts  []*domain.Contract
	byContract map[int64][]*domain.TimeEntry
	owner      map[int64]int64
	unassigned []*domain.TimeEntry
}

// Allocate partitions entries across contracts. Entries keep their input
// order inside each partition.
func Allocate(contracts []*domain.Contract, entries []*domain.TimeEntry, smart bool) *Allocation {
	ordered := SortByID(contracts)

	a := &Allocation{
		contracts:  ordered,
		byContract: make(map[int64][]*domain.TimeEntry, len(ordered)),
		owner:      make(map[int64]int64, len(entries)),
	}

	for _, c := range ordered {
		owned := make([]*domain.TimeEntry, 0)
		for _, e := range entries {
			if _, claimed := a.owner[e.ID]; claimed {
				continue
			}
			if !qualifies(c, e, smart) {
				continue
			}
			owned = append(owned, e)
			a.owner[e.ID] = c.ID
		}
		a.byContract[c.ID] = owned
	}

	a.unassigned = make([]*domain.TimeEntry, 0)
	for _, e := range entries {
		if _, claimed := a.owner[e.ID]; !claimed {
			a.unassigned = append(a.unassigned, e)
		}
	}

	return a
}

// qualifies applies the membership rule of contract c to entry e
func qualifies(c *domain.Contract, e *domain.TimeEntry, smart bool) bool {
	if e.AssignedTo(c.ID) {
		return true
	}
	if !smart || c.IsLocked || e.IsAssigned() {
		return false
	}
	return c.Covers(e.SpentOn)
}

// SortByID returns a copy of contracts in ascending ID order (oldest first)
func SortByID(contracts []*domain.Contract) []*domain.Contract {
	out := make([]*domain.Contract, len(contracts))
	copy(out, contracts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Contracts returns the contracts of the pass, oldest first
func (a *Allocation) Contracts() []*domain.Contract {
	return a.contracts
}

// Entries returns the entries owned by contractID
func (a *Allocation) Entries(contractID int64) []*domain.TimeEntry {
	return a.byContract[contractID]
}

// EntryIDs returns the IDs of the entries owned by contractID
func (a *Allocation) EntryIDs(contractID int64) []int64 {
	entries := a.byContract[contractID]
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// Count returns how many entries contractID owns
func (a *Allocation) Count(contractID int64) int {
	return len(a.byContract[contractID])
}

// HoursFor sums the hours owned by contractID
func (a *Allocation) HoursFor(contractID int64) decimal.Decimal {
	return SumHours(a.byContract[contractID])
}

// Unassigned returns the entries no contract claimed (the default pool)
func (a *Allocation) Unassigned() []*domain.TimeEntry {
	return a.unassigned
}

// UnassignedHours sums the hours of the default pool
func (a *Allocation) UnassignedHours() decimal.Decimal {
	return SumHours(a.unassigned)
}

// SumHours adds up the hours of entries
func SumHours(entries []*domain.TimeEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Hours)
	}
	return total
}
