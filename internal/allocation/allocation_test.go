package allocation_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/andy/billhours/internal/allocation"
	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(day int) time.Time { return domain.Date(2024, time.January, day) }
func feb(day int) time.Time { return domain.Date(2024, time.February, day) }

func contract(id int64, start time.Time, end *time.Time) *domain.Contract {
	c := domain.NewContract(1, start, decimal.NewFromInt(1000), decimal.NewFromInt(100))
	c.ID = id
	c.ProjectContractID = int(id)
	c.EndDate = end
	return c
}

func entry(id int64, day time.Time, hours int64) *domain.TimeEntry {
	e := domain.NewTimeEntry(1, 1, day, decimal.NewFromInt(hours))
	e.ID = id
	return e
}

func assigned(e *domain.TimeEntry, contractID int64) *domain.TimeEntry {
	e.ContractID = &contractID
	return e
}

func ptr(t time.Time) *time.Time { return &t }

func ids(entries []*domain.TimeEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestAllocate_Scenario(t *testing.T) {
	// GIVEN: C1 covers January, one entry in January and one in February
	c1 := contract(1, jan(1), ptr(jan(31)))
	entries := []*domain.TimeEntry{entry(10, jan(15), 2), entry(11, feb(5), 1)}

	a := allocation.Allocate([]*domain.Contract{c1}, entries, true)

	assert.Equal(t, []int64{10}, a.EntryIDs(1))
	assert.True(t, a.HoursFor(1).Equal(decimal.NewFromInt(2)))
	assert.Equal(t, []int64{11}, ids(a.Unassigned()))

	def, ok := a.DefaultContract(1)
	require.True(t, ok)
	assert.True(t, def.Hours.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 1, def.Entries)
}

func TestAllocate_OldestWins(t *testing.T) {
	a1 := contract(1, jan(1), ptr(jan(31)))
	b2 := contract(2, jan(10), nil)
	e := entry(10, jan(15), 3)

	// Input order must not matter, only IDs
	a := allocation.Allocate([]*domain.Contract{b2, a1}, []*domain.TimeEntry{e}, true)

	require.Len(t, a.Entries(1), 1)
	assert.Equal(t, int64(10), a.Entries(1)[0].ID)
	assert.Empty(t, a.Entries(2))
}

func TestAllocate_ExplicitAssignmentBeatsOlderRange(t *testing.T) {
	a1 := contract(1, jan(1), ptr(jan(31)))
	b2 := contract(2, jan(1), ptr(jan(31)))
	e := assigned(entry(10, jan(15), 3), 2)

	a := allocation.Allocate([]*domain.Contract{a1, b2}, []*domain.TimeEntry{e}, true)

	assert.Empty(t, a.Entries(1))
	assert.Equal(t, []int64{10}, a.EntryIDs(2))
}

func TestAllocate_LockedContractOnlyKeepsExplicitEntries(t *testing.T) {
	c1 := contract(1, jan(1), ptr(jan(31)))
	c1.IsLocked = true
	c2 := contract(2, jan(1), nil)

	entries := []*domain.TimeEntry{
		assigned(entry(10, jan(15), 2), 1),
		entry(11, jan(20), 3), // falls in C1's range but C1 is locked
	}

	a := allocation.Allocate([]*domain.Contract{c1, c2}, entries, true)

	assert.Equal(t, []int64{10}, a.EntryIDs(1))
	assert.Equal(t, []int64{11}, a.EntryIDs(2), "next unlocked contract picks it up")
}

func TestAllocate_LockFreezesMembership(t *testing.T) {
	c1 := contract(1, jan(1), ptr(jan(31)))
	entries := []*domain.TimeEntry{entry(10, jan(15), 2)}

	before := allocation.Allocate([]*domain.Contract{c1}, entries, true)
	require.Equal(t, []int64{10}, before.EntryIDs(1))

	// Locking persists the smart assignments, then flips the flag
	for _, e := range before.Entries(1) {
		assigned(e, 1)
	}
	c1.IsLocked = true

	entries = append(entries, entry(11, jan(20), 3))
	after := allocation.Allocate([]*domain.Contract{c1}, entries, true)

	assert.Equal(t, []int64{10}, after.EntryIDs(1))
	assert.True(t, after.HoursFor(1).Equal(decimal.NewFromInt(2)))
	assert.Equal(t, []int64{11}, ids(after.Unassigned()))
}

func TestAllocate_SmartDisabledIsPlainForeignKey(t *testing.T) {
	c1 := contract(1, jan(1), ptr(jan(31)))
	c2 := contract(2, jan(1), nil)
	entries := []*domain.TimeEntry{
		entry(10, jan(15), 2),
		assigned(entry(11, jan(16), 1), 2),
	}

	a := allocation.Allocate([]*domain.Contract{c1, c2}, entries, false)

	assert.Empty(t, a.Entries(1))
	assert.Equal(t, []int64{11}, a.EntryIDs(2))
	assert.Equal(t, []int64{10}, ids(a.Unassigned()))
}

func TestAllocate_EntryAssignedToUnknownContractStaysUnassigned(t *testing.T) {
	c1 := contract(1, jan(1), nil)
	e := assigned(entry(10, jan(15), 2), 99)

	a := allocation.Allocate([]*domain.Contract{c1}, []*domain.TimeEntry{e}, true)

	assert.Empty(t, a.Entries(1))
	assert.Len(t, a.Unassigned(), 1)

	_, ok := a.DefaultContract(1)
	assert.True(t, ok)
}

func TestAllocate_NoDefaultContractWhenEverythingIsClaimed(t *testing.T) {
	c1 := contract(1, jan(1), nil)
	a := allocation.Allocate([]*domain.Contract{c1}, []*domain.TimeEntry{entry(10, jan(2), 1)}, true)

	_, ok := a.DefaultContract(1)
	assert.False(t, ok)
	assert.True(t, a.UnassignedHours().IsZero())
}

func TestAllocate_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		var contracts []*domain.Contract
		nContracts := rng.Intn(6) + 1
		for i := 0; i < nContracts; i++ {
			start := jan(1).AddDate(0, 0, rng.Intn(60))
			var end *time.Time
			if rng.Intn(3) > 0 {
				end = ptr(start.AddDate(0, 0, rng.Intn(40)))
			}
			c := contract(int64(i+1), start, end)
			c.IsLocked = rng.Intn(4) == 0
			contracts = append(contracts, c)
		}
		rng.Shuffle(len(contracts), func(i, j int) { contracts[i], contracts[j] = contracts[j], contracts[i] })

		var entries []*domain.TimeEntry
		nEntries := rng.Intn(30)
		for i := 0; i < nEntries; i++ {
			e := entry(int64(100+i), jan(1).AddDate(0, 0, rng.Intn(100)), int64(rng.Intn(8)))
			if rng.Intn(3) == 0 {
				assigned(e, int64(rng.Intn(nContracts+2))) // sometimes an unknown contract
			}
			entries = append(entries, e)
		}

		for _, smart := range []bool{true, false} {
			a := allocation.Allocate(contracts, entries, smart)

			require.Len(t, a.Contracts(), nContracts)
			for i := 1; i < nContracts; i++ {
				require.Less(t, a.Contracts()[i-1].ID, a.Contracts()[i].ID)
			}

			seen := make(map[int64]int)
			for _, c := range a.Contracts() {
				for _, e := range a.Entries(c.ID) {
					seen[e.ID]++
				}
			}
			for _, e := range a.Unassigned() {
				seen[e.ID]++
			}

			require.Len(t, seen, len(entries), "round %d smart=%v: union must cover every entry", round, smart)
			for id, n := range seen {
				require.Equal(t, 1, n, "round %d smart=%v: entry %d claimed %d times", round, smart, id, n)
			}
		}
	}
}

func TestContractForTimeEntry(t *testing.T) {
	c1 := contract(1, jan(1), ptr(jan(31)))
	c2 := contract(2, jan(1), nil)
	c3 := contract(3, feb(1), ptr(feb(28)))
	contracts := []*domain.Contract{c3, c2, c1}

	t.Run("explicit contract wins", func(t *testing.T) {
		e := assigned(entry(10, feb(10), 1), 3)
		got := allocation.ContractForTimeEntry(e, contracts, allocation.SingleEntryOptions{})
		require.NotNil(t, got)
		assert.Equal(t, int64(3), got.ID)
	})

	t.Run("oldest covering contract", func(t *testing.T) {
		got := allocation.ContractForTimeEntry(entry(10, jan(15), 1), contracts, allocation.SingleEntryOptions{})
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.ID)
	})

	t.Run("skips locked contracts", func(t *testing.T) {
		locked := *c1
		locked.IsLocked = true
		got := allocation.ContractForTimeEntry(entry(10, jan(15), 1), []*domain.Contract{&locked, c2}, allocation.SingleEntryOptions{})
		require.NotNil(t, got)
		assert.Equal(t, int64(2), got.ID)
	})

	t.Run("end date bounds the range", func(t *testing.T) {
		got := allocation.ContractForTimeEntry(entry(10, feb(10), 1), []*domain.Contract{c1, c3}, allocation.SingleEntryOptions{})
		require.NotNil(t, got)
		assert.Equal(t, int64(3), got.ID)
	})

	t.Run("no match", func(t *testing.T) {
		got := allocation.ContractForTimeEntry(entry(10, domain.Date(2023, 6, 1), 1), contracts, allocation.SingleEntryOptions{})
		assert.Nil(t, got)
	})

	t.Run("unknown explicit contract", func(t *testing.T) {
		got := allocation.ContractForTimeEntry(assigned(entry(10, jan(5), 1), 42), contracts, allocation.SingleEntryOptions{})
		assert.Nil(t, got)
	})

	t.Run("legacy range compares against the start date", func(t *testing.T) {
		legacy := allocation.SingleEntryOptions{LegacyRange: true}

		got := allocation.ContractForTimeEntry(entry(10, jan(15), 1), []*domain.Contract{c1}, legacy)
		assert.Nil(t, got, "mid-range entries do not match a dated contract")

		got = allocation.ContractForTimeEntry(entry(10, jan(1), 1), []*domain.Contract{c1}, legacy)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.ID)

		got = allocation.ContractForTimeEntry(entry(10, jan(15), 1), []*domain.Contract{c2}, legacy)
		require.NotNil(t, got, "open-ended contracts are unaffected")
	})
}
