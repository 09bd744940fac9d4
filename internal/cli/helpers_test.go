package cli

import (
	"testing"
	"time"

	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"today", "2024-03-01"},
		{"yesterday", "2024-02-29"},
		{"2023-12-31", "2023-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.FormatDate(got))
		})
	}

	_, err := parseDate("03/01/2024", now)
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1,2", "7", ",9,"}, "entry")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 7, 9}, ids)

	_, err = parseIDs([]string{"1,x"}, "entry")
	assert.EqualError(t, err, `invalid entry ID: "x"`)

	_, err = parseIDs([]string{"0"}, "entry")
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"999.5", "999.50"},
		{"1000", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"-2500", "-2,500.00"},
		{"-0.001", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "n/a", formatOptional(decimal.NullDecimal{}, formatHours))
	assert.Equal(t, "12.50", formatOptional(decimal.NewNullDecimal(decimal.RequireFromString("12.5")), formatHours))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a long...", truncate("a long description", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestMatchProjects(t *testing.T) {
	projects := []*domain.Project{
		{ID: 1, Identifier: "acme", Name: "Acme Corp"},
		{ID: 2, Identifier: "acme-web", Name: "Acme Website"},
		{ID: 3, Identifier: "globex", Name: "Globex"},
	}

	assert.Len(t, matchProjects(projects, ""), 3)

	matched := matchProjects(projects, "acme*")
	require.Len(t, matched, 2)
	assert.Equal(t, int64(1), matched[0].ID)
	assert.Equal(t, int64(2), matched[1].ID)

	matched = matchProjects(projects, "*Website")
	require.Len(t, matched, 1)
	assert.Equal(t, "acme-web", matched[0].Identifier)

	assert.Empty(t, matchProjects(projects, "initech"))
}

func TestDescribeWarnings(t *testing.T) {
	got := describeWarnings([]billing.Warning{billing.WarnOverBudget, billing.WarnDivisionUndefined})
	assert.Equal(t, []string{
		"billable hours exceed the budget",
		"hourly rate is 0, hours purchased is undefined",
	}, got)

	assert.Empty(t, describeWarnings(nil))
}
