package domain_test

import (
	"testing"
	"time"

	"github.com/andy/billhours/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{domain.Date(2024, 1, 15), 1, domain.Date(2024, 2, 15)},
		{domain.Date(2024, 1, 31), 1, domain.Date(2024, 2, 29)},
		{domain.Date(2023, 1, 31), 1, domain.Date(2023, 2, 28)},
		{domain.Date(2024, 1, 31), 2, domain.Date(2024, 3, 31)},
		{domain.Date(2024, 11, 30), 2, domain.Date(2025, 1, 30)},
		{domain.Date(2024, 2, 29), 12, domain.Date(2025, 2, 28)},
	}

	for _, tt := range tests {
		got := domain.AddMonths(tt.from, tt.n)
		assert.True(t, got.Equal(tt.want), "%s + %d months: got %s", domain.FormatDate(tt.from), tt.n, domain.FormatDate(got))
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got := domain.DateOnly(time.Date(2024, 3, 9, 23, 30, 0, 0, loc))
	assert.Equal(t, "2024-03-09", domain.FormatDate(got))
	assert.Equal(t, time.UTC, got.Location())
}
