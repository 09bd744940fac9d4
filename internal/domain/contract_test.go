package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validContract() *domain.Contract {
	c := domain.NewContract(1, domain.Date(2024, 1, 1), decimal.NewFromInt(1000), decimal.NewFromInt(100))
	c.ProjectContractID = 1
	return c
}

func TestContractType(t *testing.T) {
	tests := []struct {
		fixed     bool
		frequency domain.RecurringFrequency
		want      domain.ContractType
	}{
		{false, domain.NotRecurring, domain.ContractHourly},
		{false, domain.Monthly, domain.ContractHourly},
		{true, domain.NotRecurring, domain.ContractFixed},
		{true, domain.Monthly, domain.ContractRecurring},
		{true, domain.Yearly, domain.ContractRecurring},
		{true, domain.Completed, domain.ContractRecurring},
	}

	for _, tt := range tests {
		c := validContract()
		c.IsFixedPrice = tt.fixed
		c.RecurringFrequency = tt.frequency
		assert.Equal(t, tt.want, c.Type(), "fixed=%v frequency=%s", tt.fixed, tt.frequency)
	}
}

func TestContractSetType(t *testing.T) {
	c := validContract()

	c.SetType(domain.ContractRecurring)
	assert.True(t, c.IsFixedPrice)
	assert.Equal(t, domain.ContractFixed, c.Type(), "frequency still not_recurring")

	c.RecurringFrequency = domain.Monthly
	assert.Equal(t, domain.ContractRecurring, c.Type())

	c.SetType(domain.ContractHourly)
	assert.False(t, c.IsFixedPrice)
	assert.Equal(t, domain.ContractHourly, c.Type())
}

func TestContractCovers(t *testing.T) {
	c := validContract()
	end := domain.Date(2024, 1, 31)
	c.EndDate = &end

	assert.False(t, c.Covers(domain.Date(2023, 12, 31)))
	assert.True(t, c.Covers(domain.Date(2024, 1, 1)))
	assert.True(t, c.Covers(domain.Date(2024, 1, 31)))
	assert.False(t, c.Covers(domain.Date(2024, 2, 1)))

	c.EndDate = nil
	assert.True(t, c.Covers(domain.Date(2030, 6, 1)), "open-ended contract")
}

func TestContractValidate(t *testing.T) {
	require.NoError(t, validContract().Validate())

	c := validContract()
	c.ProjectContractID = 1000
	c.PurchaseAmount = decimal.NewFromInt(-1)
	c.HourlyRate = decimal.NewFromInt(-5)
	before := domain.Date(2023, 1, 1)
	c.EndDate = &before

	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalid))

	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has("project_contract_id"))
	assert.True(t, verrs.Has("purchase_amount"))
	assert.True(t, verrs.Has("hourly_rate"))
	assert.True(t, verrs.Has("end_date"))
	assert.False(t, verrs.Has("start_date"))
}

func TestContractValidateMissingStart(t *testing.T) {
	c := validContract()
	c.StartDate = time.Time{}
	c.ProjectID = 0

	var verrs domain.ValidationErrors
	require.True(t, errors.As(c.Validate(), &verrs))
	assert.True(t, verrs.Has("start_date"))
	assert.True(t, verrs.Has("project_id"))
	assert.False(t, verrs.Has("end_date"), "end date is not compared against a missing start")
}

func TestContractDisplayTitle(t *testing.T) {
	c := validContract()
	c.ProjectContractID = 7

	assert.Equal(t, "acme_Contract#007", c.DisplayTitle("acme", ""))
	assert.Equal(t, "acme_Support#007", c.DisplayTitle("acme", "Support"))

	c.Title = "Q1 retainer"
	assert.Equal(t, "Q1 retainer", c.DisplayTitle("acme", "Support"))
}

func TestValidateRates(t *testing.T) {
	assert.NoError(t, domain.ValidateRates(map[int64]decimal.Decimal{
		1: decimal.NewFromInt(35),
		3: decimal.Zero,
	}))

	err := domain.ValidateRates(map[int64]decimal.Decimal{1: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestParseRate(t *testing.T) {
	rate, err := domain.ParseRate("27.50")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("27.5")))

	_, err = domain.ParseRate("abc")
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = domain.ParseRate("-3")
	assert.ErrorIs(t, err, domain.ErrInvalid)
}
