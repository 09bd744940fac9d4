package billing

import (
	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// Scope selects how far ResolveRate falls back before the contract default
type Scope int

const (
	// ScopeContract consults only per-contract overrides
	ScopeContract Scope = iota
	// ScopeProject also consults the project-wide default of the user.
	// Used when pre-filling the rates of a new contract.
	ScopeProject
)

type rateKey struct {
	owner int64
	user  int64
}

// RateResolver answers rate lookups from preloaded override rows.
// It never touches storage.
type RateResolver struct {
	contract map[rateKey]decimal.Decimal
	project  map[rateKey]decimal.Decimal
}

// NewRateResolver indexes the override rows. Later rows win when a pair
// appears twice.
func NewRateResolver(contractRates []*domain.UserContractRate, projectRates []*domain.UserProjectRate) *RateResolver {
	r := &RateResolver{
		contract: make(map[rateKey]decimal.Decimal, len(contractRates)),
		project:  make(map[rateKey]decimal.Decimal, len(projectRates)),
	}
	for _, cr := range contractRates {
		r.contract[rateKey{cr.ContractID, cr.UserID}] = cr.Rate
	}
	for _, pr := range projectRates {
		r.project[rateKey{pr.ProjectID, pr.UserID}] = pr.Rate
	}
	return r
}

// ResolveRate returns the rate billed for userID under c
func (r *RateResolver) ResolveRate(c *domain.Contract, userID int64, scope Scope) decimal.Decimal {
	if rate, ok := r.contract[rateKey{c.ID, userID}]; ok {
		return rate
	}
	if scope == ScopeProject {
		if rate, ok := r.project[rateKey{c.ProjectID, userID}]; ok {
			return rate
		}
	}
	return c.HourlyRate
}

// HasOverride reports whether userID has an explicit rate on contractID
func (r *RateResolver) HasOverride(contractID, userID int64) bool {
	_, ok := r.contract[rateKey{contractID, userID}]
	return ok
}

// ProjectRate returns the project-wide default of userID, or zero
func (r *RateResolver) ProjectRate(projectID, userID int64) decimal.Decimal {
	return r.project[rateKey{projectID, userID}]
}
