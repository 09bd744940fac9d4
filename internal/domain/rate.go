package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UserContractRate overrides a contract's hourly rate for one user
type UserContractRate struct {
	ID         int64
	ContractID int64
	UserID     int64
	Rate       decimal.Decimal
}

// UserProjectRate is the project-wide default rate for one user, used to
// pre-fill the rates of new contracts.
type UserProjectRate struct {
	ID        int64
	ProjectID int64
	UserID    int64
	Rate      decimal.Decimal
}

// ValidateRates rejects negative rates; map keys are user IDs
func ValidateRates(rates map[int64]decimal.Decimal) error {
	var errs ValidationErrors
	for userID, rate := range rates {
		if userID <= 0 {
			errs.add("rates", fmt.Sprintf("user %d is not a valid user", userID))
			continue
		}
		if rate.IsNegative() {
			errs.add("rates", fmt.Sprintf("rate for user %d must be greater than or equal to 0", userID))
		}
	}
	return errs.errOrNil()
}

// ParseRate parses a rate typed by a user
func ParseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ValidationErrors{{Field: "rates", Message: fmt.Sprintf("%q is not a number", s)}}
	}
	if rate.IsNegative() {
		return decimal.Zero, ValidationErrors{{Field: "rates", Message: "must be greater than or equal to 0"}}
	}
	return rate, nil
}
