package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ContractsExpense reduces the budget a contract can bill against
type ContractsExpense struct {
	ID          int64
	ContractID  int64
	Name        string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Validate returns an error if the expense is invalid
func (e *ContractsExpense) Validate() error {
	if e.ContractID <= 0 {
		return errors.New("contract ID is required")
	}
	if e.Date.IsZero() {
		return errors.New("expense date is required")
	}
	return nil
}

// ContractsInvoice records an amount invoiced against a contract
type ContractsInvoice struct {
	ID          int64
	ContractID  int64
	Number      string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Validate returns an error if the invoice is invalid
func (i *ContractsInvoice) Validate() error {
	if i.ContractID <= 0 {
		return errors.New("contract ID is required")
	}
	if i.Date.IsZero() {
		return errors.New("invoice date is required")
	}
	return nil
}
