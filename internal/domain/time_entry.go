package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TimeEntry struct {
	ID         int64
	ProjectID  int64
	UserID     int64
	IssueID    *int64
	ContractID *int64 // nil until assigned by hand or frozen by a lock
	SpentOn    time.Time
	Hours      decimal.Decimal
	Comments   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTimeEntry creates an unassigned time entry
func NewTimeEntry(projectID, userID int64, spentOn time.Time, hours decimal.Decimal) *TimeEntry {
	now := time.Now()
	return &TimeEntry{
		ProjectID: projectID,
		UserID:    userID,
		SpentOn:   DateOnly(spentOn),
		Hours:     hours,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAssigned returns true if the entry carries an explicit contract
func (e *TimeEntry) IsAssigned() bool {
	return e.ContractID != nil
}

// AssignedTo reports whether the entry is explicitly assigned to contractID
func (e *TimeEntry) AssignedTo(contractID int64) bool {
	return e.ContractID != nil && *e.ContractID == contractID
}

// Validate returns an error if the entry is invalid
func (e *TimeEntry) Validate() error {
	if e.ProjectID <= 0 {
		return errors.New("project ID is required")
	}
	if e.UserID <= 0 {
		return errors.New("user ID is required")
	}
	if e.SpentOn.IsZero() {
		return errors.New("spent on date is required")
	}
	if e.Hours.IsNegative() {
		return errors.New("hours cannot be negative")
	}
	return nil
}
