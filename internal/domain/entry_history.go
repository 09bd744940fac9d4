package domain

import (
	"strconv"
	"time"
)

// FieldContractID is the only field whose changes are audited today
const FieldContractID = "contract_id"

// Reasons recorded alongside a contract_id change
const (
	ReasonManual   = "manual"
	ReasonLock     = "lock"
	ReasonDelete   = "contract_deleted"
	ReasonDissolve = "dissociated"
)

type EntryHistory struct {
	ID           int64
	EntryID      int64
	FieldName    string
	OldValue     string
	NewValue     string
	ChangeReason string
	ChangedAt    time.Time
}

// NewContractChange records an entry moving between contracts. A nil side is
// stored as an empty string.
func NewContractChange(entryID int64, from, to *int64, reason string) *EntryHistory {
	return &EntryHistory{
		EntryID:      entryID,
		FieldName:    FieldContractID,
		OldValue:     idString(from),
		NewValue:     idString(to),
		ChangeReason: reason,
		ChangedAt:    time.Now(),
	}
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
