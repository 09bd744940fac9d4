package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/domain"
)

const entryColumns = `
	id, project_id, user_id, issue_id, contract_id, spent_on, hours, comments,
	created_at, updated_at`

// EntryRepo is a SQLite implementation of TimeEntryRepository
type EntryRepo struct {
	db *db.DB
}

// NewEntryRepo creates a new EntryRepo
func NewEntryRepo(database *db.DB) *EntryRepo {
	return &EntryRepo{db: database}
}

// Create inserts a new time entry into the database
func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid time entry: %w", err)
	}

	query := `
		INSERT INTO time_entries (
			project_id, user_id, issue_id, contract_id, spent_on, hours, comments,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.ProjectID,
		entry.UserID,
		nullID(entry.IssueID),
		nullID(entry.ContractID),
		domain.FormatDate(entry.SpentOn),
		entry.Hours,
		entry.Comments,
		entry.CreatedAt.Format(timeLayout),
		entry.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get time entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByID retrieves a time entry by ID
func (r *EntryRepo) GetByID(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE id = ?`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("time entry", err)
		}
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return entry, nil
}

// Delete removes a time entry and its history
func (r *EntryRepo) Delete(ctx context.Context, id int64) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_history WHERE entry_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete entry history: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM time_entries WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete time entry: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return notFound("time entry", sql.ErrNoRows)
		}
		return nil
	})
}

// ListByProject returns every entry of the project in ID order
func (r *EntryRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.TimeEntry, error) {
	return r.List(ctx, EntryFilter{ProjectID: &projectID})
}

// List retrieves time entries with optional filters, in ID order
func (r *EntryRepo) List(ctx context.Context, filter EntryFilter) ([]*domain.TimeEntry, error) {
	var where []string
	args := make([]interface{}, 0)

	if filter.ProjectID != nil {
		where = append(where, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.ContractID != nil {
		where = append(where, "contract_id = ?")
		args = append(args, *filter.ContractID)
	}
	if filter.Unassigned {
		where = append(where, "contract_id IS NULL")
	}
	if filter.From != nil {
		where = append(where, "spent_on >= ?")
		args = append(args, domain.FormatDate(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "spent_on <= ?")
		args = append(args, domain.FormatDate(*filter.To))
	}

	query := `SELECT ` + entryColumns + ` FROM time_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}

	return entries, nil
}

// AssignContract moves the entry unless a locked contract is on either side
func (r *EntryRepo) AssignContract(ctx context.Context, entryID int64, contractID *int64, reason string) (bool, error) {
	changed := false

	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		var current sql.NullInt64
		err := tx.QueryRowContext(ctx, "SELECT contract_id FROM time_entries WHERE id = ?", entryID).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("time entry", err)
			}
			return fmt.Errorf("failed to get time entry: %w", err)
		}

		from := scanID(current)
		if sameID(from, contractID) {
			return nil
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE time_entries
			SET contract_id = ?, updated_at = ?
			WHERE id = ?
			  AND (contract_id IS NULL
			       OR contract_id IN (SELECT id FROM contracts WHERE is_locked = 0))
			  AND (? IS NULL
			       OR EXISTS (SELECT 1 FROM contracts WHERE id = ? AND is_locked = 0))
		`, nullID(contractID), formatTime(), entryID, nullID(contractID), nullID(contractID))
		if err != nil {
			return fmt.Errorf("failed to assign time entry: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return nil
		}

		if err := insertHistory(ctx, tx, domain.NewContractChange(entryID, from, contractID, reason)); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// GetHistory retrieves the audit trail for a time entry
func (r *EntryRepo) GetHistory(ctx context.Context, entryID int64) ([]*domain.EntryHistory, error) {
	query := `
		SELECT id, entry_id, field_name, old_value, new_value, change_reason, changed_at
		FROM entry_history
		WHERE entry_id = ?
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry history: %w", err)
	}
	defer rows.Close()

	history := make([]*domain.EntryHistory, 0)
	for rows.Next() {
		h := &domain.EntryHistory{}
		var oldValue, newValue, reason sql.NullString
		var changedAt string

		err := rows.Scan(
			&h.ID,
			&h.EntryID,
			&h.FieldName,
			&oldValue,
			&newValue,
			&reason,
			&changedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		h.OldValue = oldValue.String
		h.NewValue = newValue.String
		h.ChangeReason = reason.String
		if h.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, fmt.Errorf("failed to parse changed_at: %w", err)
		}

		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return history, nil
}

// insertHistory writes one audit row inside tx
func insertHistory(ctx context.Context, tx *sql.Tx, h *domain.EntryHistory) error {
	query := `
		INSERT INTO entry_history (entry_id, field_name, old_value, new_value, change_reason, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		h.EntryID,
		h.FieldName,
		h.OldValue,
		h.NewValue,
		h.ChangeReason,
		h.ChangedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to audit %s change: %w", h.FieldName, err)
	}
	return nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// scanEntry reads one row selected with entryColumns
func scanEntry(row rowScanner) (*domain.TimeEntry, error) {
	entry := &domain.TimeEntry{}
	var issueID, contractID sql.NullInt64
	var comments sql.NullString
	var spentOn, createdAt, updatedAt string

	err := row.Scan(
		&entry.ID,
		&entry.ProjectID,
		&entry.UserID,
		&issueID,
		&contractID,
		&spentOn,
		&entry.Hours,
		&comments,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.IssueID = scanID(issueID)
	entry.ContractID = scanID(contractID)
	entry.Comments = comments.String

	if entry.SpentOn, err = domain.ParseDate(spentOn); err != nil {
		return nil, fmt.Errorf("failed to parse spent_on: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return entry, nil
}
