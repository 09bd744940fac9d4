package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

const contractColumns = `
	id, project_id, project_contract_id, category_id, series_id, title, description,
	agreement_date, start_date, end_date, purchase_amount, hourly_rate, is_fixed_price,
	recurring_frequency, contract_url, invoice_url, is_locked, hours_worked,
	billable_amount_total, created_at, updated_at`

// ContractRepo is a SQLite implementation of ContractRepository
type ContractRepo struct {
	db *db.DB
}

// NewContractRepo creates a new ContractRepo
func NewContractRepo(database *db.DB) *ContractRepo {
	return &ContractRepo{db: database}
}

// Create inserts a new contract into the database
func (r *ContractRepo) Create(ctx context.Context, c *domain.Contract) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid contract: %w", err)
	}

	query := `
		INSERT INTO contracts (
			project_id, project_contract_id, category_id, series_id, title, description,
			agreement_date, start_date, end_date, purchase_amount, hourly_rate, is_fixed_price,
			recurring_frequency, contract_url, invoice_url, is_locked, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if c.RecurringFrequency == "" {
		c.RecurringFrequency = domain.NotRecurring
	}

	result, err := r.db.ExecContext(ctx, query,
		c.ProjectID,
		c.ProjectContractID,
		nullID(c.CategoryID),
		c.SeriesID,
		c.Title,
		c.Description,
		nullDate(c.AgreementDate),
		domain.FormatDate(c.StartDate),
		nullDate(c.EndDate),
		c.PurchaseAmount,
		c.HourlyRate,
		c.IsFixedPrice,
		string(c.RecurringFrequency),
		c.ContractURL,
		c.InvoiceURL,
		c.IsLocked,
		c.CreatedAt.Format(timeLayout),
		c.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if verr := uniqueViolation(err, "project_contract_id", "project_contract_id"); verr != nil {
			return fmt.Errorf("invalid contract: %w", verr)
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get contract ID: %w", err)
	}

	c.ID = id
	return nil
}

// GetByID retrieves a contract by ID
func (r *ContractRepo) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = ?`

	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("contract", err)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// Update saves the contract's terms
func (r *ContractRepo) Update(ctx context.Context, c *domain.Contract) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid contract: %w", err)
	}

	query := `
		UPDATE contracts
		SET project_contract_id = ?, category_id = ?, series_id = ?, title = ?, description = ?,
		    agreement_date = ?, start_date = ?, end_date = ?, purchase_amount = ?, hourly_rate = ?,
		    is_fixed_price = ?, recurring_frequency = ?, contract_url = ?, invoice_url = ?,
		    updated_at = ?
		WHERE id = ?
	`

	c.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		c.ProjectContractID,
		nullID(c.CategoryID),
		c.SeriesID,
		c.Title,
		c.Description,
		nullDate(c.AgreementDate),
		domain.FormatDate(c.StartDate),
		nullDate(c.EndDate),
		c.PurchaseAmount,
		c.HourlyRate,
		c.IsFixedPrice,
		string(c.RecurringFrequency),
		c.ContractURL,
		c.InvoiceURL,
		c.UpdatedAt.Format(timeLayout),
		c.ID,
	)
	if err != nil {
		if verr := uniqueViolation(err, "project_contract_id", "project_contract_id"); verr != nil {
			return fmt.Errorf("invalid contract: %w", verr)
		}
		return fmt.Errorf("failed to update contract: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound("contract", sql.ErrNoRows)
	}

	return nil
}

// Delete detaches the contract's entries, recording why, then removes the
// contract and everything hanging off it
func (r *ContractRepo) Delete(ctx context.Context, id int64) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id FROM time_entries WHERE contract_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to list contract entries: %w", err)
		}
		var entryIDs []int64
		for rows.Next() {
			var entryID int64
			if err := rows.Scan(&entryID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan entry ID: %w", err)
			}
			entryIDs = append(entryIDs, entryID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating contract entries: %w", err)
		}

		now := formatTime()
		for _, entryID := range entryIDs {
			if _, err := tx.ExecContext(ctx,
				"UPDATE time_entries SET contract_id = NULL, updated_at = ? WHERE id = ?",
				now, entryID,
			); err != nil {
				return fmt.Errorf("failed to detach entry %d: %w", entryID, err)
			}
			h := domain.NewContractChange(entryID, &id, nil, domain.ReasonDelete)
			if err := insertHistory(ctx, tx, h); err != nil {
				return err
			}
		}

		for _, table := range []string{"user_contract_rates", "contracts_expenses", "contracts_invoices"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE contract_id = ?", table), id); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete contract: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return notFound("contract", sql.ErrNoRows)
		}
		return nil
	})
}

// ListByProject returns the contracts of a project
func (r *ContractRepo) ListByProject(ctx context.Context, projectID int64, order ContractOrder) ([]*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE project_id = ?` + orderClause(order)
	return r.list(ctx, query, projectID)
}

// ListAll returns the contracts of every project
func (r *ContractRepo) ListAll(ctx context.Context, order ContractOrder) ([]*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts` + orderClause(order)
	return r.list(ctx, query)
}

func orderClause(order ContractOrder) string {
	if order == ByStartDate {
		return " ORDER BY start_date, id"
	}
	return " ORDER BY id"
}

func (r *ContractRepo) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	contracts := make([]*domain.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contracts: %w", err)
	}

	return contracts, nil
}

// LastProjectContractID returns the highest project_contract_id in use, 0 if none
func (r *ContractRepo) LastProjectContractID(ctx context.Context, projectID int64) (int, error) {
	var last int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(project_contract_id), 0) FROM contracts WHERE project_id = ?",
		projectID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to get last project contract ID: %w", err)
	}
	return last, nil
}

// Lock flips is_locked first so a concurrent second Lock finds nothing to
// do, then pins every still-unassigned entry of entryIDs to the contract
func (r *ContractRepo) Lock(ctx context.Context, id int64, entryIDs []int64) (bool, error) {
	locked := false

	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		now := formatTime()

		result, err := tx.ExecContext(ctx, `
			UPDATE contracts
			SET is_locked = 1, hours_worked = NULL, billable_amount_total = NULL, updated_at = ?
			WHERE id = ? AND is_locked = 0
		`, now, id)
		if err != nil {
			return fmt.Errorf("failed to lock contract: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return r.ensureExists(ctx, tx, id)
		}

		stmt, err := tx.PrepareContext(ctx, `
			UPDATE time_entries
			SET contract_id = ?, updated_at = ?
			WHERE id = ? AND contract_id IS NULL
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, entryID := range entryIDs {
			result, err := stmt.ExecContext(ctx, id, now, entryID)
			if err != nil {
				return fmt.Errorf("failed to pin entry %d: %w", entryID, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected for entry %d: %w", entryID, err)
			}
			if n == 0 {
				continue
			}
			if err := insertHistory(ctx, tx, domain.NewContractChange(entryID, nil, &id, domain.ReasonLock)); err != nil {
				return err
			}
		}

		locked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return locked, nil
}

// Unlock clears the lock and both cached totals in one statement
func (r *ContractRepo) Unlock(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET is_locked = 0, hours_worked = NULL, billable_amount_total = NULL, updated_at = ?
		WHERE id = ? AND is_locked = 1
	`, formatTime(), id)
	if err != nil {
		return false, fmt.Errorf("failed to unlock contract: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// CacheHoursWorked fills hours_worked if it is still empty
func (r *ContractRepo) CacheHoursWorked(ctx context.Context, id int64, hours decimal.Decimal) (bool, error) {
	return r.cacheField(ctx, "hours_worked", id, hours)
}

// CacheBillableAmountTotal fills billable_amount_total if it is still empty
func (r *ContractRepo) CacheBillableAmountTotal(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	return r.cacheField(ctx, "billable_amount_total", id, amount)
}

func (r *ContractRepo) cacheField(ctx context.Context, column string, id int64, value decimal.Decimal) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE contracts
		SET %[1]s = ?
		WHERE id = ? AND is_locked = 1 AND %[1]s IS NULL
	`, column)

	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return false, fmt.Errorf("failed to cache %s: %w", column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *ContractRepo) ensureExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var found int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM contracts WHERE id = ?", id).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("contract", err)
		}
		return fmt.Errorf("failed to get contract: %w", err)
	}
	return nil
}

// scanContract reads one row selected with contractColumns
func scanContract(row rowScanner) (*domain.Contract, error) {
	c := &domain.Contract{}
	var categoryID sql.NullInt64
	var seriesID, title, description, contractURL, invoiceURL sql.NullString
	var agreementDate, endDate sql.NullString
	var startDate, frequency, createdAt, updatedAt string

	err := row.Scan(
		&c.ID,
		&c.ProjectID,
		&c.ProjectContractID,
		&categoryID,
		&seriesID,
		&title,
		&description,
		&agreementDate,
		&startDate,
		&endDate,
		&c.PurchaseAmount,
		&c.HourlyRate,
		&c.IsFixedPrice,
		&frequency,
		&contractURL,
		&invoiceURL,
		&c.IsLocked,
		&c.HoursWorked,
		&c.BillableAmountTotal,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CategoryID = scanID(categoryID)
	c.SeriesID = seriesID.String
	c.Title = title.String
	c.Description = description.String
	c.ContractURL = contractURL.String
	c.InvoiceURL = invoiceURL.String
	c.RecurringFrequency = domain.RecurringFrequency(frequency)

	if c.StartDate, err = domain.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if c.EndDate, err = scanDate(endDate); err != nil {
		return nil, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if c.AgreementDate, err = scanDate(agreementDate); err != nil {
		return nil, fmt.Errorf("failed to parse agreement_date: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return c, nil
}
