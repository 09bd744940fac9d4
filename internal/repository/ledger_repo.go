package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/domain"
)

// LedgerRepo is a SQLite implementation of LedgerRepository
type LedgerRepo struct {
	db *db.DB
}

// NewLedgerRepo creates a new LedgerRepo
func NewLedgerRepo(database *db.DB) *LedgerRepo {
	return &LedgerRepo{db: database}
}

// AddExpense inserts a new expense
func (r *LedgerRepo) AddExpense(ctx context.Context, e *domain.ContractsExpense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid expense: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts_expenses (contract_id, name, expense_date, amount, description)
		VALUES (?, ?, ?, ?, ?)
	`, e.ContractID, e.Name, domain.FormatDate(e.Date), e.Amount, e.Description)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get expense ID: %w", err)
	}

	e.ID = id
	return nil
}

// DeleteExpense removes an expense
func (r *LedgerRepo) DeleteExpense(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, "contracts_expenses", "expense", id)
}

// Expenses returns the expenses of a contract by date
func (r *LedgerRepo) Expenses(ctx context.Context, contractID int64) ([]*domain.ContractsExpense, error) {
	return r.expenses(ctx, `
		SELECT id, contract_id, name, expense_date, amount, description
		FROM contracts_expenses
		WHERE contract_id = ?
		ORDER BY expense_date, id
	`, contractID)
}

// ExpensesForProject returns the expenses of every contract of a project
func (r *LedgerRepo) ExpensesForProject(ctx context.Context, projectID int64) ([]*domain.ContractsExpense, error) {
	return r.expenses(ctx, `
		SELECT e.id, e.contract_id, e.name, e.expense_date, e.amount, e.description
		FROM contracts_expenses e
		JOIN contracts c ON c.id = e.contract_id
		WHERE c.project_id = ?
		ORDER BY e.contract_id, e.expense_date, e.id
	`, projectID)
}

func (r *LedgerRepo) expenses(ctx context.Context, query string, arg int64) ([]*domain.ContractsExpense, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*domain.ContractsExpense, 0)
	for rows.Next() {
		e := &domain.ContractsExpense{}
		var name, description sql.NullString
		var date string

		if err := rows.Scan(&e.ID, &e.ContractID, &name, &date, &e.Amount, &description); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		e.Name = name.String
		e.Description = description.String
		if e.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("failed to parse expense_date: %w", err)
		}

		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// AddInvoice inserts a new invoice
func (r *LedgerRepo) AddInvoice(ctx context.Context, i *domain.ContractsInvoice) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts_invoices (contract_id, invoice_number, invoice_date, amount, description)
		VALUES (?, ?, ?, ?, ?)
	`, i.ContractID, i.Number, domain.FormatDate(i.Date), i.Amount, i.Description)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice ID: %w", err)
	}

	i.ID = id
	return nil
}

// DeleteInvoice removes an invoice
func (r *LedgerRepo) DeleteInvoice(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, "contracts_invoices", "invoice", id)
}

// Invoices returns the invoices of a contract by date
func (r *LedgerRepo) Invoices(ctx context.Context, contractID int64) ([]*domain.ContractsInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contract_id, invoice_number, invoice_date, amount, description
		FROM contracts_invoices
		WHERE contract_id = ?
		ORDER BY invoice_date, id
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.ContractsInvoice, 0)
	for rows.Next() {
		i := &domain.ContractsInvoice{}
		var number, description sql.NullString
		var date string

		if err := rows.Scan(&i.ID, &i.ContractID, &number, &date, &i.Amount, &description); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		i.Number = number.String
		i.Description = description.String
		if i.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("failed to parse invoice_date: %w", err)
		}

		invoices = append(invoices, i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

func (r *LedgerRepo) deleteRow(ctx context.Context, table, what string, id int64) error {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound(what, sql.ErrNoRows)
	}
	return nil
}
