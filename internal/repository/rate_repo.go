package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/domain"
	"github.com/shopspring/decimal"
)

// RateRepo is a SQLite implementation of RateRepository
type RateRepo struct {
	db *db.DB
}

// NewRateRepo creates a new RateRepo
func NewRateRepo(database *db.DB) *RateRepo {
	return &RateRepo{db: database}
}

// ContractRates returns the overrides of one contract
func (r *RateRepo) ContractRates(ctx context.Context, contractID int64) ([]*domain.UserContractRate, error) {
	return r.contractRates(ctx, `
		SELECT id, contract_id, user_id, rate
		FROM user_contract_rates
		WHERE contract_id = ?
		ORDER BY user_id
	`, contractID)
}

// ContractRatesForProject returns the overrides of every contract of a project
func (r *RateRepo) ContractRatesForProject(ctx context.Context, projectID int64) ([]*domain.UserContractRate, error) {
	return r.contractRates(ctx, `
		SELECT ucr.id, ucr.contract_id, ucr.user_id, ucr.rate
		FROM user_contract_rates ucr
		JOIN contracts c ON c.id = ucr.contract_id
		WHERE c.project_id = ?
		ORDER BY ucr.contract_id, ucr.user_id
	`, projectID)
}

func (r *RateRepo) contractRates(ctx context.Context, query string, arg int64) ([]*domain.UserContractRate, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract rates: %w", err)
	}
	defer rows.Close()

	rates := make([]*domain.UserContractRate, 0)
	for rows.Next() {
		rate := &domain.UserContractRate{}
		if err := rows.Scan(&rate.ID, &rate.ContractID, &rate.UserID, &rate.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan contract rate: %w", err)
		}
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contract rates: %w", err)
	}

	return rates, nil
}

// ProjectRates returns the per-user project defaults
func (r *RateRepo) ProjectRates(ctx context.Context, projectID int64) ([]*domain.UserProjectRate, error) {
	query := `
		SELECT id, project_id, user_id, rate
		FROM user_project_rates
		WHERE project_id = ?
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project rates: %w", err)
	}
	defer rows.Close()

	rates := make([]*domain.UserProjectRate, 0)
	for rows.Next() {
		rate := &domain.UserProjectRate{}
		if err := rows.Scan(&rate.ID, &rate.ProjectID, &rate.UserID, &rate.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan project rate: %w", err)
		}
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rates: %w", err)
	}

	return rates, nil
}

// Apply upserts the contract rate and the project default of every user
func (r *RateRepo) Apply(ctx context.Context, contractID, projectID int64, rates map[int64]decimal.Decimal) error {
	if len(rates) == 0 {
		return nil
	}

	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		contractStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO user_contract_rates (contract_id, user_id, rate)
			VALUES (?, ?, ?)
			ON CONFLICT (contract_id, user_id) DO UPDATE SET rate = excluded.rate
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer contractStmt.Close()

		projectStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO user_project_rates (project_id, user_id, rate)
			VALUES (?, ?, ?)
			ON CONFLICT (project_id, user_id) DO UPDATE SET rate = excluded.rate
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer projectStmt.Close()

		for userID, rate := range rates {
			if _, err := contractStmt.ExecContext(ctx, contractID, userID, rate); err != nil {
				return fmt.Errorf("failed to save contract rate for user %d: %w", userID, err)
			}
			if _, err := projectStmt.ExecContext(ctx, projectID, userID, rate); err != nil {
				return fmt.Errorf("failed to save project rate for user %d: %w", userID, err)
			}
		}
		return nil
	})
}
