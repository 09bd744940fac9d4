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

// UserRepo is a SQLite implementation of UserRepository
type UserRepo struct {
	db *db.DB
}

// NewUserRepo creates a new UserRepo
func NewUserRepo(database *db.DB) *UserRepo {
	return &UserRepo{db: database}
}

// Create inserts a new user
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO users (login, name) VALUES (?, ?)",
		strings.TrimSpace(u.Login), u.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	u.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.get(ctx, "id = ?", id)
}

// GetByLogin retrieves a user by login
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.get(ctx, "login = ?", login)
}

func (r *UserRepo) get(ctx context.Context, cond string, arg interface{}) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT id, login, name FROM users WHERE "+cond, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns every user by login
func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, login, name FROM users ORDER BY login")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var name sql.NullString
	if err := row.Scan(&u.ID, &u.Login, &name); err != nil {
		return nil, err
	}
	u.Name = name.String
	return u, nil
}

// CategoryRepo is a SQLite implementation of CategoryRepository
type CategoryRepo struct {
	db *db.DB
}

// NewCategoryRepo creates a new CategoryRepo
func NewCategoryRepo(database *db.DB) *CategoryRepo {
	return &CategoryRepo{db: database}
}

// Create inserts a new category
func (r *CategoryRepo) Create(ctx context.Context, c *domain.ContractCategory) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("invalid category: %w", domain.ValidationErrors{{Field: "name", Message: "is required"}})
	}

	result, err := r.db.ExecContext(ctx, "INSERT INTO contract_categories (name) VALUES (?)", c.Name)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}

	c.ID = id
	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*domain.ContractCategory, error) {
	c := &domain.ContractCategory{}
	err := r.db.QueryRowContext(ctx, "SELECT id, name FROM contract_categories WHERE id = ?", id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("category", err)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// List returns every category by name
func (r *CategoryRepo) List(ctx context.Context) ([]*domain.ContractCategory, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM contract_categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*domain.ContractCategory, 0)
	for rows.Next() {
		c := &domain.ContractCategory{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
