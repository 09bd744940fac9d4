package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/domain"
)

// ProjectRepo is a SQLite implementation of ProjectRepository
type ProjectRepo struct {
	db *db.DB
}

// NewProjectRepo creates a new ProjectRepo
func NewProjectRepo(database *db.DB) *ProjectRepo {
	return &ProjectRepo{db: database}
}

// Create inserts a new project into the database
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (identifier, name, parent_id, created_at)
		VALUES (?, ?, ?, ?)
	`, p.Identifier, p.Name, nullID(p.ParentID), p.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project ID: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	return r.get(ctx, "id = ?", id)
}

// GetByIdentifier retrieves a project by its identifier
func (r *ProjectRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.Project, error) {
	return r.get(ctx, "identifier = ?", identifier)
}

func (r *ProjectRepo) get(ctx context.Context, cond string, arg interface{}) (*domain.Project, error) {
	query := `SELECT id, identifier, name, parent_id, created_at FROM projects WHERE ` + cond

	p, err := scanProject(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("project", err)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List returns every project by identifier
func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, identifier, name, parent_id, created_at
		FROM projects
		ORDER BY identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// AddMember adds userID to the project; adding twice is a no-op
func (r *ProjectRepo) AddMember(ctx context.Context, projectID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)",
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
	}
	return nil
}

// Members returns the direct members of a project
func (r *ProjectRepo) Members(ctx context.Context, projectID int64) ([]*domain.User, error) {
	return r.users(ctx, `
		SELECT u.id, u.login, u.name
		FROM users u
		JOIN project_members m ON m.user_id = u.id
		WHERE m.project_id = ?
		ORDER BY u.id
	`, projectID)
}

// MembersWithSubprojects walks the project tree down from projectID
func (r *ProjectRepo) MembersWithSubprojects(ctx context.Context, projectID int64) ([]*domain.User, error) {
	return r.users(ctx, `
		WITH RECURSIVE tree(id) AS (
			SELECT id FROM projects WHERE id = ?
			UNION
			SELECT p.id FROM projects p JOIN tree t ON p.parent_id = t.id
		)
		SELECT DISTINCT u.id, u.login, u.name
		FROM users u
		JOIN project_members m ON m.user_id = u.id
		WHERE m.project_id IN (SELECT id FROM tree)
		ORDER BY u.id
	`, projectID)
}

func (r *ProjectRepo) users(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
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
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return users, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}
	var parentID sql.NullInt64
	var createdAt string

	if err := row.Scan(&p.ID, &p.Identifier, &p.Name, &parentID, &createdAt); err != nil {
		return nil, err
	}

	p.ParentID = scanID(parentID)

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return p, nil
}
