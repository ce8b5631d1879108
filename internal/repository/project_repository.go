package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/investment-engine/internal/domain"
	customError "github.com/segyhp/investment-engine/pkg/errors"
)

type projectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := r.db.Rebind(`
		INSERT INTO projects (id, title, target_amount, raised_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		project.ID,
		project.Title,
		project.TargetAmount,
		project.RaisedAmount,
		dbTime(project.CreatedAt),
		dbTime(project.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("project_repo.Create: %w", err)
	}

	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := r.db.Rebind(`
		SELECT id, title, target_amount, raised_amount, created_at, updated_at
		FROM projects
		WHERE id = ?
	`)

	var project domain.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project_repo.GetByID: %w", customError.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("project_repo.GetByID: %w", err)
	}

	return &project, nil
}

func (r *projectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	query := `
		SELECT id, title, target_amount, raised_amount, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`

	var projects []*domain.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("project_repo.List: %w", err)
	}

	return projects, nil
}
