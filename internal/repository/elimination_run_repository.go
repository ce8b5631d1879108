package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/investment-engine/internal/domain"
)

const eliminationRunColumns = `id, trigger_source, success, processed_count, eliminated_count,
	notifications_created, error, started_at, finished_at`

type eliminationRunRepository struct {
	db *sqlx.DB
}

func NewEliminationRunRepository(db *sqlx.DB) EliminationRunRepository {
	return &eliminationRunRepository{db: db}
}

func (r *eliminationRunRepository) Create(ctx context.Context, run *domain.EliminationRun) error {
	query := r.db.Rebind(`
		INSERT INTO elimination_runs (` + eliminationRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Trigger,
		run.Success,
		run.ProcessedCount,
		run.EliminatedCount,
		run.NotificationsCreated,
		run.Error,
		dbTime(run.StartedAt),
		dbTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("elimination_run_repo.Create: %w", err)
	}

	return nil
}

func (r *eliminationRunRepository) Latest(ctx context.Context) (*domain.EliminationRun, error) {
	query := `SELECT ` + eliminationRunColumns + ` FROM elimination_runs ORDER BY finished_at DESC LIMIT 1`

	var run domain.EliminationRun
	if err := r.db.GetContext(ctx, &run, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("elimination_run_repo.Latest: %w", err)
	}

	return &run, nil
}

func (r *eliminationRunRepository) List(ctx context.Context, limit int) ([]*domain.EliminationRun, error) {
	query := r.db.Rebind(`SELECT ` + eliminationRunColumns + ` FROM elimination_runs ORDER BY finished_at DESC LIMIT ?`)

	var runs []*domain.EliminationRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("elimination_run_repo.List: %w", err)
	}

	return runs, nil
}
