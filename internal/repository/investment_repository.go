package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/investment-engine/internal/domain"
	customError "github.com/segyhp/investment-engine/pkg/errors"
)

const investmentColumns = `id, project_id, user_id, amount, security_deposit, status, payment_window,
	payment_due, confirmed_at, eliminated_at, elimination_reason, created_at, updated_at`

type investmentRepository struct {
	db *sqlx.DB
}

func NewInvestmentRepository(db *sqlx.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) Create(ctx context.Context, inv *domain.Investment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("investment_repo.Create: begin: %w", err)
	}
	defer tx.Rollback()

	// Reserve the pledge only if it still fits under the target.
	reserve := tx.Rebind(`
		UPDATE projects
		SET raised_amount = raised_amount + ?, updated_at = ?
		WHERE id = ? AND raised_amount + ? <= target_amount
	`)
	res, err := tx.ExecContext(ctx, reserve, inv.Amount, dbTime(inv.CreatedAt), inv.ProjectID, inv.Amount)
	if err != nil {
		return fmt.Errorf("investment_repo.Create: reserve: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM projects WHERE id = ?`), inv.ProjectID)
		if err != nil {
			return fmt.Errorf("investment_repo.Create: lookup project: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("investment_repo.Create: %w", customError.ErrProjectNotFound)
		}
		return fmt.Errorf("investment_repo.Create: %w", customError.ErrFundingTargetExceeded)
	}

	insert := tx.Rebind(`
		INSERT INTO investments (id, project_id, user_id, amount, security_deposit, status, payment_window,
			payment_due, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = tx.ExecContext(ctx, insert,
		inv.ID,
		inv.ProjectID,
		inv.UserID,
		inv.Amount,
		inv.SecurityDeposit,
		inv.Status,
		inv.PaymentWindow,
		dbTime(inv.PaymentDue),
		dbTime(inv.CreatedAt),
		dbTime(inv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("investment_repo.Create: insert: %w", err)
	}

	return tx.Commit()
}

func (r *investmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	query := r.db.Rebind(`SELECT ` + investmentColumns + ` FROM investments WHERE id = ?`)

	var inv domain.Investment
	if err := r.db.GetContext(ctx, &inv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("investment_repo.GetByID: %w", customError.ErrInvestmentNotFound)
		}
		return nil, fmt.Errorf("investment_repo.GetByID: %w", err)
	}

	return &inv, nil
}

func (r *investmentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Investment, error) {
	query := r.db.Rebind(`
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)

	var investments []*domain.Investment
	if err := r.db.SelectContext(ctx, &investments, query, userID); err != nil {
		return nil, fmt.Errorf("investment_repo.ListByUserID: %w", err)
	}

	return investments, nil
}

func (r *investmentRepository) FindPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Investment, error) {
	query := r.db.Rebind(`
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE status = ? AND payment_due < ?
		ORDER BY payment_due
	`)

	var investments []*domain.Investment
	err := r.db.SelectContext(ctx, &investments, query, domain.InvestmentStatusPending, dbTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("investment_repo.FindPendingDueBefore: %w", err)
	}

	return investments, nil
}

func (r *investmentRepository) CountPendingDueBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM investments WHERE status = ? AND payment_due < ?`)

	var count int
	if err := r.db.GetContext(ctx, &count, query, domain.InvestmentStatusPending, dbTime(cutoff)); err != nil {
		return 0, fmt.Errorf("investment_repo.CountPendingDueBefore: %w", err)
	}

	return count, nil
}

func (r *investmentRepository) Confirm(ctx context.Context, payment *domain.Payment) error {
	paidAt := dbTime(payment.PaidAt)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("investment_repo.Confirm: begin: %w", err)
	}
	defer tx.Rollback()

	if err := transition(ctx, tx, payment.InvestmentID, domain.InvestmentStatusConfirmed, `confirmed_at = ?`, paidAt); err != nil {
		return fmt.Errorf("investment_repo.Confirm: %w", err)
	}

	insert := tx.Rebind(`
		INSERT INTO payments (id, investment_id, transaction_id, method, amount, paid_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err = tx.ExecContext(ctx, insert,
		payment.ID,
		payment.InvestmentID,
		payment.TransactionID,
		payment.Method,
		payment.Amount,
		paidAt,
	)
	if err != nil {
		return fmt.Errorf("investment_repo.Confirm: insert payment: %w", err)
	}

	return tx.Commit()
}

func (r *investmentRepository) Eliminate(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	at = dbTime(at)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("investment_repo.Eliminate: begin: %w", err)
	}
	defer tx.Rollback()

	var pledge struct {
		ProjectID uuid.UUID       `db:"project_id"`
		Amount    decimal.Decimal `db:"amount"`
	}
	err = tx.GetContext(ctx, &pledge, tx.Rebind(`SELECT project_id, amount FROM investments WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("investment_repo.Eliminate: %w", customError.ErrInvestmentNotFound)
		}
		return fmt.Errorf("investment_repo.Eliminate: load: %w", err)
	}

	if err := transition(ctx, tx, id, domain.InvestmentStatusEliminated, `eliminated_at = ?, elimination_reason = ?`, at, reason); err != nil {
		return fmt.Errorf("investment_repo.Eliminate: %w", err)
	}

	release := tx.Rebind(`
		UPDATE projects
		SET raised_amount = CASE WHEN raised_amount - ? < 0 THEN 0 ELSE raised_amount - ? END,
		    updated_at = ?
		WHERE id = ?
	`)
	if _, err := tx.ExecContext(ctx, release, pledge.Amount, pledge.Amount, at, pledge.ProjectID); err != nil {
		return fmt.Errorf("investment_repo.Eliminate: release: %w", err)
	}

	return tx.Commit()
}

func (r *investmentRepository) GetPayment(ctx context.Context, investmentID uuid.UUID) (*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT id, investment_id, transaction_id, method, amount, paid_at
		FROM payments
		WHERE investment_id = ?
	`)

	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, investmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("investment_repo.GetPayment: %w", err)
	}

	return &payment, nil
}

// transition is the check-and-set every status change goes through: the
// update only applies while the row is still pending. args[0] must be the
// transition time; it is also written to updated_at.
func transition(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, to domain.InvestmentStatus, set string, args ...interface{}) error {
	query := tx.Rebind(`
		UPDATE investments
		SET status = ?, ` + set + `, updated_at = ?
		WHERE id = ? AND status = ?
	`)

	params := make([]interface{}, 0, len(args)+4)
	params = append(params, to)
	params = append(params, args...)
	params = append(params, args[0], id, domain.InvestmentStatusPending)

	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return customError.ErrInvalidStateTransition
	}
	return nil
}
