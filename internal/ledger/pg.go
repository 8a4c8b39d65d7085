package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"abode/internal/httpkit"
	"abode/internal/pkg/errors"
)

// PG implements Ledger on PostgreSQL. The balance check and decrement are
// a single conditional UPDATE, so concurrent reservations against one
// account serialize on the row and cannot both succeed past the balance.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (l *PG) Reserve(ctx context.Context, orgID string, amount int, jobID string) error {
	if amount <= 0 {
		return errors.Validationf("reserve amount must be positive, got %d", amount)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "ledger.reserve", "begin transaction failed")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE credit_accounts SET balance = balance - $2
		 WHERE org_id = $1 AND balance >= $2`,
		orgID, amount,
	)
	if err != nil {
		return errors.Wrap(err, "ledger.reserve", "balance update failed")
	}
	if tag.RowsAffected() == 0 {
		var balance int
		err := tx.QueryRow(ctx,
			`SELECT balance FROM credit_accounts WHERE org_id = $1`, orgID,
		).Scan(&balance)
		if err == pgx.ErrNoRows {
			return errors.NotFound("credit account", orgID)
		}
		if err != nil {
			return errors.Wrap(err, "ledger.reserve", "balance lookup failed")
		}
		return errors.InsufficientCredits(amount, balance)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_entries (id, org_id, job_id, entry_type, amount)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), orgID, jobID, EntryReserve, -amount,
	)
	if err != nil {
		return errors.Wrap(err, "ledger.reserve", "entry insert failed")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "ledger.reserve", "commit failed")
	}
	return nil
}

func (l *PG) Refund(ctx context.Context, orgID string, amount int, jobID string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "ledger.refund", "begin transaction failed")
	}
	defer tx.Rollback(ctx)

	// Idempotence is enforced by the unique constraint on
	// (job_id, entry_type) in the transaction log, not in memory.
	_, err = tx.Exec(ctx,
		`INSERT INTO credit_entries (id, org_id, job_id, entry_type, amount)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), orgID, jobID, EntryRefund, amount,
	)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return nil
		}
		return errors.Wrap(err, "ledger.refund", "entry insert failed")
	}

	_, err = tx.Exec(ctx,
		`UPDATE credit_accounts SET balance = balance + $2 WHERE org_id = $1`,
		orgID, amount,
	)
	if err != nil {
		return errors.Wrap(err, "ledger.refund", "balance update failed")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "ledger.refund", "commit failed")
	}
	return nil
}

func (l *PG) Balance(ctx context.Context, orgID string) (int, error) {
	var balance int
	err := l.pool.QueryRow(ctx,
		`SELECT balance FROM credit_accounts WHERE org_id = $1`, orgID,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, errors.NotFound("credit account", orgID)
	}
	if err != nil {
		return 0, errors.Wrap(err, "ledger.balance", "balance lookup failed")
	}
	return balance, nil
}

func (l *PG) Deposit(ctx context.Context, orgID string, amount int) error {
	if amount <= 0 {
		return errors.Validationf("deposit amount must be positive, got %d", amount)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "ledger.deposit", "begin transaction failed")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_accounts (org_id, balance) VALUES ($1, $2)
		 ON CONFLICT (org_id) DO UPDATE SET balance = credit_accounts.balance + $2`,
		orgID, amount,
	)
	if err != nil {
		return errors.Wrap(err, "ledger.deposit", "balance update failed")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_entries (id, org_id, job_id, entry_type, amount)
		 VALUES ($1, $2, NULL, $3, $4)`,
		uuid.NewString(), orgID, EntryDeposit, amount,
	)
	if err != nil {
		return errors.Wrap(err, "ledger.deposit", "entry insert failed")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "ledger.deposit", "commit failed")
	}
	return nil
}
