package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/model"
)

var ErrTransactionNotFound = errors.New("transaction not found")
var ErrTransactionNotPending = errors.New("transaction is not a pending deposit")

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}

// CreateTransaction inserts one immutable transaction row.
func (ms *Database) CreateTransaction(ctx context.Context, tr *model.Transaction) error {
	raw, err := marshalMetadata(tr.Metadata)
	if err != nil {
		return err
	}

	_, err = ms.DB.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, status, payment_method, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.ID, tr.UserID, tr.Type, tr.Amount, tr.Status, tr.PaymentMethod, raw, tr.CreatedAt)
	return err
}

func (ms *Database) GetTransactionByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tr model.Transaction
	var raw []byte
	err := ms.DB.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount, status, payment_method, metadata, created_at
		FROM transactions WHERE id = $1`, id).
		Scan(&tr.ID, &tr.UserID, &tr.Type, &tr.Amount, &tr.Status, &tr.PaymentMethod, &raw, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tr.Metadata); err != nil {
			return nil, err
		}
	}
	return &tr, nil
}

// HasCompletedDeposit reports whether the user has at least one COMPLETED
// DEPOSIT transaction, ever. The reward-chest deposit gate re-checks this on
// every open attempt.
func (ms *Database) HasCompletedDeposit(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := ms.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND type = $2 AND status = $3
		)`, userID, model.TypeDeposit, model.StatusCompleted).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ResolveDeposit moves a PENDING deposit to a terminal status. A COMPLETED
// resolution credits the user's balance in the same database transaction, so
// either both rows change or neither does. Returns the resolved transaction.
func (ms *Database) ResolveDeposit(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (*model.Transaction, error) {
	tx, err := ms.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var tr model.Transaction
	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount, status, payment_method, metadata, created_at
		FROM transactions WHERE id = $1 FOR UPDATE`, id).
		Scan(&tr.ID, &tr.UserID, &tr.Type, &tr.Amount, &tr.Status, &tr.PaymentMethod, &raw, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrTransactionNotFound
		}
		return nil, err
	}
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, &tr.Metadata); err != nil {
			return nil, err
		}
	}

	if tr.Type != model.TypeDeposit || tr.Status != model.StatusPending {
		err = ErrTransactionNotPending
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1 WHERE id = $2`, status, id); err != nil {
		return nil, err
	}

	if status == model.StatusCompleted {
		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET current_balance = current_balance + $1 WHERE id = $2`,
			tr.Amount, tr.UserID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	tr.Status = status
	logging.Logg.Info("Deposit resolved", "transaction", tr.ID, "status", status)
	return &tr, nil
}
