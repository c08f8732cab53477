package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/model"
)

var ErrChestNotFound = errors.New("chest not found")
var ErrChestsInitialized = errors.New("reward chests already initialized")
var ErrChestAlreadyOpened = errors.New("chest already opened")

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// InitChests creates the three chest rows for a user. Fails when any chest
// already exists.
func (ms *Database) InitChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error) {
	tx, err := ms.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var existing int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reward_chests WHERE user_id = $1`, userID).Scan(&existing); err != nil {
		return nil, err
	}
	if existing > 0 {
		err = ErrChestsInitialized
		return nil, err
	}

	now := time.Now().UTC()
	chests := make([]model.RewardChest, 0, model.ChestCount)
	for n := 1; n <= model.ChestCount; n++ {
		chest := model.RewardChest{
			ID:          uuid.New(),
			UserID:      userID,
			ChestNumber: n,
			CreatedAt:   now,
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO reward_chests (id, user_id, chest_number, created_at)
			VALUES ($1, $2, $3, $4)`,
			chest.ID, chest.UserID, chest.ChestNumber, chest.CreatedAt); err != nil {
			// A concurrent initialize can slip past the count check and
			// land on UNIQUE(user_id, chest_number).
			if isUniqueViolation(err) {
				err = ErrChestsInitialized
			}
			return nil, err
		}
		chests = append(chests, chest)
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			err = ErrChestsInitialized
		}
		return nil, err
	}
	logging.Logg.Info("Reward chests initialized", "user", userID)
	return chests, nil
}

const chestColumns = `id, user_id, chest_number, opened, opened_at, transaction_id, created_at`

// ListChests returns the user's chests ordered by chest number.
func (ms *Database) ListChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error) {
	rows, err := ms.DB.QueryContext(ctx, `
		SELECT `+chestColumns+` FROM reward_chests
		WHERE user_id = $1 ORDER BY chest_number ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chests []model.RewardChest
	for rows.Next() {
		var chest model.RewardChest
		err := rows.Scan(&chest.ID, &chest.UserID, &chest.ChestNumber, &chest.Opened,
			&chest.OpenedAt, &chest.TransactionID, &chest.CreatedAt)
		if err != nil {
			return nil, err
		}
		chests = append(chests, chest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chests, nil
}

func (ms *Database) GetChest(ctx context.Context, userID uuid.UUID, chestNumber int) (*model.RewardChest, error) {
	var chest model.RewardChest
	err := ms.DB.QueryRowContext(ctx, `
		SELECT `+chestColumns+` FROM reward_chests
		WHERE user_id = $1 AND chest_number = $2`, userID, chestNumber).
		Scan(&chest.ID, &chest.UserID, &chest.ChestNumber, &chest.Opened,
			&chest.OpenedAt, &chest.TransactionID, &chest.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChestNotFound
		}
		return nil, err
	}
	return &chest, nil
}

// OpenChest performs the unlock as one database transaction: insert the
// bonus transaction, credit the balance, flip the opened flag. The flip is
// conditional on the chest still being unopened, so two concurrent opens of
// the same chest produce exactly one payout. Returns the balance after the
// credit and mutates chest with the open-state fields.
func (ms *Database) OpenChest(ctx context.Context, chest *model.RewardChest, tr *model.Transaction) (float64, error) {
	raw, err := marshalMetadata(tr.Metadata)
	if err != nil {
		return 0, err
	}

	tx, err := ms.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	openedAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE reward_chests
		SET opened = TRUE, opened_at = $1, transaction_id = $2
		WHERE user_id = $3 AND chest_number = $4 AND opened = FALSE`,
		openedAt, tr.ID, chest.UserID, chest.ChestNumber)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		err = ErrChestAlreadyOpened
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, status, payment_method, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.ID, tr.UserID, tr.Type, tr.Amount, tr.Status, tr.PaymentMethod, raw, tr.CreatedAt); err != nil {
		return 0, err
	}

	var newBalance float64
	if err = tx.QueryRowContext(ctx, `
		UPDATE users SET current_balance = current_balance + $1
		WHERE id = $2
		RETURNING current_balance`, tr.Amount, tr.UserID).Scan(&newBalance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrUserNotFound
		}
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	chest.Opened = true
	chest.OpenedAt = &openedAt
	trID := tr.ID
	chest.TransactionID = &trID

	logging.Logg.Info("Chest opened",
		"user", chest.UserID,
		"chest", chest.ChestNumber,
		"amount", tr.Amount,
	)
	return newBalance, nil
}

// ChestCount aggregates one chest number across all users.
type ChestCount struct {
	ChestNumber int
	Total       int
	Opened      int
}

func (ms *Database) ChestCounts(ctx context.Context) ([]ChestCount, error) {
	rows, err := ms.DB.QueryContext(ctx, `
		SELECT chest_number, COUNT(*), COUNT(*) FILTER (WHERE opened)
		FROM reward_chests
		GROUP BY chest_number
		ORDER BY chest_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ChestCount
	for rows.Next() {
		var c ChestCount
		if err := rows.Scan(&c.ChestNumber, &c.Total, &c.Opened); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (ms *Database) UsersWithChests(ctx context.Context) (int, error) {
	var total int
	err := ms.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM reward_chests`).Scan(&total)
	return total, err
}
