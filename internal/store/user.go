package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/model"
)

var ErrUserNotFound = errors.New("user not found")
var ErrDuplicate = errors.New("username already exists")
var ErrPhoneTaken = errors.New("phone already in use")

const userColumns = `id, username, password_hash, name, email, phone, cpf, role, status, current_balance, location, created_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Name, &user.Email,
		&user.Phone, &user.CPF, &user.Role, &user.Status, &user.Balance, &user.Location, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (ms *Database) CreateUser(ctx context.Context, user *model.User) error {
	createUser := `INSERT INTO users(id, username, password_hash, name, email, phone, cpf, role, status, current_balance, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (username) DO NOTHING`

	res, err := ms.DB.ExecContext(ctx, createUser,
		user.ID, user.Username, user.PasswordHash, user.Name, user.Email,
		user.Phone, user.CPF, user.Role, user.Status, user.Balance, user.Location, user.CreatedAt)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDuplicate
	}
	return nil
}

func (ms *Database) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := ms.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (ms *Database) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := ms.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// UserFilter narrows and pages the admin user listing.
type UserFilter struct {
	Page   int
	Limit  int
	Search string
	Status model.UserStatus
}

// ListUsers returns one page of users plus the total matching count.
func (ms *Database) ListUsers(ctx context.Context, filter UserFilter) ([]model.User, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	where := ` WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (phone ILIKE $%d OR username ILIKE $%d OR name ILIKE $%d)`, len(args), len(args), len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := ms.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := ms.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Name, &user.Email,
			&user.Phone, &user.CPF, &user.Role, &user.Status, &user.Balance, &user.Location, &user.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUser saves an admin edit of the full record. A phone number already
// held by another user is rejected.
func (ms *Database) UpdateUser(ctx context.Context, user *model.User) error {
	if user.Phone != "" {
		var ownerID uuid.UUID
		err := ms.DB.QueryRowContext(ctx,
			`SELECT id FROM users WHERE phone = $1 AND id <> $2`, user.Phone, user.ID).Scan(&ownerID)
		if err == nil {
			return ErrPhoneTaken
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}

	res, err := ms.DB.ExecContext(ctx, `
		UPDATE users
		SET name = $1, email = $2, phone = $3, cpf = $4, role = $5,
			status = $6, current_balance = $7, location = $8
		WHERE id = $9`,
		user.Name, user.Email, user.Phone, user.CPF, user.Role,
		user.Status, user.Balance, user.Location, user.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateProfile saves a self-service profile edit: name, email and location
// only.
func (ms *Database) UpdateProfile(ctx context.Context, id uuid.UUID, name, email, location string) (*model.User, error) {
	res, err := ms.DB.ExecContext(ctx, `
		UPDATE users SET name = $1, email = $2, location = $3 WHERE id = $4`,
		name, email, location, id)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrUserNotFound
	}
	return ms.GetUserByID(ctx, id)
}

func (ms *Database) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := ms.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (ms *Database) CountUsers(ctx context.Context) (int, error) {
	var total int
	err := ms.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	return total, err
}
