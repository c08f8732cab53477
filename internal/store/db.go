package store

import (
	"database/sql"
	"errors"

	"github.com/lombarde1/backtunder/internal/logging"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Database struct {
	DBDSN string
	DB    *sql.DB
}

func (ms *Database) NewStorage(DBDSN string) error {
	var err error
	ms.DBDSN = DBDSN

	if ms.DB, err = sql.Open("pgx", ms.DBDSN); err != nil {
		logging.Logg.Error("Couldn't connect to the database", "error", err)
		return err
	}

	if err = ms.initDBTables(); err != nil {
		logging.Logg.Error("Failed to initialize DB", "error", err)
		return err
	}
	logging.Logg.Info("Database connection was created")
	return nil
}

func (ms *Database) initDBTables() error {
	var errs []error
	stmts := []string{
		`create table if not exists users (
			id UUID PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			password_hash VARCHAR(60),
			name VARCHAR(200) NOT NULL DEFAULT '',
			email VARCHAR(200) NOT NULL DEFAULT '',
			phone VARCHAR(20) NOT NULL DEFAULT '',
			cpf VARCHAR(14) NOT NULL DEFAULT '',
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			current_balance DECIMAL(12, 2) NOT NULL DEFAULT 0.00 CHECK (current_balance >= 0),
			location VARCHAR(200) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT (now() at time zone 'utc')
		);`,

		`create table if not exists transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(20) NOT NULL,
			amount DECIMAL(12, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			payment_method VARCHAR(20) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT (now() at time zone 'utc')
		);`,

		`create table if not exists reward_chests (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			chest_number INT NOT NULL,
			opened BOOLEAN NOT NULL DEFAULT FALSE,
			opened_at TIMESTAMP,
			transaction_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT (now() at time zone 'utc'),
			UNIQUE(user_id, chest_number)
		);`,

		`create index if not exists idx_transactions_user_type_status
			ON transactions(user_id, type, status);`,
	}

	for _, s := range stmts {
		_, err := ms.DB.Exec(s)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ms *Database) Close() error {
	return ms.DB.Close()
}
