package config

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

func InitDB(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations creates the schema when it is missing. Every statement is
// idempotent so it runs on each start.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS beneficiaries (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			age INTEGER NOT NULL CHECK (age >= 0),
			location VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS funds (
			id BIGSERIAL PRIMARY KEY,
			amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
			source VARCHAR(100) NOT NULL,
			allocated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			description TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			fund_id BIGINT NOT NULL REFERENCES funds(id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL,
			recipient VARCHAR(100) NOT NULL,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed'))
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(150) UNIQUE NOT NULL,
			email VARCHAR(254) NOT NULL DEFAULT '',
			first_name VARCHAR(150) NOT NULL DEFAULT '',
			last_name VARCHAR(150) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS user_groups (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_name VARCHAR(150) NOT NULL,
			PRIMARY KEY (user_id, group_name)
		)`,

		`CREATE TABLE IF NOT EXISTS sync_audit (
			id UUID PRIMARY KEY,
			batch_id UUID NOT NULL,
			position INTEGER NOT NULL,
			user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			action VARCHAR(20) NOT NULL,
			model_name VARCHAR(50) NOT NULL,
			payload TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			error JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_fund_id ON transactions(fund_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_beneficiaries_location ON beneficiaries(location)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_audit_batch_id ON sync_audit(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_audit_created_at ON sync_audit(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
