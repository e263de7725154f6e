package config

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"

	_ "github.com/lib/pq"
)

// InitDB opens the pool and pings it, retrying with fibonacci backoff so a
// cold database container gets a chance to come up first.
func InitDB(ctx context.Context) (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	backoff := retry.WithMaxDuration(30*time.Second, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("database not ready, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			totp_secret VARCHAR(255),
			totp_enabled BOOLEAN DEFAULT FALSE,
			email_verified BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			refresh_token VARCHAR(500) UNIQUE NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			kind VARCHAR(20) NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
			currency CHAR(3) NOT NULL,
			category VARCHAR(100) NOT NULL,
			description TEXT DEFAULT '',
			occurred_at DATE NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			category VARCHAR(100) NOT NULL,
			month CHAR(7) NOT NULL,
			limit_amount NUMERIC(14,2) NOT NULL CHECK (limit_amount >= 0),
			currency CHAR(3) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(owner_id, category, month)
		)`,

		`CREATE TABLE IF NOT EXISTS bill_recurrences (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			kind VARCHAR(20) NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
			currency CHAR(3) NOT NULL,
			category VARCHAR(100) NOT NULL,
			description TEXT DEFAULT '',
			notes TEXT,
			frequency VARCHAR(10) NOT NULL,
			interval_count INTEGER NOT NULL CHECK (interval_count >= 1),
			start_date DATE NOT NULL,
			next_due_date DATE NOT NULL,
			end_date DATE,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS bills (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			kind VARCHAR(20) NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
			currency CHAR(3) NOT NULL,
			category VARCHAR(100) NOT NULL,
			description TEXT DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			due_date DATE NOT NULL,
			paid_at TIMESTAMP,
			notes TEXT,
			recurrence_id UUID REFERENCES bill_recurrences(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS loans (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			lender VARCHAR(255) NOT NULL,
			principal NUMERIC(14,2) NOT NULL CHECK (principal >= 0),
			balance NUMERIC(14,2) NOT NULL CHECK (balance >= 0),
			interest_rate NUMERIC(6,3) NOT NULL DEFAULT 0,
			currency CHAR(3) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS goals (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			target NUMERIC(14,2) NOT NULL CHECK (target >= 0),
			saved NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (saved >= 0),
			currency CHAR(3) NOT NULL,
			target_date DATE,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_refresh_token ON sessions(refresh_token)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner_occurred ON transactions(owner_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_owner_month ON budgets(owner_id, month)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_owner_due ON bills(owner_id, due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_recurrence_id ON bills(recurrence_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recurrences_owner ON bill_recurrences(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_owner ON loans(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
