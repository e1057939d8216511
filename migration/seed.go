// Package migration holds one-off data commands run from the CLI.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/permissions"
	"github.com/LovationAdmin/feeding-api/services"
	"github.com/LovationAdmin/feeding-api/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SeedUsername = "testadmin"
	seedEmail    = "admin@kfpms.org"
	seedPassword = "testpassword123"
)

var seedBeneficiaries = []struct {
	name     string
	age      int
	location string
}{
	{"John Doe", 30, "Kwale Town"},
	{"Jane Smith", 25, "Msambweni"},
	{"Mary Johnson", 40, "Ukunda"},
}

var seedFunds = []struct {
	amount      string
	source      string
	description string
}{
	{"10000.00", "NGO A", "School feeding program"},
	{"5000.00", "Government", "Community support"},
}

// Seed fills an empty database with an admin account and sample records.
// Records that already exist are left alone, so it is safe to run twice.
// It returns the admin's user id.
func Seed(ctx context.Context, db *sql.DB, logger *zap.Logger) (int64, error) {
	adminID, err := seedAdmin(ctx, db)
	if err != nil {
		return 0, err
	}
	logger.Info("seed admin ready", zap.String("username", SeedUsername), zap.Int64("user_id", adminID))

	beneficiaries := services.NewBeneficiaryService(db)
	for _, b := range seedBeneficiaries {
		var id int64
		err := db.QueryRowContext(ctx, `
			SELECT id FROM beneficiaries WHERE name = $1 AND age = $2 AND location = $3
		`, b.name, b.age, b.location).Scan(&id)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("lookup beneficiary: %w", err)
		}

		name, age, location := b.name, b.age, b.location
		if _, err := beneficiaries.Create(ctx, models.BeneficiaryInput{Name: &name, Age: &age, Location: &location}); err != nil {
			return 0, err
		}
	}
	logger.Info("seeded beneficiaries", zap.Int("count", len(seedBeneficiaries)))

	funds := services.NewFundService(db)
	transactions := services.NewTransactionService(db)
	for _, f := range seedFunds {
		amount := decimal.RequireFromString(f.amount)

		var fundID int64
		err := db.QueryRowContext(ctx, `
			SELECT id FROM funds WHERE amount = $1 AND source = $2 AND description = $3
		`, amount, f.source, f.description).Scan(&fundID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			source, description := f.source, f.description
			fund, err := funds.Create(ctx, models.FundInput{Amount: &amount, Source: &source, Description: &description})
			if err != nil {
				return 0, err
			}
			fundID = fund.ID
		case err != nil:
			return 0, fmt.Errorf("lookup fund: %w", err)
		}

		var existing int64
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE fund_id = $1`, fundID).Scan(&existing); err != nil {
			return 0, fmt.Errorf("count fund transactions: %w", err)
		}
		if existing > 0 {
			continue
		}

		disbursed := decimal.NewFromInt(int64(100 + rand.Intn(900)))
		recipient, status := "Community Center", models.StatusCompleted
		_, err = transactions.Create(ctx, models.TransactionInput{
			FundID: &fundID, Amount: &disbursed, Recipient: &recipient, Status: &status,
		})
		if err != nil {
			return 0, err
		}
	}
	logger.Info("seeded funds and transactions", zap.Int("funds", len(seedFunds)))

	return adminID, nil
}

func seedAdmin(ctx context.Context, db *sql.DB) (int64, error) {
	var adminID int64
	err := utils.WithTransaction(ctx, db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, SeedUsername).Scan(&adminID)
		if errors.Is(err, sql.ErrNoRows) {
			hash, err := utils.HashPassword(seedPassword)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			err = tx.QueryRowContext(ctx, `
				INSERT INTO users (username, email, password_hash, is_active)
				VALUES ($1, $2, $3, TRUE)
				RETURNING id
			`, SeedUsername, seedEmail, hash).Scan(&adminID)
			if err != nil {
				return fmt.Errorf("insert admin: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("lookup admin: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_groups (user_id, group_name) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, adminID, string(permissions.RoleAdmin))
		if err != nil {
			return fmt.Errorf("grant admin group: %w", err)
		}
		return nil
	})
	return adminID, err
}
