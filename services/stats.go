package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LovationAdmin/feeding-api/models"
)

// StatsService runs read-only aggregates over the entity tables.
type StatsService struct {
	db *sql.DB
}

func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// Counts returns the number of records of each entity type.
func (s *StatsService) Counts(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM beneficiaries),
			(SELECT COUNT(*) FROM funds),
			(SELECT COUNT(*) FROM transactions)
	`).Scan(&stats.Beneficiaries, &stats.Funds, &stats.Transactions)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	return &stats, nil
}

// Report returns the total allocated across all funds, zero when there are
// none, alongside transaction and beneficiary counts.
func (s *StatsService) Report(ctx context.Context) (*models.Report, error) {
	var report models.Report
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM funds),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM beneficiaries)
	`).Scan(&report.TotalFunds, &report.TotalTransactions, &report.TotalBeneficiaries)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	return &report, nil
}
