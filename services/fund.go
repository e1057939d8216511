package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/utils"
	"github.com/LovationAdmin/feeding-api/validation"
)

var FundReadOnly = []string{"id", "allocated_at"}

const fundColumns = `id, amount, source, allocated_at, description`

type FundFilter struct {
	Source string
	Page   Page
}

type FundService struct {
	db *sql.DB
}

func NewFundService(db *sql.DB) *FundService {
	return &FundService{db: db}
}

func (s *FundService) List(ctx context.Context, f FundFilter) ([]models.Fund, int64, error) {
	var cond conditions
	if f.Source != "" {
		cond.add("source ILIKE ?", "%"+f.Source+"%")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM funds`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count funds: %w", err)
	}

	limit, args := cond.paginate(f.Page)
	rows, err := s.db.QueryContext(ctx, `SELECT `+fundColumns+` FROM funds`+cond.where()+` ORDER BY id`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	funds := []models.Fund{}
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, 0, err
		}
		funds = append(funds, *f)
	}
	return funds, total, rows.Err()
}

func (s *FundService) Get(ctx context.Context, id int64) (*models.Fund, error) {
	return getFund(ctx, s.db, id)
}

func (s *FundService) Create(ctx context.Context, in models.FundInput) (*models.Fund, error) {
	return createFund(ctx, s.db, in)
}

// Update merges patch into the stored fund. Lowering the amount does not
// revisit transactions already drawn against it.
func (s *FundService) Update(ctx context.Context, id int64, patch models.FundInput) (*models.Fund, error) {
	var updated *models.Fund
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		updated, err = updateFund(ctx, tx, id, patch)
		return err
	})
	return updated, err
}

// Delete removes the fund and, through the foreign key, its transactions.
func (s *FundService) Delete(ctx context.Context, id int64) error {
	return deleteFund(ctx, s.db, id)
}

func scanFund(row rowScanner) (*models.Fund, error) {
	var f models.Fund
	if err := row.Scan(&f.ID, &f.Amount, &f.Source, &f.AllocatedAt, &f.Description); err != nil {
		return nil, err
	}
	return &f, nil
}

func getFund(ctx context.Context, q DBTX, id int64) (*models.Fund, error) {
	f, err := scanFund(q.QueryRowContext(ctx, `SELECT `+fundColumns+` FROM funds WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.ModelFund, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get fund %d: %w", id, err)
	}
	return f, nil
}

func createFund(ctx context.Context, q DBTX, in models.FundInput) (*models.Fund, error) {
	in = in.Normalize()
	if err := validation.Check(in).Err(); err != nil {
		return nil, err
	}

	f := &models.Fund{Amount: *in.Amount, Source: *in.Source, Description: *in.Description, AllocatedAt: now()}
	err := q.QueryRowContext(ctx, `
		INSERT INTO funds (amount, source, allocated_at, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, f.Amount, f.Source, f.AllocatedAt, f.Description).Scan(&f.ID)
	if err != nil {
		return nil, fmt.Errorf("insert fund: %w", err)
	}
	return f, nil
}

func updateFund(ctx context.Context, q DBTX, id int64, patch models.FundInput) (*models.Fund, error) {
	current, err := getFund(ctx, q, id)
	if err != nil {
		return nil, err
	}

	in := current.Input().Merge(patch).Normalize()
	if err := validation.Check(in).Err(); err != nil {
		return nil, err
	}

	f := &models.Fund{
		ID:          id,
		Amount:      *in.Amount,
		Source:      *in.Source,
		AllocatedAt: current.AllocatedAt,
		Description: *in.Description,
	}
	_, err = q.ExecContext(ctx, `
		UPDATE funds
		SET amount = $1, source = $2, description = $3
		WHERE id = $4
	`, f.Amount, f.Source, f.Description, id)
	if err != nil {
		return nil, fmt.Errorf("update fund %d: %w", id, err)
	}
	return f, nil
}

func deleteFund(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM funds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fund %d: %w", id, err)
	}
	return requireAffected(res, models.ModelFund, id)
}
