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

// BeneficiaryReadOnly lists server-assigned keys accepted and ignored on input.
var BeneficiaryReadOnly = []string{"id", "created_at", "updated_at"}

const beneficiaryColumns = `id, name, age, location, created_at, updated_at`

type BeneficiaryFilter struct {
	Search   string
	Location string
	Page     Page
}

type BeneficiaryService struct {
	db *sql.DB
}

func NewBeneficiaryService(db *sql.DB) *BeneficiaryService {
	return &BeneficiaryService{db: db}
}

// List returns one page of beneficiaries and the total number matching f.
func (s *BeneficiaryService) List(ctx context.Context, f BeneficiaryFilter) ([]models.Beneficiary, int64, error) {
	var cond conditions
	if f.Search != "" {
		cond.add("(name ILIKE ? OR location ILIKE ?)", "%"+f.Search+"%")
	}
	if f.Location != "" {
		cond.add("location = ?", f.Location)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM beneficiaries`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count beneficiaries: %w", err)
	}

	limit, args := cond.paginate(f.Page)
	rows, err := s.db.QueryContext(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiaries`+cond.where()+` ORDER BY id`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list beneficiaries: %w", err)
	}
	defer rows.Close()

	beneficiaries := []models.Beneficiary{}
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, 0, err
		}
		beneficiaries = append(beneficiaries, *b)
	}
	return beneficiaries, total, rows.Err()
}

func (s *BeneficiaryService) Get(ctx context.Context, id int64) (*models.Beneficiary, error) {
	return getBeneficiary(ctx, s.db, id)
}

func (s *BeneficiaryService) Create(ctx context.Context, in models.BeneficiaryInput) (*models.Beneficiary, error) {
	return createBeneficiary(ctx, s.db, in)
}

// Update merges patch into the stored record and re-validates the result.
func (s *BeneficiaryService) Update(ctx context.Context, id int64, patch models.BeneficiaryInput) (*models.Beneficiary, error) {
	var updated *models.Beneficiary
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		updated, err = updateBeneficiary(ctx, tx, id, patch)
		return err
	})
	return updated, err
}

func (s *BeneficiaryService) Delete(ctx context.Context, id int64) error {
	return deleteBeneficiary(ctx, s.db, id)
}

func scanBeneficiary(row rowScanner) (*models.Beneficiary, error) {
	var b models.Beneficiary
	if err := row.Scan(&b.ID, &b.Name, &b.Age, &b.Location, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func getBeneficiary(ctx context.Context, q DBTX, id int64) (*models.Beneficiary, error) {
	b, err := scanBeneficiary(q.QueryRowContext(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.ModelBeneficiary, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get beneficiary %d: %w", id, err)
	}
	return b, nil
}

func createBeneficiary(ctx context.Context, q DBTX, in models.BeneficiaryInput) (*models.Beneficiary, error) {
	in = in.Normalize()
	if err := validation.Check(in).Err(); err != nil {
		return nil, err
	}

	ts := now()
	b := &models.Beneficiary{Name: *in.Name, Age: *in.Age, Location: *in.Location, CreatedAt: ts, UpdatedAt: ts}
	err := q.QueryRowContext(ctx, `
		INSERT INTO beneficiaries (name, age, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, b.Name, b.Age, b.Location, ts).Scan(&b.ID)
	if err != nil {
		return nil, fmt.Errorf("insert beneficiary: %w", err)
	}
	return b, nil
}

func updateBeneficiary(ctx context.Context, q DBTX, id int64, patch models.BeneficiaryInput) (*models.Beneficiary, error) {
	current, err := getBeneficiary(ctx, q, id)
	if err != nil {
		return nil, err
	}

	in := current.Input().Merge(patch).Normalize()
	if err := validation.Check(in).Err(); err != nil {
		return nil, err
	}

	b := &models.Beneficiary{
		ID:        id,
		Name:      *in.Name,
		Age:       *in.Age,
		Location:  *in.Location,
		CreatedAt: current.CreatedAt,
		UpdatedAt: now(),
	}
	_, err = q.ExecContext(ctx, `
		UPDATE beneficiaries
		SET name = $1, age = $2, location = $3, updated_at = $4
		WHERE id = $5
	`, b.Name, b.Age, b.Location, b.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update beneficiary %d: %w", id, err)
	}
	return b, nil
}

func deleteBeneficiary(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM beneficiaries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete beneficiary %d: %w", id, err)
	}
	return requireAffected(res, models.ModelBeneficiary, id)
}

func requireAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", entity, id, err)
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}
