package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/utils"
	"github.com/LovationAdmin/feeding-api/validation"

	"github.com/lib/pq"
)

var TransactionReadOnly = []string{"id", "date"}

const transactionColumns = `id, fund_id, amount, recipient, date, status`

// foreign_key_violation
const pqForeignKeyViolation = "23503"

type TransactionFilter struct {
	Status string
	FundID int64
	Page   Page
}

type TransactionService struct {
	db *sql.DB
}

func NewTransactionService(db *sql.DB) *TransactionService {
	return &TransactionService{db: db}
}

func (s *TransactionService) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, int64, error) {
	var cond conditions
	if f.Status != "" {
		cond.add("status = ?", f.Status)
	}
	if f.FundID > 0 {
		cond.add("fund_id = ?", f.FundID)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit, args := cond.paginate(f.Page)
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions`+cond.where()+` ORDER BY id`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, total, rows.Err()
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

// Create checks the amount against the referenced fund and inserts in one
// transaction.
func (s *TransactionService) Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error) {
	var created *models.Transaction
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		created, err = createTransaction(ctx, tx, in)
		return err
	})
	return created, err
}

func (s *TransactionService) Update(ctx context.Context, id int64, patch models.TransactionInput) (*models.Transaction, error) {
	var updated *models.Transaction
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		updated, err = updateTransaction(ctx, tx, id, patch)
		return err
	})
	return updated, err
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	return deleteTransaction(ctx, s.db, id)
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(&t.ID, &t.FundID, &t.Amount, &t.Recipient, &t.Date, &t.Status); err != nil {
		return nil, err
	}
	return &t, nil
}

func getTransaction(ctx context.Context, q DBTX, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.ModelTransaction, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// validateTransaction applies the field rules, then checks that the
// referenced fund exists and covers the amount as of now.
func validateTransaction(ctx context.Context, q DBTX, in models.TransactionInput) error {
	errs := validation.Check(in)
	if errs.Has("fund") {
		return errs.Err()
	}

	fund, err := getFund(ctx, q, *in.FundID)
	switch {
	case errors.Is(err, ErrNotFound):
		errs.Add("fund", missingFund(*in.FundID))
	case err != nil:
		return err
	case !errs.Has("amount") && in.Amount.GreaterThan(fund.Amount):
		errs.Add("amount", "Transaction amount exceeds available fund.")
	}
	return errs.Err()
}

func missingFund(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

func createTransaction(ctx context.Context, q DBTX, in models.TransactionInput) (*models.Transaction, error) {
	in = in.Normalize()
	if err := validateTransaction(ctx, q, in); err != nil {
		return nil, err
	}

	t := &models.Transaction{FundID: *in.FundID, Amount: *in.Amount, Recipient: *in.Recipient, Status: *in.Status, Date: now()}
	err := q.QueryRowContext(ctx, `
		INSERT INTO transactions (fund_id, amount, recipient, date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, t.FundID, t.Amount, t.Recipient, t.Date, t.Status).Scan(&t.ID)
	if err != nil {
		return nil, fundReferenceError(err, t.FundID, "insert transaction")
	}
	return t, nil
}

func updateTransaction(ctx context.Context, q DBTX, id int64, patch models.TransactionInput) (*models.Transaction, error) {
	current, err := getTransaction(ctx, q, id)
	if err != nil {
		return nil, err
	}

	in := current.Input().Merge(patch).Normalize()
	if err := validateTransaction(ctx, q, in); err != nil {
		return nil, err
	}

	t := &models.Transaction{
		ID:        id,
		FundID:    *in.FundID,
		Amount:    *in.Amount,
		Recipient: *in.Recipient,
		Date:      current.Date,
		Status:    *in.Status,
	}
	_, err = q.ExecContext(ctx, `
		UPDATE transactions
		SET fund_id = $1, amount = $2, recipient = $3, status = $4
		WHERE id = $5
	`, t.FundID, t.Amount, t.Recipient, t.Status, id)
	if err != nil {
		return nil, fundReferenceError(err, t.FundID, fmt.Sprintf("update transaction %d", id))
	}
	return t, nil
}

func deleteTransaction(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return requireAffected(res, models.ModelTransaction, id)
}

// fundReferenceError reports a fund deleted between the check and the write
// as a field error, and anything else as a storage failure.
func fundReferenceError(err error, fundID int64, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return validation.Errors{"fund": missingFund(fundID)}
	}
	return fmt.Errorf("%s: %w", op, err)
}
