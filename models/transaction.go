package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Transaction is a disbursement drawn against a single Fund.
type Transaction struct {
	ID        int64           `json:"id"`
	FundID    int64           `json:"fund"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
	Date      time.Time       `json:"date"`
	Status    string          `json:"status"`
}

type TransactionInput struct {
	FundID    *int64           `json:"fund" validate:"required"`
	Amount    *decimal.Decimal `json:"amount" validate:"required,gt=0,money"`
	Recipient *string          `json:"recipient" validate:"required,nonul,min=1,max=100"`
	Status    *string          `json:"status" validate:"omitempty,oneof=pending completed"`
}

func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		FundID:    &t.FundID,
		Amount:    &t.Amount,
		Recipient: &t.Recipient,
		Status:    &t.Status,
	}
}

func (in TransactionInput) Merge(patch TransactionInput) TransactionInput {
	if patch.FundID != nil {
		in.FundID = patch.FundID
	}
	if patch.Amount != nil {
		in.Amount = patch.Amount
	}
	if patch.Recipient != nil {
		in.Recipient = patch.Recipient
	}
	if patch.Status != nil {
		in.Status = patch.Status
	}
	return in
}

// Normalize trims the recipient and fills the default status.
func (in TransactionInput) Normalize() TransactionInput {
	in.Recipient = trimmed(in.Recipient)
	if in.Status == nil {
		status := StatusPending
		in.Status = &status
	}
	return in
}
