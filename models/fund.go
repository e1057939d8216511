package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund is money allocated to the program by a donor or agency.
type Fund struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	AllocatedAt time.Time       `json:"allocated_at"`
	Description string          `json:"description"`
}

type FundInput struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required,gt=0,money"`
	Source      *string          `json:"source" validate:"required,nonul,min=1,max=100"`
	Description *string          `json:"description" validate:"required,nonul,min=1"`
}

func (f Fund) Input() FundInput {
	return FundInput{
		Amount:      &f.Amount,
		Source:      &f.Source,
		Description: &f.Description,
	}
}

func (in FundInput) Merge(patch FundInput) FundInput {
	if patch.Amount != nil {
		in.Amount = patch.Amount
	}
	if patch.Source != nil {
		in.Source = patch.Source
	}
	if patch.Description != nil {
		in.Description = patch.Description
	}
	return in
}

func (in FundInput) Normalize() FundInput {
	in.Source = trimmed(in.Source)
	in.Description = trimmed(in.Description)
	return in
}
