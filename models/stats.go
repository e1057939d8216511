package models

import "github.com/shopspring/decimal"

type Stats struct {
	Beneficiaries int64 `json:"beneficiaries"`
	Funds         int64 `json:"funds"`
	Transactions  int64 `json:"transactions"`
}

type Report struct {
	TotalFunds         decimal.Decimal `json:"total_funds"`
	TotalTransactions  int64           `json:"total_transactions"`
	TotalBeneficiaries int64           `json:"total_beneficiaries"`
}
