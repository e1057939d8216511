package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ModelBeneficiary = "Beneficiary"
	ModelFund        = "Fund"
	ModelTransaction = "Transaction"

	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncEntry is one mutation recorded offline by a field device.
type SyncEntry struct {
	Action    string          `json:"action" validate:"required,oneof=create update delete"`
	ModelName string          `json:"model_name" validate:"required,oneof=Beneficiary Fund Transaction"`
	Data      json.RawMessage `json:"data" validate:"required"`
}

// SyncResult is the outcome reported for one entry, in batch order.
type SyncResult struct {
	Entry  json.RawMessage `json:"entry"`
	Status string          `json:"status"`
	Error  interface{}     `json:"error,omitempty"`
}

type SyncResponse struct {
	Results []SyncResult `json:"results"`
}

// SyncAuditRecord is the persisted trace of a reconciled entry.
type SyncAuditRecord struct {
	ID        uuid.UUID       `json:"id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	Position  int             `json:"position"`
	UserID    *int64          `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	ModelName string          `json:"model_name"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	Error     json.RawMessage `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
