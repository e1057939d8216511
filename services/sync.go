package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/utils"
	"github.com/LovationAdmin/feeding-api/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncEntryReadOnly lists queue bookkeeping keys devices may send along with
// an entry.
var SyncEntryReadOnly = []string{"id", "timestamp"}

// entityHandler applies one kind of mutation to one entity type.
type entityHandler struct {
	create func(ctx context.Context, q DBTX, data json.RawMessage) error
	update func(ctx context.Context, q DBTX, id int64, data json.RawMessage) error
	remove func(ctx context.Context, q DBTX, id int64) error
}

func newEntityHandler[In any, Out any](
	readOnly []string,
	create func(context.Context, DBTX, In) (*Out, error),
	update func(context.Context, DBTX, int64, In) (*Out, error),
	remove func(context.Context, DBTX, int64) error,
) entityHandler {
	decode := func(data json.RawMessage) (In, error) {
		var in In
		err := validation.DecodeStrict(data, &in, readOnly...)
		return in, err
	}

	return entityHandler{
		create: func(ctx context.Context, q DBTX, data json.RawMessage) error {
			in, err := decode(data)
			if err != nil {
				return err
			}
			_, err = create(ctx, q, in)
			return err
		},
		update: func(ctx context.Context, q DBTX, id int64, data json.RawMessage) error {
			patch, err := decode(data)
			if err != nil {
				return err
			}
			_, err = update(ctx, q, id, patch)
			return err
		},
		remove: remove,
	}
}

var entityHandlers = map[string]entityHandler{
	models.ModelBeneficiary: newEntityHandler(BeneficiaryReadOnly, createBeneficiary, updateBeneficiary, deleteBeneficiary),
	models.ModelFund:        newEntityHandler(FundReadOnly, createFund, updateFund, deleteFund),
	models.ModelTransaction: newEntityHandler(TransactionReadOnly, createTransaction, updateTransaction, deleteTransaction),
}

// SyncService reconciles batches of offline-queued mutations.
type SyncService struct {
	db     *sql.DB
	audit  *AuditService
	logger *zap.Logger
}

func NewSyncService(db *sql.DB, audit *AuditService, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{db: db, audit: audit, logger: logger}
}

// Reconcile applies entries in order inside one database transaction and
// returns one result per entry, in input order.
//
// An entry that fails validation or targets a missing record is reported as
// an error result and skipped; entries already applied stay applied. Any
// other failure, including the final commit, rolls back the whole batch and
// is returned without results.
func (s *SyncService) Reconcile(ctx context.Context, userID int64, entries []json.RawMessage) ([]models.SyncResult, error) {
	batchID := uuid.New()
	var results []models.SyncResult
	failed := 0

	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		results = make([]models.SyncResult, 0, len(entries))
		failed = 0

		for i, raw := range entries {
			entry, result, err := s.apply(ctx, tx, raw)
			if err != nil {
				return fmt.Errorf("sync entry %d: %w", i, err)
			}
			if s.audit != nil {
				if err := s.audit.record(ctx, tx, batchID, i, userID, entry, result); err != nil {
					return err
				}
			}
			if result.Status == models.SyncStatusError {
				failed++
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("sync batch rolled back",
			zap.String("batch_id", utils.MaskID(batchID.String())),
			zap.Int64("user_id", userID),
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("sync batch reconciled",
		zap.String("batch_id", utils.MaskID(batchID.String())),
		zap.Int64("user_id", userID),
		zap.Int("entries", len(entries)),
		zap.Int("failed", failed),
	)
	return results, nil
}

// apply processes one entry. The returned error is non-nil only for
// failures that must abort the batch.
func (s *SyncService) apply(ctx context.Context, q DBTX, raw json.RawMessage) (models.SyncEntry, models.SyncResult, error) {
	result := models.SyncResult{Entry: raw, Status: models.SyncStatusSuccess}

	var entry models.SyncEntry
	if err := validation.DecodeStrict(raw, &entry, SyncEntryReadOnly...); err != nil {
		return entry, rejected(result, err), nil
	}

	errs := validation.Check(entry)
	if !errs.Has("data") && !validation.IsObject(entry.Data) {
		errs.Add("data", "Expected a JSON object.")
	}
	if err := errs.Err(); err != nil {
		return entry, rejected(result, err), nil
	}

	err := dispatch(ctx, q, entry)
	switch {
	case err == nil:
		return entry, result, nil
	case isEntryError(err):
		return entry, rejected(result, err), nil
	default:
		return entry, result, err
	}
}

func dispatch(ctx context.Context, q DBTX, entry models.SyncEntry) error {
	h, ok := entityHandlers[entry.ModelName]
	if !ok {
		return validation.Errors{"model_name": fmt.Sprintf("Invalid model_name: %s", entry.ModelName)}
	}

	if entry.Action == models.ActionCreate {
		return h.create(ctx, q, entry.Data)
	}

	id, err := payloadID(entry.Data)
	if err != nil {
		return err
	}
	switch entry.Action {
	case models.ActionUpdate:
		return h.update(ctx, q, id, entry.Data)
	case models.ActionDelete:
		return h.remove(ctx, q, id)
	default:
		return validation.Errors{"action": fmt.Sprintf("Invalid action: %s", entry.Action)}
	}
}

// payloadID extracts the target id of an update or delete.
func payloadID(data json.RawMessage) (int64, error) {
	var ref struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return 0, validation.Errors{validation.NonFieldErrors: "Invalid data. Expected an object."}
	}
	if len(ref.ID) == 0 || string(ref.ID) == "null" {
		return 0, validation.Errors{"id": "This field is required."}
	}

	var id int64
	if err := json.Unmarshal(ref.ID, &id); err != nil || id <= 0 {
		return 0, validation.Errors{"id": "A valid integer is required."}
	}
	return id, nil
}

func isEntryError(err error) bool {
	if _, ok := validation.AsErrors(err); ok {
		return true
	}
	return errors.Is(err, ErrNotFound)
}

func rejected(result models.SyncResult, err error) models.SyncResult {
	result.Status = models.SyncStatusError
	if errs, ok := validation.AsErrors(err); ok {
		result.Error = errs
	} else {
		result.Error = err.Error()
	}
	return result
}
