package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/utils"
	"github.com/LovationAdmin/feeding-api/validation"

	"github.com/google/uuid"
)

var ErrEncryptedPayload = errors.New("audit payload is encrypted and no key is configured")

// encryptedPayload wraps a sealed payload in the stored JSON.
type encryptedPayload struct {
	Encrypted string `json:"encrypted"`
}

// AuditService keeps the trail of reconciled sync entries. Payloads are
// sealed with AES-GCM when a key is configured.
type AuditService struct {
	db  *sql.DB
	key []byte
}

func NewAuditService(db *sql.DB, key []byte) *AuditService {
	return &AuditService{db: db, key: key}
}

type AuditFilter struct {
	BatchID uuid.UUID
	Page    Page
}

// record writes one entry outcome using q, so it commits or rolls back with
// the batch it belongs to.
func (s *AuditService) record(ctx context.Context, q DBTX, batchID uuid.UUID, position int, userID int64, entry models.SyncEntry, result models.SyncResult) error {
	payload, err := s.seal(result.Entry)
	if err != nil {
		return fmt.Errorf("seal audit payload: %w", err)
	}

	var outcome interface{}
	if result.Error != nil {
		b, err := json.Marshal(auditOutcome(result.Error))
		if err != nil {
			return fmt.Errorf("encode audit error: %w", err)
		}
		outcome = string(b)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO sync_audit (id, batch_id, position, user_id, action, model_name, payload, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.New(), batchID, position, userID, columnText(entry.Action, 20), columnText(entry.ModelName, 50),
		payload, result.Status, outcome, now())
	if err != nil {
		return fmt.Errorf("insert sync audit: %w", err)
	}
	return nil
}

// auditOutcome drops NUL characters device input may have carried into an
// error, since JSONB cannot store them.
func auditOutcome(outcome interface{}) interface{} {
	switch o := outcome.(type) {
	case validation.Errors:
		clean := make(validation.Errors, len(o))
		for field, msg := range o {
			clean[stripNUL(field)] = stripNUL(msg)
		}
		return clean
	case string:
		return stripNUL(o)
	default:
		return o
	}
}

// columnText fits unvalidated entry text into a VARCHAR(n) column.
func columnText(s string, n int) string {
	s = stripNUL(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// List returns audit records, newest batch first and in entry order within a
// batch.
func (s *AuditService) List(ctx context.Context, f AuditFilter) ([]models.SyncAuditRecord, error) {
	var cond conditions
	if f.BatchID != uuid.Nil {
		cond.add("batch_id = ?", f.BatchID)
	}

	limit, args := cond.paginate(f.Page)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, position, user_id, action, model_name, payload, status, error, created_at
		FROM sync_audit`+cond.where()+`
		ORDER BY created_at DESC, batch_id, position`+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync audit: %w", err)
	}
	defer rows.Close()

	records := []models.SyncAuditRecord{}
	for rows.Next() {
		var (
			rec     models.SyncAuditRecord
			userID  sql.NullInt64
			payload string
			outcome sql.NullString
		)
		err := rows.Scan(&rec.ID, &rec.BatchID, &rec.Position, &userID, &rec.Action, &rec.ModelName,
			&payload, &rec.Status, &outcome, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		if userID.Valid {
			rec.UserID = &userID.Int64
		}
		if rec.Payload, err = s.open(payload); err != nil {
			return nil, fmt.Errorf("open audit payload %s: %w", rec.ID, err)
		}
		if outcome.Valid {
			rec.Error = json.RawMessage(outcome.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *AuditService) seal(raw json.RawMessage) (string, error) {
	if len(s.key) == 0 {
		return string(raw), nil
	}
	sealed, err := utils.Encrypt(s.key, raw)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(encryptedPayload{Encrypted: sealed})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *AuditService) open(stored string) (json.RawMessage, error) {
	var wrapper encryptedPayload
	if err := json.Unmarshal([]byte(stored), &wrapper); err != nil || wrapper.Encrypted == "" {
		return json.RawMessage(stored), nil
	}
	if len(s.key) == 0 {
		return nil, ErrEncryptedPayload
	}
	plain, err := utils.Decrypt(s.key, wrapper.Encrypted)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(plain), nil
}
