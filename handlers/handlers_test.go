package handlers_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LovationAdmin/feeding-api/handlers"
	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/permissions"
	"github.com/LovationAdmin/feeding-api/routes"
	"github.com/LovationAdmin/feeding-api/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

const (
	adminID   int64 = 1
	officerID int64 = 2
	donorID   int64 = 3
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticRoles map[int64][]permissions.Role

func (s staticRoles) Roles(_ context.Context, userID int64) ([]permissions.Role, error) {
	return s[userID], nil
}

var roles = staticRoles{
	adminID:   {permissions.RoleAdmin},
	officerID: {permissions.RoleFieldOfficer},
	donorID:   {permissions.RoleDonor},
}

type recordingNotifier struct {
	events []handlers.Event
}

func (r *recordingNotifier) Notify(e handlers.Event) {
	r.events = append(r.events, e)
}

type testServer struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	events *recordingNotifier
}

// newTestServer mounts the real route table over sqlmock, with roles served
// from memory.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	events := &recordingNotifier{}

	r := gin.New()
	routes.Setup(r.Group("/api"), routes.Deps{
		DB:        db,
		JWTSecret: testSecret,
		Notifier:  events,
		Logger:    zap.NewNop(),
		Roles:     roles,
	})

	return &testServer{router: r, mock: mock, events: events}
}

func (s *testServer) do(t *testing.T, userID int64, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		token, err := utils.GenerateAccessToken(testSecret, userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

var fixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func beneficiaryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "age", "location", "created_at", "updated_at"})
}

// ============================================================================
// PERMISSIONS
// ============================================================================

func TestDonorCannotWrite(t *testing.T) {
	s := newTestServer(t)

	writes := []struct{ method, path, body string }{
		{http.MethodPost, "/api/beneficiaries/", `{"name":"A","age":1,"location":"B"}`},
		{http.MethodPut, "/api/beneficiaries/1/", `{"age":2}`},
		{http.MethodDelete, "/api/beneficiaries/1/", ""},
		{http.MethodPost, "/api/funds/", `{"amount":"1","source":"A","description":"B"}`},
		{http.MethodPut, "/api/funds/1/", `{"source":"C"}`},
		{http.MethodDelete, "/api/funds/1/", ""},
		{http.MethodPost, "/api/transactions/", `{"fund":1,"amount":"1","recipient":"A"}`},
		{http.MethodPut, "/api/transactions/1/", `{"status":"completed"}`},
		{http.MethodDelete, "/api/transactions/1/", ""},
		{http.MethodPost, "/api/sync/", `[]`},
	}
	for _, w := range writes {
		t.Run(w.method+" "+w.path, func(t *testing.T) {
			resp := s.do(t, donorID, w.method, w.path, w.body)
			assert.Equal(t, http.StatusForbidden, resp.Code)
		})
	}
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestDonorCanRead(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM beneficiaries`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	s.mock.ExpectQuery(`SELECT (.+) FROM beneficiaries ORDER BY id`).
		WillReturnRows(beneficiaryRows().AddRow(1, "John Doe", 30, "Kwale Town", fixedTime, fixedTime))

	w := s.do(t, donorID, http.MethodGet, "/api/beneficiaries/", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["totalRows"])
	assert.EqualValues(t, 1, body["totalPages"])
	assert.Len(t, body["data"], 1)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestAnonymousIsUnauthorized(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, 0, http.MethodGet, "/api/funds/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, 0, http.MethodGet, "/api/stats/", "").Code)
}

func TestAuditRequiresAdmin(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusForbidden, s.do(t, officerID, http.MethodGet, "/api/sync/audit/", "").Code)

	s.mock.ExpectQuery(`FROM sync_audit`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch_id", "position", "user_id", "action", "model_name", "payload", "status", "error", "created_at"}))
	assert.Equal(t, http.StatusOK, s.do(t, adminID, http.MethodGet, "/api/sync/audit/", "").Code)

	w := s.do(t, adminID, http.MethodGet, "/api/sync/audit/?batch=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

// ============================================================================
// ENTITIES
// ============================================================================

func TestCreateBeneficiaryValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, officerID, http.MethodPost, "/api/beneficiaries/", `{"name":"A","age":-3,"location":"B","nickname":"x"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]interface{})
	assert.Equal(t, "Unknown field.", errs["nickname"])
	assert.Empty(t, s.events.events)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateBeneficiaryRejectsValuesStorageCannotHold(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"age beyond integer column", `{"name":"Baraka","age":3000000000,"location":"Kwale"}`, "age",
			"Ensure this value is less than or equal to 2147483647."},
		{"null character in name", `{"name":"Bara\u0000ka","age":3,"location":"Kwale"}`, "name",
			"Null characters are not allowed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			w := s.do(t, officerID, http.MethodPost, "/api/beneficiaries/", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			errs := decode(t, w)["errors"].(map[string]interface{})
			assert.Equal(t, tt.want, errs[tt.field])
			assert.NoError(t, s.mock.ExpectationsWereMet())
		})
	}
}

func TestCreateBeneficiaryIgnoresServerFields(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`INSERT INTO beneficiaries`).
		WithArgs("Jane Smith", 25, "Msambweni", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	w := s.do(t, officerID, http.MethodPost, "/api/beneficiaries/",
		`{"id":500,"name":"Jane Smith","age":25,"location":"Msambweni","created_at":"2001-01-01T00:00:00Z"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 9, body["id"])
	require.Len(t, s.events.events, 1)
	assert.Equal(t, handlers.Event{Type: handlers.EventCreated, Entity: models.ModelBeneficiary, ID: 9}, s.events.events[0])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateFundRejectsZeroAmount(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, adminID, http.MethodPost, "/api/funds/", `{"amount":0,"source":"NGO A","description":"d"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "amount")
}

func TestGetFundSerializesAmountAsString(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`SELECT (.+) FROM funds WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "source", "allocated_at", "description"}).
			AddRow(2, "5000.00", "Government", fixedTime, "Community support"))

	w := s.do(t, donorID, http.MethodGet, "/api/funds/2/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5000", decode(t, w)["amount"])
}

func TestUpdateTransactionNotFound(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fund_id", "amount", "recipient", "date", "status"}))
	s.mock.ExpectRollback()

	w := s.do(t, officerID, http.MethodPut, "/api/transactions/42/", `{"status":"completed"}`)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Transaction with id 42 not found", decode(t, w)["error"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateTransactionOverFund(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT (.+) FROM funds WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "source", "allocated_at", "description"}).
			AddRow(1, "100.00", "NGO A", fixedTime, "d"))
	s.mock.ExpectRollback()

	w := s.do(t, officerID, http.MethodPost, "/api/transactions/", `{"fund":1,"amount":"150.00","recipient":"Community Center"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]interface{})
	assert.Equal(t, "Transaction amount exceeds available fund.", errs["amount"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestDeleteBeneficiary(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectExec(`DELETE FROM beneficiaries WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := s.do(t, adminID, http.MethodDelete, "/api/beneficiaries/4/", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []handlers.Event{{Type: handlers.EventDeleted, Entity: models.ModelBeneficiary, ID: 4}}, s.events.events)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestBadIDIsNotFound(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(t, adminID, http.MethodGet, "/api/funds/abc/", "").Code)
}

func TestStorageFailureHidesDetail(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`SELECT (.+) FROM funds WHERE id = \$1`).
		WillReturnError(sql.ErrConnDone)

	w := s.do(t, adminID, http.MethodGet, "/api/funds/1/", "")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection")
}

// ============================================================================
// SYNC
// ============================================================================

func expectAudit(mock sqlmock.Sqlmock, position int, userID int64, status string) {
	mock.ExpectExec(`INSERT INTO sync_audit`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), position, userID, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), status, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestSyncAcceptsSingleObject(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO beneficiaries`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	expectAudit(s.mock, 0, officerID, models.SyncStatusSuccess)
	s.mock.ExpectCommit()

	w := s.do(t, officerID, http.MethodPost, "/api/sync/",
		`{"action":"create","model_name":"Beneficiary","data":{"name":"A","age":3,"location":"B"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	results := decode(t, w)["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "success", results[0].(map[string]interface{})["status"])

	require.Len(t, s.events.events, 1)
	assert.Equal(t, handlers.EventSyncCompleted, s.events.events[0].Type)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestSyncReportsPerEntryErrors(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO funds`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	expectAudit(s.mock, 0, officerID, models.SyncStatusSuccess)
	expectAudit(s.mock, 1, officerID, models.SyncStatusError)
	s.mock.ExpectCommit()

	w := s.do(t, officerID, http.MethodPost, "/api/sync/", `[
		{"action":"create","model_name":"Fund","data":{"amount":100,"source":"X","description":"d"}},
		{"action":"archive","model_name":"Fund","data":{}}
	]`)

	require.Equal(t, http.StatusOK, w.Code)
	results := decode(t, w)["results"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	assert.Equal(t, "success", first["status"])
	assert.NotContains(t, first, "error")
	assert.Equal(t, "error", second["status"])
	assert.Contains(t, second["error"], "action")
	assert.Equal(t, "archive", second["entry"].(map[string]interface{})["action"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestSyncMalformedEnvelope(t *testing.T) {
	for _, body := range []string{`"create"`, `[{"action":`, ``} {
		s := newTestServer(t)

		w := s.do(t, officerID, http.MethodPost, "/api/sync/", body)

		require.Equal(t, http.StatusInternalServerError, w.Code, body)
		assert.Equal(t, map[string]interface{}{"error": "malformed sync request"}, decode(t, w))
		assert.Empty(t, s.events.events)
	}
}

func TestSyncCommitFailure(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO beneficiaries`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	expectAudit(s.mock, 0, officerID, models.SyncStatusSuccess)
	s.mock.ExpectCommit().WillReturnError(sql.ErrConnDone)

	w := s.do(t, officerID, http.MethodPost, "/api/sync/",
		`[{"action":"create","model_name":"Beneficiary","data":{"name":"A","age":3,"location":"B"}}]`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "Internal server error"}, decode(t, w))
	assert.Empty(t, s.events.events)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

// ============================================================================
// STATS
// ============================================================================

func TestStatsOnEmptyStore(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM beneficiaries`).
		WillReturnRows(sqlmock.NewRows([]string{"b", "f", "t"}).AddRow(0, 0, 0))

	w := s.do(t, donorID, http.MethodGet, "/api/stats/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"beneficiaries":0,"funds":0,"transactions":0}`, w.Body.String())
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestReportOnEmptyStore(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`COALESCE\(SUM\(amount\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "t", "b"}).AddRow("0", 0, 0))

	w := s.do(t, donorID, http.MethodGet, "/api/reports/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_funds":"0","total_transactions":0,"total_beneficiaries":0}`, w.Body.String())
}

// ============================================================================
// PROFILE
// ============================================================================

func profileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "is_active", "date_joined", "groups"}).
		AddRow(adminID, "testadmin", "admin@kfpms.org", "Test", "Admin", true, fixedTime, "{Admin}")
}

func TestGetProfile(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`FROM users u`).WithArgs(adminID).WillReturnRows(profileRows())

	w := s.do(t, adminID, http.MethodGet, "/api/auth/profile/", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "testadmin", body["username"])
	assert.Equal(t, []interface{}{"Admin"}, body["groups"])
	assert.NotContains(t, body, "password_hash")
}

func TestUpdateProfileRejectsBadEmail(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, adminID, http.MethodPut, "/api/auth/profile/", `{"email":"not-an-email","username":"ignored"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]interface{})
	assert.Equal(t, "Enter a valid email address.", errs["email"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestChangePasswordTooShort(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, adminID, http.MethodPost, "/api/auth/password/", `{"current_password":"x","new_password":"short"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "new_password")
}

func TestVerify(t *testing.T) {
	s := newTestServer(t)

	s.mock.ExpectQuery(`FROM users u`).WithArgs(adminID).WillReturnRows(profileRows())
	w := s.do(t, adminID, http.MethodGet, "/api/auth/verify/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["valid"])

	s.mock.ExpectQuery(`FROM users u`).WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "is_active", "date_joined", "groups"}))
	assert.Equal(t, http.StatusUnauthorized, s.do(t, 77, http.MethodGet, "/api/auth/verify/", "").Code)
}
