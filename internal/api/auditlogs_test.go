package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
)

var auditCols = []string{
	"id", "user_id", "user_email", "user_role",
	"action_type", "action_category", "action_description",
	"resource_type", "resource_id", "ip_address", "user_agent",
	"metadata", "old_values", "new_values", "correlation_id", "created_at",
}

func sampleEventRow() *sqlmock.Rows {
	return sqlmock.NewRows(auditCols).
		AddRow("evt-1", "user-1", "jo@acme.test", "picker",
			"ITEM_SCANNED", "DATA_MODIFICATION", "Scanned Widget A for order SO71004",
			"orders", "SO71004", "10.0.0.1", nil,
			[]byte(`{"summary":"s"}`), nil, nil, nil, time.Now())
}

func newAuditLogRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewAuditLogHandlers(repositories.NewAuditRepository(db))
	r := gin.New()
	r.GET("/admin/audit-logs", h.List)
	r.GET("/admin/audit-logs/:id", h.Get)

	return mock, r
}

func TestListAuditLogs(t *testing.T) {
	mock, r := newAuditLogRouter(t)
	mock.ExpectQuery(`SELECT COUNT.*FROM audit_events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))
	mock.ExpectQuery(`SELECT.*FROM audit_events`).
		WillReturnRows(sampleEventRow())

	w := doJSON(t, r, http.MethodGet, "/admin/audit-logs", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination map[string]interface{}   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ITEM_SCANNED", resp.Data[0]["action_type"])
	assert.EqualValues(t, 120, resp.Pagination["total"])
	assert.EqualValues(t, 1, resp.Pagination["page"])
	assert.EqualValues(t, 50, resp.Pagination["limit"])
}

func TestListAuditLogs_Filters(t *testing.T) {
	mock, r := newAuditLogRouter(t)
	mock.ExpectQuery(`SELECT COUNT.*FROM audit_events.*action_type`).
		WithArgs("ITEM_SCANNED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT.*FROM audit_events.*action_type`).
		WithArgs("ITEM_SCANNED", 25, 25).
		WillReturnRows(sqlmock.NewRows(auditCols))

	w := doJSON(t, r, http.MethodGet, "/admin/audit-logs?action_type=ITEM_SCANNED&page=2&limit=25", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAuditLogs_LimitClamped(t *testing.T) {
	mock, r := newAuditLogRouter(t)
	mock.ExpectQuery(`SELECT COUNT.*FROM audit_events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT.*FROM audit_events`).
		WillReturnRows(sqlmock.NewRows(auditCols))

	w := doJSON(t, r, http.MethodGet, "/admin/audit-logs?limit=9999", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":200`)
}

func TestListAuditLogs_BadDate(t *testing.T) {
	_, r := newAuditLogRouter(t)

	w := doJSON(t, r, http.MethodGet, "/admin/audit-logs?start_date=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "RFC3339")
}

func TestGetAuditLog(t *testing.T) {
	mock, r := newAuditLogRouter(t)
	mock.ExpectQuery(`SELECT.*FROM audit_events.*WHERE id`).
		WithArgs("evt-1").
		WillReturnRows(sampleEventRow())

	w := doJSON(t, r, http.MethodGet, "/admin/audit-logs/evt-1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Scanned Widget A for order SO71004")
}

func TestGetAuditLog_NotFound(t *testing.T) {
	mock, r := newAuditLogRouter(t)
	mock.ExpectQuery(`SELECT.*FROM audit_events.*WHERE id`).
		WillReturnRows(sqlmock.NewRows(auditCols))

	w := doJSON(t, r, http.MethodGet, "/admin/audit-logs/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
