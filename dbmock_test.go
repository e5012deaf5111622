package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// mockDB swaps the package pool for a sqlmock one and checks that every
// expected statement ran.
func mockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	prev := db
	db = conn
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db = prev
		_ = conn.Close()
	})
	return mock
}

// callAs runs h for a signed-in user with the given route variables.
func callAs(h http.HandlerFunc, user sessionUser, method string, body io.Reader, vars map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", body)
	req = mux.SetURLVars(req, vars)
	req = req.WithContext(context.WithValue(req.Context(), userKey, user))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

var fixedTime = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

var workOrderFields = []string{"id", "work_order_no", "work_order_date", "equipment_number", "km_hrs", "work_type",
	"requested_by", "requested_by_id", "status", "rejection_reason", "approved_by", "approved_at",
	"created_at", "updated_at"}

func workOrderRow(id int, status string, requestedByID int) *sqlmock.Rows {
	return sqlmock.NewRows(workOrderFields).AddRow(id, "WO-3", fixedTime, "EQ-12", nil, "Corrective",
		"Sam Hale", requestedByID, status, nil, nil, nil, fixedTime, fixedTime)
}

var actionDateFields = []string{"id", "action_id", "action_date", "start_time", "end_time", "is_completed",
	"created_at", "updated_at"}

func actionDateRow(id int, date string, end any, completed bool) *sqlmock.Rows {
	day, _ := time.Parse(dateLayout, date)
	return sqlmock.NewRows(actionDateFields).AddRow(id, 5, day, "08:00:00", end, completed, fixedTime, fixedTime)
}
