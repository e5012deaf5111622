package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const actionDateColumns = "id, action_id, action_date, start_time, end_time, is_completed, created_at, updated_at"

func scanActionDate(s rowScanner) (ActionDate, error) {
	var d ActionDate
	var date time.Time
	var end sql.NullString
	err := s.Scan(&d.ID, &d.ActionID, &date, &d.StartTime, &end, &d.IsCompleted, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	d.ActionDate = date.Format(dateLayout)
	if end.Valid {
		d.EndTime = &end.String
	}
	return d, nil
}

// latestActionDate returns the most recent working day of an action, or nil.
func latestActionDate(ctx context.Context, tx *sql.Tx, actionID int) (*ActionDate, error) {
	d, err := scanActionDate(tx.QueryRowContext(ctx,
		"SELECT "+actionDateColumns+" FROM action_dates WHERE action_id = $1 ORDER BY action_date DESC, id DESC LIMIT 1",
		actionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest action date: %w", err)
	}
	return &d, nil
}

func latestID(d *ActionDate) int {
	if d == nil {
		return 0
	}
	return d.ID
}

func getActionDatesHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}

	rows, err := db.QueryContext(r.Context(),
		"SELECT "+actionDateColumns+" FROM action_dates WHERE action_id = $1 ORDER BY action_date DESC, id DESC",
		actionID)
	if err != nil {
		internalError(w, r, "Failed to fetch action dates", err)
		return
	}
	defer rows.Close()

	dates := []ActionDate{}
	for rows.Next() {
		d, err := scanActionDate(rows)
		if err != nil {
			internalError(w, r, "Failed to fetch action dates", err)
			return
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch action dates", err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

func createActionDateHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}
	var req actionDateCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.EndTime != nil && strings.TrimSpace(*req.EndTime) == "" {
		req.EndTime = nil
	}
	if req.EndTime != nil && !validClock(*req.EndTime) {
		writeError(w, http.StatusBadRequest, "end_time must be a time (HH:MM)")
		return
	}

	tx, err := db.BeginTx(r.Context(), nil)
	if err != nil {
		internalError(w, r, "Failed to add action date", err)
		return
	}
	defer tx.Rollback()

	latest, err := latestActionDate(r.Context(), tx, actionID)
	if err != nil {
		internalError(w, r, "Failed to add action date", err)
		return
	}
	if err := checkCanStartDate(latest); err != nil {
		writeRuleError(w, r, err)
		return
	}

	inserted, err := scanActionDate(tx.QueryRowContext(r.Context(), `
        INSERT INTO action_dates (action_id, action_date, start_time, end_time, is_completed)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+actionDateColumns,
		actionID, req.ActionDate, req.StartTime, req.EndTime, req.IsCompleted))
	switch {
	case isUniqueViolation(err):
		writeError(w, http.StatusConflict, "An entry for this action and date already exists")
		return
	case isForeignKeyViolation(err):
		writeError(w, http.StatusNotFound, "Action not found")
		return
	case err != nil:
		internalError(w, r, "Failed to add action date", err)
		return
	}

	// Starting a new day closes every earlier one.
	if _, err := tx.ExecContext(r.Context(),
		"UPDATE action_dates SET is_completed = TRUE, updated_at = CURRENT_TIMESTAMP WHERE action_id = $1 AND id != $2",
		actionID, inserted.ID); err != nil {
		internalError(w, r, "Failed to add action date", err)
		return
	}

	if err := tx.Commit(); err != nil {
		internalError(w, r, "Failed to add action date", err)
		return
	}
	writeJSON(w, http.StatusCreated, inserted)
}

// setActionDateCompletionHandler toggles completion for the entry on a given date.
func setActionDateCompletionHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}
	var req actionDateCompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := db.BeginTx(r.Context(), nil)
	if err != nil {
		internalError(w, r, "Failed to update action date", err)
		return
	}
	defer tx.Rollback()

	target, err := scanActionDate(tx.QueryRowContext(r.Context(),
		"SELECT "+actionDateColumns+" FROM action_dates WHERE action_id = $1 AND action_date = $2 FOR UPDATE",
		actionID, req.ActionDate))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Action date not found for the provided date")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update action date", err)
		return
	}

	guard := checkRevert(currentUser(r).Role)
	if *req.IsCompleted {
		guard = checkLatestDate(r.Context(), tx, target)
	}
	if guard != nil {
		writeRuleError(w, r, guard)
		return
	}

	updated, err := scanActionDate(tx.QueryRowContext(r.Context(), `
        UPDATE action_dates SET is_completed = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2
        RETURNING `+actionDateColumns, *req.IsCompleted, target.ID))
	if err != nil {
		internalError(w, r, "Failed to update action date", err)
		return
	}
	if err := tx.Commit(); err != nil {
		internalError(w, r, "Failed to update action date", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func checkLatestDate(ctx context.Context, tx *sql.Tx, target ActionDate) error {
	latest, err := latestActionDate(ctx, tx, target.ActionID)
	if err != nil {
		return err
	}
	return checkCompletion(target.ID, latestID(latest))
}

func updateActionDateHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	dateID, ok2 := pathID(r, "dateId")
	if !ok || !ok2 {
		writeError(w, http.StatusBadRequest, "Invalid IDs")
		return
	}
	var req actionDatePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.empty() {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if v := req.EndTime.Value; v != nil && *v != "" && !validClock(*v) {
		writeError(w, http.StatusBadRequest, "end_time must be a time (HH:MM)")
		return
	}

	tx, err := db.BeginTx(r.Context(), nil)
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	defer tx.Rollback()

	existing, err := scanActionDate(tx.QueryRowContext(r.Context(),
		"SELECT "+actionDateColumns+" FROM action_dates WHERE id = $1 AND action_id = $2 FOR UPDATE",
		dateID, actionID))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Action date not found")
		return
	}
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}

	if req.ActionDate != nil {
		var dup int
		err := tx.QueryRowContext(r.Context(),
			"SELECT id FROM action_dates WHERE action_id = $1 AND action_date = $2 AND id != $3",
			actionID, *req.ActionDate, dateID).Scan(&dup)
		if err == nil {
			writeError(w, http.StatusConflict, "Another entry for this action with the same date already exists")
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			internalError(w, r, "Internal server error", err)
			return
		}
	}
	// Here only taking back a completed date needs an admin.
	var guard error
	switch {
	case req.IsCompleted == nil:
	case *req.IsCompleted:
		guard = checkLatestDate(r.Context(), tx, existing)
	case existing.IsCompleted:
		guard = checkRevert(currentUser(r).Role)
	}
	if guard != nil {
		writeRuleError(w, r, guard)
		return
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.ActionDate != nil {
		set("action_date", *req.ActionDate)
	}
	if req.StartTime != nil {
		set("start_time", *req.StartTime)
	}
	if req.EndTime.Set {
		set("end_time", blankToNil(req.EndTime.Value))
	}
	if req.IsCompleted != nil {
		set("is_completed", *req.IsCompleted)
	}
	args = append(args, dateID, actionID)
	query := fmt.Sprintf("UPDATE action_dates SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d AND action_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), actionDateColumns)

	updated, err := scanActionDate(tx.QueryRowContext(r.Context(), query, args...))
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "Another entry for this action with the same date already exists")
		return
	}
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	if err := tx.Commit(); err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func deleteActionDateHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	dateID, ok2 := pathID(r, "dateId")
	if !ok || !ok2 {
		writeError(w, http.StatusBadRequest, "Invalid IDs")
		return
	}

	res, err := db.ExecContext(r.Context(), "DELETE FROM action_dates WHERE id = $1 AND action_id = $2", dateID, actionID)
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Action date not found")
		return
	}
	writeMessage(w, http.StatusOK, nil, "Action date deleted successfully")
}

func deleteActionDatesCollectionHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Use /api/actions/{id}/dates/{dateId}")
}
