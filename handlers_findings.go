package main

import (
	"database/sql"
	"errors"
	"net/http"
)

// deleteByID removes one row and answers 404 when nothing matched.
func deleteByID(w http.ResponseWriter, r *http.Request, table, label string) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return
	}
	res, err := db.ExecContext(r.Context(), "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		internalError(w, r, "Failed to delete "+label, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeMessage(w, http.StatusOK, nil, "Deleted successfully")
}

// Findings

func getFindingsHandler(w http.ResponseWriter, r *http.Request) {
	workOrderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	rows, err := db.QueryContext(r.Context(),
		"SELECT id, work_order_id, description, created_at FROM findings WHERE work_order_id = $1 ORDER BY id",
		workOrderID)
	if err != nil {
		internalError(w, r, "Failed to fetch findings", err)
		return
	}
	defer rows.Close()

	findings := []Finding{}
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.ID, &f.WorkOrderID, &f.Description, &f.CreatedAt); err != nil {
			internalError(w, r, "Failed to fetch findings", err)
			return
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch findings", err)
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

func createFindingHandler(w http.ResponseWriter, r *http.Request) {
	workOrderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid work order ID")
		return
	}
	var req findingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := Finding{WorkOrderID: workOrderID, Description: req.Description}
	err := db.QueryRowContext(r.Context(),
		"INSERT INTO findings (work_order_id, description) VALUES ($1, $2) RETURNING id, created_at",
		workOrderID, req.Description).Scan(&f.ID, &f.CreatedAt)
	if isForeignKeyViolation(err) {
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create finding", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func updateFindingHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid finding ID")
		return
	}
	var req findingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := Finding{ID: id, Description: req.Description}
	err := db.QueryRowContext(r.Context(),
		"UPDATE findings SET description = $1 WHERE id = $2 RETURNING work_order_id, created_at",
		req.Description, id).Scan(&f.WorkOrderID, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Finding not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update finding", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func deleteFindingHandler(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, "findings", "finding")
}

// Actions

const actionColumns = "id, finding_id, description, action_date, start_time, end_time"

func getActionsHandler(w http.ResponseWriter, r *http.Request) {
	findingID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid finding ID")
		return
	}

	rows, err := db.QueryContext(r.Context(),
		"SELECT "+actionColumns+" FROM actions WHERE finding_id = $1 ORDER BY id", findingID)
	if err != nil {
		internalError(w, r, "Failed to fetch actions", err)
		return
	}
	defer rows.Close()

	actions := []Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			internalError(w, r, "Failed to fetch actions", err)
			return
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch actions", err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func createActionHandler(w http.ResponseWriter, r *http.Request) {
	findingID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid finding ID")
		return
	}
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := scanAction(db.QueryRowContext(r.Context(), `
        INSERT INTO actions (finding_id, description, action_date, start_time, end_time)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+actionColumns,
		findingID, req.Description, blankToNil(req.ActionDate), blankToNil(req.StartTime), blankToNil(req.EndTime)))
	if isForeignKeyViolation(err) {
		writeError(w, http.StatusNotFound, "Finding not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create action", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func updateActionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := scanAction(db.QueryRowContext(r.Context(), `
        UPDATE actions SET description = $1, action_date = $2, start_time = $3, end_time = $4
        WHERE id = $5
        RETURNING `+actionColumns,
		req.Description, blankToNil(req.ActionDate), blankToNil(req.StartTime), blankToNil(req.EndTime), id))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Action not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update action", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func deleteActionHandler(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, "actions", "action")
}
