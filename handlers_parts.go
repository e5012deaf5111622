package main

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
)

const sparePartColumns = "id, action_id, part_name, COALESCE(part_number, ''), quantity, unit"

func getSparePartsHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}

	rows, err := db.QueryContext(r.Context(),
		"SELECT "+sparePartColumns+" FROM spare_parts WHERE action_id = $1 ORDER BY id", actionID)
	if err != nil {
		internalError(w, r, "Failed to fetch spare parts", err)
		return
	}
	defer rows.Close()

	parts := []SparePart{}
	for rows.Next() {
		p, err := scanSparePart(rows)
		if err != nil {
			internalError(w, r, "Failed to fetch spare parts", err)
			return
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch spare parts", err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

func decodeSparePart(r *http.Request) (sparePartRequest, error) {
	var req sparePartRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	if !req.Quantity.IsPositive() {
		return req, errors.New("quantity must be greater than zero")
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		req.Unit = &unit
	}
	return req, nil
}

func createSparePartHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}
	req, err := decodeSparePart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := scanSparePart(db.QueryRowContext(r.Context(), `
        INSERT INTO spare_parts (action_id, part_name, part_number, quantity, unit)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+sparePartColumns,
		actionID, req.PartName, req.PartNumber, req.Quantity, blankToNil(req.Unit)))
	if isForeignKeyViolation(err) {
		writeError(w, http.StatusNotFound, "Action not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create spare part", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func updateSparePartHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid spare part ID")
		return
	}
	req, err := decodeSparePart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := scanSparePart(db.QueryRowContext(r.Context(), `
        UPDATE spare_parts SET part_name = $1, part_number = $2, quantity = $3, unit = $4
        WHERE id = $5
        RETURNING `+sparePartColumns,
		req.PartName, req.PartNumber, req.Quantity, blankToNil(req.Unit), id))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Spare part not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update spare part", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func deleteSparePartHandler(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, "spare_parts", "spare part")
}

// Technicians

func getTechniciansHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}

	rows, err := db.QueryContext(r.Context(),
		"SELECT id, action_id, name, staff_id FROM action_technicians WHERE action_id = $1 ORDER BY id", actionID)
	if err != nil {
		internalError(w, r, "Failed to fetch technicians", err)
		return
	}
	defer rows.Close()

	techs := []Technician{}
	for rows.Next() {
		var t Technician
		if err := rows.Scan(&t.ID, &t.ActionID, &t.Name, &t.StaffID); err != nil {
			internalError(w, r, "Failed to fetch technicians", err)
			return
		}
		techs = append(techs, t)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch technicians", err)
		return
	}
	writeJSON(w, http.StatusOK, techs)
}

func createTechnicianHandler(w http.ResponseWriter, r *http.Request) {
	actionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}
	var req technicianRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t := Technician{ActionID: actionID, Name: strings.TrimSpace(req.Name), StaffID: strings.TrimSpace(req.StaffID)}
	err := db.QueryRowContext(r.Context(),
		"INSERT INTO action_technicians (action_id, name, staff_id) VALUES ($1, $2, $3) RETURNING id",
		actionID, t.Name, t.StaffID).Scan(&t.ID)
	switch {
	case isForeignKeyViolation(err):
		writeError(w, http.StatusNotFound, "Action not found")
		return
	case isUniqueViolation(err):
		writeError(w, http.StatusConflict, "Technician is already assigned to this action")
		return
	case err != nil:
		internalError(w, r, "Failed to assign technician", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func updateTechnicianHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid technician ID")
		return
	}
	var req technicianRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t := Technician{ID: id, Name: strings.TrimSpace(req.Name), StaffID: strings.TrimSpace(req.StaffID)}
	err := db.QueryRowContext(r.Context(),
		"UPDATE action_technicians SET name = $1, staff_id = $2 WHERE id = $3 RETURNING action_id",
		t.Name, t.StaffID, id).Scan(&t.ActionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "Technician not found")
		return
	case isUniqueViolation(err):
		writeError(w, http.StatusConflict, "Technician is already assigned to this action")
		return
	case err != nil:
		internalError(w, r, "Failed to update technician", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func deleteTechnicianHandler(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, "action_technicians", "technician")
}
