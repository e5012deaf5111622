package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const workOrderColumns = `id, work_order_no, work_order_date, equipment_number, km_hrs, work_type,
       requested_by, COALESCE(requested_by_id, 0), status, rejection_reason, approved_by, approved_at,
       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(s rowScanner) (WorkOrder, error) {
	var wo WorkOrder
	var date time.Time
	var kmHrs, reason sql.NullString
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime
	err := s.Scan(&wo.ID, &wo.WorkOrderNo, &date, &wo.EquipmentNumber, &kmHrs, &wo.WorkType,
		&wo.RequestedBy, &wo.RequestedByID, &wo.Status, &reason, &approvedBy, &approvedAt,
		&wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		return wo, err
	}
	wo.WorkOrderDate = date.Format(dateLayout)
	if kmHrs.Valid {
		wo.KmHrs = &kmHrs.String
	}
	if reason.Valid {
		wo.RejectionReason = &reason.String
	}
	if approvedBy.Valid {
		id := int(approvedBy.Int64)
		wo.ApprovedBy = &id
	}
	if approvedAt.Valid {
		wo.ApprovedAt = &approvedAt.Time
	}
	return wo, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func fetchWorkOrder(ctx context.Context, q queryRower, id int, lock bool) (WorkOrder, error) {
	query := "SELECT " + workOrderColumns + " FROM work_orders WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	return scanWorkOrder(q.QueryRowContext(ctx, query, id))
}

func getWorkOrdersHandler(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + workOrderColumns + " FROM work_orders"
	var args []any
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.QueryContext(r.Context(), query, args...)
	if err != nil {
		internalError(w, r, "Failed to fetch work orders", err)
		return
	}
	defer rows.Close()

	orders := []WorkOrder{}
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			internalError(w, r, "Failed to fetch work orders", err)
			return
		}
		orders = append(orders, wo)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch work orders", err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func getWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	wo, err := fetchWorkOrder(r.Context(), db, id, false)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to fetch work order", err)
		return
	}

	if err := loadWorkOrderTree(r.Context(), &wo); err != nil {
		internalError(w, r, "Failed to fetch work order", err)
		return
	}

	writeJSON(w, http.StatusOK, wo)
}

// loadWorkOrderTree fills findings, their actions and each action's spare
// parts and technicians with one query per level.
func loadWorkOrderTree(ctx context.Context, wo *WorkOrder) error {
	findings, err := db.QueryContext(ctx,
		"SELECT id, work_order_id, description, created_at FROM findings WHERE work_order_id = $1 ORDER BY id", wo.ID)
	if err != nil {
		return fmt.Errorf("load findings: %w", err)
	}
	defer findings.Close()
	findingIdx := map[int]int{}
	wo.Findings = []Finding{}
	for findings.Next() {
		var f Finding
		if err := findings.Scan(&f.ID, &f.WorkOrderID, &f.Description, &f.CreatedAt); err != nil {
			return fmt.Errorf("scan finding: %w", err)
		}
		findingIdx[f.ID] = len(wo.Findings)
		wo.Findings = append(wo.Findings, f)
	}
	if err := findings.Err(); err != nil {
		return fmt.Errorf("load findings: %w", err)
	}

	actions, err := db.QueryContext(ctx, `
        SELECT a.id, a.finding_id, a.description, a.action_date, a.start_time, a.end_time
        FROM actions a
        JOIN findings f ON a.finding_id = f.id
        WHERE f.work_order_id = $1
        ORDER BY a.id`, wo.ID)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	defer actions.Close()
	type actionRef struct{ finding, action int }
	actionIdx := map[int]actionRef{}
	for actions.Next() {
		a, err := scanAction(actions)
		if err != nil {
			return err
		}
		fi := findingIdx[a.FindingID]
		actionIdx[a.ID] = actionRef{fi, len(wo.Findings[fi].Actions)}
		wo.Findings[fi].Actions = append(wo.Findings[fi].Actions, a)
	}
	if err := actions.Err(); err != nil {
		return fmt.Errorf("load actions: %w", err)
	}

	parts, err := db.QueryContext(ctx, `
        SELECT sp.id, sp.action_id, sp.part_name, COALESCE(sp.part_number, ''), sp.quantity, sp.unit
        FROM spare_parts sp
        JOIN actions a ON sp.action_id = a.id
        JOIN findings f ON a.finding_id = f.id
        WHERE f.work_order_id = $1
        ORDER BY sp.id`, wo.ID)
	if err != nil {
		return fmt.Errorf("load spare parts: %w", err)
	}
	defer parts.Close()
	for parts.Next() {
		p, err := scanSparePart(parts)
		if err != nil {
			return err
		}
		if ref, ok := actionIdx[p.ActionID]; ok {
			a := &wo.Findings[ref.finding].Actions[ref.action]
			a.SpareParts = append(a.SpareParts, p)
		}
	}
	if err := parts.Err(); err != nil {
		return fmt.Errorf("load spare parts: %w", err)
	}

	techs, err := db.QueryContext(ctx, `
        SELECT at.id, at.action_id, at.name, at.staff_id
        FROM action_technicians at
        JOIN actions a ON at.action_id = a.id
        JOIN findings f ON a.finding_id = f.id
        WHERE f.work_order_id = $1
        ORDER BY at.id`, wo.ID)
	if err != nil {
		return fmt.Errorf("load technicians: %w", err)
	}
	defer techs.Close()
	for techs.Next() {
		var t Technician
		if err := techs.Scan(&t.ID, &t.ActionID, &t.Name, &t.StaffID); err != nil {
			return fmt.Errorf("scan technician: %w", err)
		}
		if ref, ok := actionIdx[t.ActionID]; ok {
			a := &wo.Findings[ref.finding].Actions[ref.action]
			a.Technicians = append(a.Technicians, t)
		}
	}
	return techs.Err()
}

func scanAction(s rowScanner) (Action, error) {
	var a Action
	var date sql.NullTime
	var start, end sql.NullString
	if err := s.Scan(&a.ID, &a.FindingID, &a.Description, &date, &start, &end); err != nil {
		return a, fmt.Errorf("scan action: %w", err)
	}
	if date.Valid {
		d := date.Time.Format(dateLayout)
		a.ActionDate = &d
	}
	if start.Valid {
		a.StartTime = &start.String
	}
	if end.Valid {
		a.EndTime = &end.String
	}
	return a, nil
}

func scanSparePart(s rowScanner) (SparePart, error) {
	var p SparePart
	var qty decimal.NullDecimal
	var unit sql.NullString
	if err := s.Scan(&p.ID, &p.ActionID, &p.PartName, &p.PartNumber, &qty, &unit); err != nil {
		return p, fmt.Errorf("scan spare part: %w", err)
	}
	p.Quantity = qty.Decimal
	if unit.Valid {
		p.Unit = &unit.String
	}
	return p, nil
}

func createWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req workOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := currentUser(r)

	tx, err := db.BeginTx(r.Context(), nil)
	if err != nil {
		internalError(w, r, "Failed to create work order", err)
		return
	}
	defer tx.Rollback()

	wo, err := scanWorkOrder(tx.QueryRowContext(r.Context(), `
        INSERT INTO work_orders (work_order_no, work_order_date, equipment_number, km_hrs, work_type,
                                 requested_by, requested_by_id, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+workOrderColumns,
		req.WorkOrderNo, req.WorkOrderDate, req.EquipmentNumber, blankToNil(req.KmHrs), req.WorkType,
		req.RequestedBy, user.ID, statusPending))
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "A work order with this number already exists")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create work order", err)
		return
	}

	if err := notifyAdmins(r.Context(), tx, wo.ID, "New work order",
		fmt.Sprintf("Work order %s was submitted by %s", wo.WorkOrderNo, user.Username)); err != nil {
		internalError(w, r, "Failed to create work order", err)
		return
	}

	if err := tx.Commit(); err != nil {
		internalError(w, r, "Failed to create work order", err)
		return
	}

	writeMessage(w, http.StatusCreated, wo, "Work order created successfully")
}

func updateWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid work order ID")
		return
	}
	var req workOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := fetchWorkOrder(r.Context(), db, id, false)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update work order", err)
		return
	}
	user := currentUser(r)
	if existing.RequestedByID != user.ID && !roleAtLeast(user.Role, roleAdmin) {
		writeError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	wo, err := scanWorkOrder(db.QueryRowContext(r.Context(), `
        UPDATE work_orders
        SET work_order_no = $1, work_order_date = $2, equipment_number = $3, km_hrs = $4,
            work_type = $5, requested_by = $6, updated_at = CURRENT_TIMESTAMP
        WHERE id = $7
        RETURNING `+workOrderColumns,
		req.WorkOrderNo, req.WorkOrderDate, req.EquipmentNumber, blankToNil(req.KmHrs), req.WorkType,
		req.RequestedBy, id))
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "A work order with this number already exists")
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update work order", err)
		return
	}

	writeJSON(w, http.StatusOK, wo)
}

func deleteWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	// findings, actions and their children go with ON DELETE CASCADE
	res, err := db.ExecContext(r.Context(), "DELETE FROM work_orders WHERE id = $1", id)
	if err != nil {
		internalError(w, r, "Failed to delete work order", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	}

	writeMessage(w, http.StatusOK, nil, "Work order deleted successfully")
}

// reviewWorkOrder runs one status transition inside a transaction: lock the
// row, check the rule, apply the update and notify.
func reviewWorkOrder(w http.ResponseWriter, r *http.Request, check func(WorkOrder) error,
	apply func(tx *sql.Tx, wo WorkOrder) (WorkOrder, error), message string) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	tx, err := db.BeginTx(r.Context(), nil)
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	defer tx.Rollback()

	wo, err := fetchWorkOrder(r.Context(), tx, id, true)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	}
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	if err := check(wo); err != nil {
		writeRuleError(w, r, err)
		return
	}

	updated, err := apply(tx, wo)
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	if err := tx.Commit(); err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}

	requestLogger(r).Info("work order status changed",
		zap.Int("work_order_id", updated.ID),
		zap.String("status", updated.Status),
		zap.Int("user_id", currentUser(r).ID))
	writeMessage(w, http.StatusOK, updated, message)
}

func approveWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	reviewWorkOrder(w, r, checkReview, func(tx *sql.Tx, wo WorkOrder) (WorkOrder, error) {
		updated, err := scanWorkOrder(tx.QueryRowContext(r.Context(), `
            UPDATE work_orders
            SET status = $1, approved_by = $2, approved_at = CURRENT_TIMESTAMP,
                rejection_reason = NULL, updated_at = CURRENT_TIMESTAMP
            WHERE id = $3
            RETURNING `+workOrderColumns, statusApproved, user.ID, wo.ID))
		if err != nil {
			return updated, err
		}
		return updated, notifyUser(r.Context(), tx, wo.RequestedByID, wo.ID, "Work order approved",
			fmt.Sprintf("Work order %s was approved by %s", wo.WorkOrderNo, user.Username))
	}, "Work order approved successfully")
}

func rejectWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := currentUser(r)
	reviewWorkOrder(w, r, checkReview, func(tx *sql.Tx, wo WorkOrder) (WorkOrder, error) {
		updated, err := scanWorkOrder(tx.QueryRowContext(r.Context(), `
            UPDATE work_orders
            SET status = $1, rejection_reason = $2, approved_by = NULL, approved_at = NULL,
                updated_at = CURRENT_TIMESTAMP
            WHERE id = $3
            RETURNING `+workOrderColumns, statusRejected, req.Reason, wo.ID))
		if err != nil {
			return updated, err
		}
		return updated, notifyUser(r.Context(), tx, wo.RequestedByID, wo.ID, "Work order rejected",
			fmt.Sprintf("Work order %s was rejected by %s: %s", wo.WorkOrderNo, user.Username, req.Reason))
	}, "Work order rejected")
}

func resubmitWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	check := func(wo WorkOrder) error { return checkResubmit(wo, user.ID) }
	reviewWorkOrder(w, r, check, func(tx *sql.Tx, wo WorkOrder) (WorkOrder, error) {
		updated, err := scanWorkOrder(tx.QueryRowContext(r.Context(), `
            UPDATE work_orders
            SET status = $1, rejection_reason = NULL, approved_by = NULL, approved_at = NULL,
                updated_at = CURRENT_TIMESTAMP
            WHERE id = $2 AND status = $3
            RETURNING `+workOrderColumns, statusPending, wo.ID, statusRejected))
		if err != nil {
			return updated, err
		}
		return updated, notifyAdmins(r.Context(), tx, wo.ID, "Work order resubmitted",
			fmt.Sprintf("Work order %s was resubmitted by %s", wo.WorkOrderNo, user.Username))
	}, "Work order resubmitted successfully")
}
