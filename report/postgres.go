package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PostgresSource loads snapshots with plain SQL over database/sql.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

type actionRow struct {
	findingID int64
	action    Action
}

type actionDateRow struct {
	actionID int64
	date     ActionDate
}

type sparePartRow struct {
	actionID int64
	part     SparePart
}

// Snapshot reads every table the report needs inside one read-only
// transaction so the pieces agree with each other.
func (s *PostgresSource) Snapshot(ctx context.Context, workOrderID int64) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	wo, err := loadWorkOrder(ctx, tx, workOrderID)
	if err != nil {
		return nil, err
	}
	findings, err := loadFindings(ctx, tx, workOrderID)
	if err != nil {
		return nil, err
	}
	actions, err := loadActions(ctx, tx, workOrderID)
	if err != nil {
		return nil, err
	}
	dates, err := loadActionDates(ctx, tx, workOrderID)
	if err != nil {
		return nil, err
	}
	parts, err := loadSpareParts(ctx, tx, workOrderID)
	if err != nil {
		return nil, err
	}
	techs, err := loadAssignments(ctx, tx, workOrderID)
	if err != nil {
		return nil, err
	}

	snap := assemble(wo, findings, actions, dates, parts)
	snap.Assignments = techs
	return snap, nil
}

// assemble nests the flat rows into the snapshot tree, keeping each input's
// order at every level.
func assemble(wo WorkOrder, findings []Finding, actions []actionRow, dates []actionDateRow, parts []sparePartRow) *Snapshot {
	datesByAction := make(map[int64][]ActionDate)
	for _, d := range dates {
		datesByAction[d.actionID] = append(datesByAction[d.actionID], d.date)
	}
	partsByAction := make(map[int64][]SparePart)
	for _, p := range parts {
		partsByAction[p.actionID] = append(partsByAction[p.actionID], p.part)
	}
	actionsByFinding := make(map[int64][]Action)
	for _, ar := range actions {
		a := ar.action
		a.Dates = datesByAction[a.ID]
		a.SpareParts = partsByAction[a.ID]
		actionsByFinding[ar.findingID] = append(actionsByFinding[ar.findingID], a)
	}

	snap := &Snapshot{WorkOrder: wo, Findings: make([]Finding, len(findings))}
	for i, f := range findings {
		f.Actions = actionsByFinding[f.ID]
		snap.Findings[i] = f
	}
	return snap
}

func loadWorkOrder(ctx context.Context, tx *sql.Tx, id int64) (WorkOrder, error) {
	var (
		wo                         WorkOrder
		kmHrs, requestedBy         sql.NullString
		firstName, lastName, eqNum sql.NullString
		workType                   sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT wo.id, wo.work_order_no, wo.work_order_date, wo.equipment_number,
		       wo.km_hrs, wo.work_type, wo.requested_by, u.first_name, u.last_name
		FROM work_orders wo
		LEFT JOIN users u ON wo.requested_by_id = u.id
		WHERE wo.id = $1`, id).Scan(
		&wo.ID, &wo.Number, &wo.Date, &eqNum,
		&kmHrs, &workType, &requestedBy, &firstName, &lastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wo, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return wo, fmt.Errorf("load work order: %w", err)
	}
	wo.EquipmentNumber = eqNum.String
	wo.KmHrs = kmHrs.String
	wo.WorkType = workType.String
	wo.RequestedBy = requestedBy.String
	wo.AllocatorFirstName = firstName.String
	wo.AllocatorLastName = lastName.String
	return wo, nil
}

func loadFindings(ctx context.Context, tx *sql.Tx, workOrderID int64) ([]Finding, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, description
		FROM findings
		WHERE work_order_id = $1
		ORDER BY id`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var (
			f    Finding
			desc sql.NullString
		)
		if err := rows.Scan(&f.ID, &desc); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Description = desc.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func loadActions(ctx context.Context, tx *sql.Tx, workOrderID int64) ([]actionRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT a.id, a.finding_id, a.description, a.action_date, a.start_time, a.end_time
		FROM actions a
		JOIN findings f ON f.id = a.finding_id
		WHERE f.work_order_id = $1
		ORDER BY a.id`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	defer rows.Close()

	var out []actionRow
	for rows.Next() {
		var (
			ar               actionRow
			desc, start, end sql.NullString
			date             sql.NullTime
		)
		if err := rows.Scan(&ar.action.ID, &ar.findingID, &desc, &date, &start, &end); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		ar.action.Description = desc.String
		ar.action.StartTime = start.String
		ar.action.EndTime = end.String
		if date.Valid {
			d := date.Time
			ar.action.ActionDate = &d
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

func loadActionDates(ctx context.Context, tx *sql.Tx, workOrderID int64) ([]actionDateRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ad.action_id, ad.action_date, ad.start_time, ad.end_time, ad.is_completed
		FROM action_dates ad
		JOIN actions a ON a.id = ad.action_id
		JOIN findings f ON f.id = a.finding_id
		WHERE f.work_order_id = $1
		ORDER BY ad.action_date ASC, ad.id ASC`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("load action dates: %w", err)
	}
	defer rows.Close()

	var out []actionDateRow
	for rows.Next() {
		var (
			dr         actionDateRow
			day        time.Time
			start, end sql.NullString
		)
		if err := rows.Scan(&dr.actionID, &day, &start, &end, &dr.date.Completed); err != nil {
			return nil, fmt.Errorf("scan action date: %w", err)
		}
		dr.date.Date = day
		dr.date.StartTime = start.String
		if end.Valid {
			e := end.String
			dr.date.EndTime = &e
		}
		out = append(out, dr)
	}
	return out, rows.Err()
}

func loadSpareParts(ctx context.Context, tx *sql.Tx, workOrderID int64) ([]sparePartRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT sp.id, sp.action_id, sp.part_name, sp.part_number, sp.quantity, sp.unit
		FROM spare_parts sp
		JOIN actions a ON a.id = sp.action_id
		JOIN findings f ON f.id = a.finding_id
		WHERE f.work_order_id = $1
		ORDER BY sp.id`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("load spare parts: %w", err)
	}
	defer rows.Close()

	var out []sparePartRow
	for rows.Next() {
		var (
			pr                 sparePartRow
			name, number, unit sql.NullString
			qty                decimal.NullDecimal
		)
		if err := rows.Scan(&pr.part.ID, &pr.actionID, &name, &number, &qty, &unit); err != nil {
			return nil, fmt.Errorf("scan spare part: %w", err)
		}
		pr.part.PartName = name.String
		pr.part.PartNumber = number.String
		pr.part.Unit = unit.String
		if qty.Valid {
			pr.part.Quantity = qty.Decimal
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func loadAssignments(ctx context.Context, tx *sql.Tx, workOrderID int64) ([]TechnicianAssignment, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT at.name, at.staff_id, at.action_id
		FROM action_technicians at
		JOIN actions a ON a.id = at.action_id
		JOIN findings f ON f.id = a.finding_id
		WHERE f.work_order_id = $1
		ORDER BY at.name, at.staff_id`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("load technicians: %w", err)
	}
	defer rows.Close()

	var out []TechnicianAssignment
	for rows.Next() {
		var (
			t             TechnicianAssignment
			name, staffID sql.NullString
		)
		if err := rows.Scan(&name, &staffID, &t.ActionID); err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		t.Name = name.String
		t.StaffID = staffID.String
		out = append(out, t)
	}
	return out, rows.Err()
}
