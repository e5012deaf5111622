package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNotFound means the work order does not exist.
	ErrNotFound = errors.New("work order not found")
	// ErrMalformedInput means the work order id is missing or not a positive integer.
	ErrMalformedInput = errors.New("work order id is required and must be a positive integer")
)

const (
	allocatedByCell = "A12"
	requestedByCell = "C12"
)

// Source fetches the snapshot of one work order. It returns ErrNotFound
// (possibly wrapped) for an unknown id.
type Source interface {
	Snapshot(ctx context.Context, workOrderID int64) (*Snapshot, error)
}

// ParseWorkOrderID validates a raw id before any data is fetched.
func ParseWorkOrderID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrMalformedInput
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedInput, raw)
	}
	return id, nil
}

// Composer renders work orders onto the template.
type Composer struct {
	source   Source
	template *Template
	sections [4]SectionSpec
	log      *zap.Logger
}

func NewComposer(source Source, tmpl *Template, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{source: source, template: tmpl, sections: DefaultSections, log: log}
}

// Document is a finished report together with the number it was issued for.
type Document struct {
	WorkOrderNumber string
	Data            []byte
}

// Compose builds the finished spreadsheet for one work order. Either a
// complete document or an error is returned, never a partial buffer.
func (c *Composer) Compose(ctx context.Context, workOrderID int64) ([]byte, error) {
	doc, err := c.ComposeDocument(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (c *Composer) ComposeDocument(ctx context.Context, workOrderID int64) (*Document, error) {
	if workOrderID <= 0 {
		return nil, ErrMalformedInput
	}
	snap, err := c.source.Snapshot(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch work order %d: %w", workOrderID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas, err := c.template.Open()
	if err != nil {
		return nil, err
	}
	defer canvas.Close()

	placements, err := c.Render(canvas, snap)
	if err != nil {
		return nil, fmt.Errorf("render work order %d: %w", workOrderID, err)
	}

	out, err := canvas.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize work order %d: %w", workOrderID, err)
	}

	overflow := 0
	for _, p := range placements {
		overflow += p.Overflow
	}
	c.log.Info("work order report composed",
		zap.Int64("work_order_id", workOrderID),
		zap.Int("bytes", len(out)),
		zap.Int("inserted_rows", overflow))
	return &Document{WorkOrderNumber: snap.WorkOrder.Number, Data: out}, nil
}

// Render writes the header and all four sections of snap onto canvas and
// returns where each section ended up.
func (c *Composer) Render(canvas Canvas, snap *Snapshot) ([4]Placement, error) {
	if err := writeHeader(canvas, snap.WorkOrder); err != nil {
		return [4]Placement{}, fmt.Errorf("header: %w", err)
	}

	proj := Project(snap)
	counts := [4]int{len(proj.Findings), len(proj.Actions), len(proj.SpareParts), len(proj.Technicians)}
	placements := Plan(c.sections, counts)
	for _, p := range placements {
		c.log.Debug("section placed",
			zap.Stringer("section", p.Section),
			zap.Int("start_row", p.StartRow),
			zap.Int("count", p.Count),
			zap.Int("overflow", p.Overflow))
	}

	symbols := make(Symbols, len(proj.Actions))
	fillers := [4]rowFiller{
		findingsFiller(canvas, proj.Findings),
		actionsFiller(canvas, proj.Actions, symbols),
		sparePartsFiller(canvas, proj.SpareParts),
		techniciansFiller(canvas, proj.Technicians, symbols),
	}
	for i, spec := range c.sections {
		if err := materialize(canvas, spec, placements[i], fillers[i]); err != nil {
			return placements, err
		}
	}
	return placements, nil
}

func writeHeader(c Canvas, wo WorkOrder) error {
	km := strings.TrimSpace(wo.KmHrs)
	if km == "" {
		km = "N/A"
	}
	cells := []struct {
		cell  string
		value any
	}{
		{"E1", wo.Number},
		{"E2", formatDate(wo.Date)},
		{"E3", wo.EquipmentNumber},
		{"E4", km},
		{"E5", wo.WorkType},
		{requestedByCell, "Job Requested By: " + wo.RequestedBy},
		{allocatedByCell, "Job Allocated By: " + strings.TrimSpace(wo.AllocatorFirstName+" "+wo.AllocatorLastName)},
	}
	for _, cv := range cells {
		if err := c.SetCellValue(cv.cell, cv.value); err != nil {
			return fmt.Errorf("set %s: %w", cv.cell, err)
		}
	}
	return nil
}
