package report

import (
	"fmt"
)

// rowFiller writes item index into the given absolute row.
type rowFiller func(row, index int) error

// materialize writes p.Count items of one section. The first Capacity items
// go into the template's own rows; each further item gets a row duplicated
// from the section's first data row and inserted at the cursor. The cursor
// is always re-derived from the canvas's returned row number because every
// insertion moves everything below it.
func materialize(c Canvas, spec SectionSpec, p Placement, fill rowFiller) error {
	if !p.Rendered() {
		return nil
	}
	cursor := p.StartRow
	for i := 0; i < p.Count; i++ {
		row := cursor
		if i >= spec.Capacity {
			inserted, err := c.InsertRowCopyingFormat(p.StartRow, cursor, spec.Columns)
			if err != nil {
				return fmt.Errorf("%s: insert overflow row %d: %w", spec.Section, i+1, err)
			}
			row = inserted
		}
		if err := fill(row, i); err != nil {
			return fmt.Errorf("%s: row %d: %w", spec.Section, row, err)
		}
		if spec.MergeFrom != spec.MergeTo {
			from := fmt.Sprintf("%s%d", spec.MergeFrom, row)
			to := fmt.Sprintf("%s%d", spec.MergeTo, row)
			if err := c.MergeRange(from, to); err != nil {
				return fmt.Errorf("%s: merge %s:%s: %w", spec.Section, from, to, err)
			}
		}
		cursor = row + 1
	}
	return nil
}

// cellWriter collects the first error of a run of cell writes on one row.
type cellWriter struct {
	c   Canvas
	row int
	err error
}

func (w *cellWriter) set(col string, v any) {
	if w.err != nil {
		return
	}
	w.err = w.c.SetCellValue(fmt.Sprintf("%s%d", col, w.row), v)
}

func findingsFiller(c Canvas, findings []Finding) rowFiller {
	return func(row, i int) error {
		w := &cellWriter{c: c, row: row}
		w.set("A", i+1)
		w.set("B", findings[i].Description)
		return w.err
	}
}

// actionsFiller also assigns each written action its symbol, which is the
// same number shown in its first column.
func actionsFiller(c Canvas, actions []Action, symbols Symbols) rowFiller {
	return func(row, i int) error {
		a := actions[i]
		symbols.Assign(a.ID, i+1)
		win := a.Window()

		w := &cellWriter{c: c, row: row}
		w.set("A", i+1)
		w.set("B", a.Description)
		w.set("C", win.Start)
		w.set("D", win.End)
		w.set("E", win.Date)
		return w.err
	}
}

func sparePartsFiller(c Canvas, parts []SparePart) rowFiller {
	return func(row, i int) error {
		sp := parts[i]
		w := &cellWriter{c: c, row: row}
		w.set("A", i+1)
		w.set("B", sp.PartName)
		w.set("C", sp.PartNumber)
		w.set("D", quantityCell(sp.Quantity, sp.Unit))
		return w.err
	}
}

func techniciansFiller(c Canvas, techs []Technician, symbols Symbols) rowFiller {
	return func(row, i int) error {
		t := techs[i]
		w := &cellWriter{c: c, row: row}
		w.set("A", i+1)
		w.set("B", t.Name)
		w.set("C", symbols.CSV(t.ActionIDs))
		w.set("D", t.StaffID)
		return w.err
	}
}
