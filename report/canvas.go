package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Canvas is the mutable grid a report is written into. Rows are 1-based.
type Canvas interface {
	SetCellValue(cell string, value any) error
	// MergeRange merges topLeft:bottomRight. Re-merging an existing range is not an error.
	MergeRange(topLeft, bottomRight string) error
	// InsertRowCopyingFormat inserts a blank row at atRow, shifting atRow and
	// everything below it down by one, copies the styles of sourceRow for the
	// given columns onto it and returns the inserted row number.
	InsertRowCopyingFormat(sourceRow, atRow int, columns []string) (int, error)
	Bytes() ([]byte, error)
}

// SheetCanvas is a Canvas over one worksheet of an excelize workbook.
type SheetCanvas struct {
	file  *excelize.File
	sheet string
}

// NewSheetCanvas wraps an open workbook. The sheet must exist.
func NewSheetCanvas(f *excelize.File, sheet string) (*SheetCanvas, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("look up sheet %q: %w", sheet, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in template", sheet)
	}
	return &SheetCanvas{file: f, sheet: sheet}, nil
}

func (c *SheetCanvas) File() *excelize.File { return c.file }

func (c *SheetCanvas) SetCellValue(cell string, value any) error {
	return c.file.SetCellValue(c.sheet, cell, value)
}

func (c *SheetCanvas) MergeRange(topLeft, bottomRight string) error {
	// excelize drops any existing merge overlapping the new one, so this is idempotent.
	return c.file.MergeCell(c.sheet, topLeft, bottomRight)
}

func (c *SheetCanvas) InsertRowCopyingFormat(sourceRow, atRow int, columns []string) (int, error) {
	if atRow < 1 || sourceRow < 1 {
		return 0, fmt.Errorf("invalid row insert: source %d at %d", sourceRow, atRow)
	}
	if err := c.file.InsertRows(c.sheet, atRow, 1); err != nil {
		return 0, fmt.Errorf("insert row %d: %w", atRow, err)
	}
	src := sourceRow
	if src >= atRow {
		src++
	}

	height, err := c.file.GetRowHeight(c.sheet, src)
	if err != nil {
		return 0, fmt.Errorf("read height of row %d: %w", src, err)
	}
	if err := c.file.SetRowHeight(c.sheet, atRow, height); err != nil {
		return 0, fmt.Errorf("set height of row %d: %w", atRow, err)
	}

	for _, col := range columns {
		from := fmt.Sprintf("%s%d", col, src)
		to := fmt.Sprintf("%s%d", col, atRow)
		style, err := c.file.GetCellStyle(c.sheet, from)
		if err != nil {
			return 0, fmt.Errorf("read style of %s: %w", from, err)
		}
		if err := c.file.SetCellStyle(c.sheet, to, to, style); err != nil {
			return 0, fmt.Errorf("copy style to %s: %w", to, err)
		}
	}
	return atRow, nil
}

func (c *SheetCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close releases the workbook's temporary resources.
func (c *SheetCanvas) Close() error { return c.file.Close() }
