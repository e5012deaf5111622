package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the worksheet the report is written into.
const DefaultSheetName = "Template Sheet"

// Template is a parsed-once, never-mutated copy of the template workbook.
// Every Open returns an independent workbook, so one Template can serve
// concurrent compositions.
type Template struct {
	data  []byte
	sheet string
}

// LoadTemplate reads the workbook at path and checks that sheet exists.
func LoadTemplate(path, sheet string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return NewTemplate(data, sheet)
}

// NewTemplate wraps workbook bytes already in memory.
func NewTemplate(data []byte, sheet string) (*Template, error) {
	t := &Template{data: data, sheet: sheet}
	c, err := t.Open()
	if err != nil {
		return nil, err
	}
	return t, c.Close()
}

func (t *Template) Sheet() string { return t.sheet }

// Open parses a fresh workbook from the template bytes.
func (t *Template) Open() (*SheetCanvas, error) {
	f, err := excelize.OpenReader(bytes.NewReader(t.data))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	c, err := NewSheetCanvas(f, t.sheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// BuildDefaultTemplate creates the stock work-order sheet. Its data rows
// line up with DefaultSections.
func BuildDefaultTemplate(sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	widths := map[string]float64{"A": 24, "B": 42, "C": 24, "D": 16, "E": 26}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#FFFFFF", Bold: true, Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#666666"}, Pattern: 1},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	data, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	label, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Family: "Arial", Size: 10},
	})
	if err != nil {
		return nil, err
	}

	set := func(cell string, v any) {
		if err == nil {
			err = f.SetCellValue(sheet, cell, v)
		}
	}
	style := func(from, to string, id int) {
		if err == nil {
			err = f.SetCellStyle(sheet, from, to, id)
		}
	}
	merge := func(from, to string) {
		if err == nil {
			err = f.MergeCell(sheet, from, to)
		}
	}

	set("A1", "MAINTENANCE WORK ORDER")
	merge("A1", "C3")
	style("A1", "C3", title)
	for i, l := range []string{"Work Order No.", "Date", "Equipment No.", "KM / HRS", "Work Type"} {
		row := i + 1
		set(fmt.Sprintf("D%d", row), l)
		style(fmt.Sprintf("D%d", row), fmt.Sprintf("D%d", row), label)
		style(fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), data)
	}

	headers := map[Section][]string{
		SectionFindings:    {"No.", "Findings"},
		SectionActions:     {"Symbol", "Action Taken", "Start Time", "End Time", "Date"},
		SectionSpareParts:  {"No.", "Part Name", "Part Number", "Quantity", "Remarks"},
		SectionTechnicians: {"No.", "Technician", "Symbols", "Staff ID", "Signature"},
	}
	for _, spec := range DefaultSections {
		hr := spec.BaseRow - 1
		for i, h := range headers[spec.Section] {
			set(fmt.Sprintf("%s%d", spec.Columns[i], hr), h)
		}
		style(fmt.Sprintf("A%d", hr), fmt.Sprintf("E%d", hr), header)
		if spec.MergeFrom != spec.MergeTo {
			merge(fmt.Sprintf("%s%d", spec.MergeFrom, hr), fmt.Sprintf("%s%d", spec.MergeTo, hr))
		}
		for r := spec.BaseRow; r < spec.BaseRow+spec.Capacity; r++ {
			style(fmt.Sprintf("A%d", r), fmt.Sprintf("E%d", r), data)
			if spec.MergeFrom != spec.MergeTo {
				merge(fmt.Sprintf("%s%d", spec.MergeFrom, r), fmt.Sprintf("%s%d", spec.MergeTo, r))
			}
		}
	}

	set(allocatedByCell, "Job Allocated By:")
	set(requestedByCell, "Job Requested By:")
	style(allocatedByCell, allocatedByCell, label)
	style(requestedByCell, requestedByCell, label)

	last := DefaultSections[SectionTechnicians]
	sig := last.BaseRow + last.Capacity + 1
	set(fmt.Sprintf("A%d", sig), "Supervisor Signature:")
	set(fmt.Sprintf("D%d", sig), "Date:")
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
