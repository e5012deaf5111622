package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeSource struct {
	snap  *Snapshot
	err   error
	calls atomic.Int32
}

func (s *fakeSource) Snapshot(_ context.Context, id int64) (*Snapshot, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func defaultTemplate(t *testing.T) *Template {
	t.Helper()
	data, err := BuildDefaultTemplate(DefaultSheetName)
	require.NoError(t, err)
	tmpl, err := NewTemplate(data, DefaultSheetName)
	require.NoError(t, err)
	return tmpl
}

func openResult(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(DefaultSheetName, ref)
	require.NoError(t, err)
	return v
}

// fiveByFive is five findings with one action each, no spare parts and two
// technicians who worked on every action.
func fiveByFive() *Snapshot {
	snap := &Snapshot{WorkOrder: WorkOrder{
		ID: 7, Number: "WO-2024-007", Date: day(2024, 6, 1), EquipmentNumber: "EQ-12",
		WorkType: "Corrective", RequestedBy: "Ops Desk", AllocatorFirstName: "Jane", AllocatorLastName: "Doe",
	}}
	for i := 1; i <= 5; i++ {
		start := day(2024, 6, i)
		snap.Findings = append(snap.Findings, Finding{
			ID:          int64(i),
			Description: fmt.Sprintf("Finding %d", i),
			Actions: []Action{{
				ID: int64(100 + i), Description: fmt.Sprintf("Action %d", i),
				StartTime: "08:00:00", EndTime: "10:00:00", ActionDate: &start,
			}},
		})
		for _, tech := range []TechnicianAssignment{{StaffID: "T1", Name: "Ali"}, {StaffID: "T2", Name: "Bea"}} {
			tech.ActionID = int64(100 + i)
			snap.Assignments = append(snap.Assignments, tech)
		}
	}
	return snap
}

func TestComposeOverflowScenario(t *testing.T) {
	src := &fakeSource{snap: fiveByFive()}
	c := NewComposer(src, defaultTemplate(t), nil)

	out, err := c.Compose(context.Background(), 7)
	require.NoError(t, err)
	f := openResult(t, out)

	assert.Equal(t, "WO-2024-007", cell(t, f, "E1"))
	assert.Equal(t, "01/06/2024", cell(t, f, "E2"))
	assert.Equal(t, "N/A", cell(t, f, "E4"))

	for i := 1; i <= 5; i++ {
		row := 7 + i
		assert.Equal(t, fmt.Sprint(i), cell(t, f, fmt.Sprintf("A%d", row)))
		assert.Equal(t, fmt.Sprintf("Finding %d", i), cell(t, f, fmt.Sprintf("B%d", row)))
	}

	// Everything between findings and actions moved down by the two inserted rows.
	assert.Equal(t, "Job Allocated By: Jane Doe", cell(t, f, "A14"))
	assert.Equal(t, "Job Requested By: Ops Desk", cell(t, f, "C14"))
	assert.Equal(t, "Symbol", cell(t, f, "A16"))

	for i := 1; i <= 5; i++ {
		row := 16 + i
		assert.Equal(t, fmt.Sprint(i), cell(t, f, fmt.Sprintf("A%d", row)))
		assert.Equal(t, fmt.Sprintf("Action %d", i), cell(t, f, fmt.Sprintf("B%d", row)))
		assert.Equal(t, "08:00", cell(t, f, fmt.Sprintf("C%d", row)))
		assert.Equal(t, "10:00", cell(t, f, fmt.Sprintf("D%d", row)))
		assert.Equal(t, fmt.Sprintf("0%d/06/2024", i), cell(t, f, fmt.Sprintf("E%d", row)))
	}

	assert.Equal(t, "Part Name", cell(t, f, "B23"))
	assert.Equal(t, "", cell(t, f, "B24"))

	assert.Equal(t, "Technician", cell(t, f, "B29"))
	assert.Equal(t, "Ali", cell(t, f, "B30"))
	assert.Equal(t, "1,2,3,4,5", cell(t, f, "C30"))
	assert.Equal(t, "T1", cell(t, f, "D30"))
	assert.Equal(t, "Bea", cell(t, f, "B31"))
	assert.Equal(t, "1,2,3,4,5", cell(t, f, "C31"))
	assert.Equal(t, "", cell(t, f, "B32"))
}

func TestComposeOverflowRowsKeepFormatAndMerge(t *testing.T) {
	c := NewComposer(&fakeSource{snap: fiveByFive()}, defaultTemplate(t), nil)
	out, err := c.Compose(context.Background(), 7)
	require.NoError(t, err)
	f := openResult(t, out)

	anchor, err := f.GetCellStyle(DefaultSheetName, "A8")
	require.NoError(t, err)
	for _, ref := range []string{"A11", "A12", "E12", "A20", "E21"} {
		style, err := f.GetCellStyle(DefaultSheetName, ref)
		require.NoError(t, err)
		assert.Equal(t, anchor, style, ref)
	}

	merges, err := f.GetMergeCells(DefaultSheetName)
	require.NoError(t, err)
	var ranges []string
	for _, m := range merges {
		ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	for row := 8; row <= 12; row++ {
		assert.Contains(t, ranges, fmt.Sprintf("B%d:E%d", row, row))
	}
}

func TestComposeWithinCapacity(t *testing.T) {
	snap := &Snapshot{
		WorkOrder: WorkOrder{Number: "WO-1", KmHrs: "1200"},
		Findings: []Finding{{ID: 1, Description: "Noise", Actions: []Action{{
			ID: 5, Description: "Tighten belt",
			Dates: []ActionDate{
				{Date: day(2024, 1, 1), StartTime: "09:00:00", EndTime: strPtr("12:00:00")},
				{Date: day(2024, 1, 3), StartTime: "13:00:00", EndTime: strPtr("17:00:00")},
			},
			SpareParts: []SparePart{
				{ID: 1, PartName: "Belt", PartNumber: "B-9", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
				{ID: 2, PartName: "Grease", PartNumber: "G-1", Quantity: decimal.NewFromInt(3)},
			},
		}}}},
		Assignments: []TechnicianAssignment{{StaffID: "T9", Name: "Cem", ActionID: 5}},
	}
	c := NewComposer(&fakeSource{snap: snap}, defaultTemplate(t), nil)
	out, err := c.Compose(context.Background(), 1)
	require.NoError(t, err)
	f := openResult(t, out)

	assert.Equal(t, "1200", cell(t, f, "E4"))
	assert.Equal(t, "Job Allocated By:", strings.TrimSpace(cell(t, f, "A12")))
	assert.Equal(t, "Tighten belt", cell(t, f, "B15"))
	assert.Equal(t, "09:00", cell(t, f, "C15"))
	assert.Equal(t, "17:00", cell(t, f, "D15"))
	assert.Equal(t, "01/01/2024-03/01/2024", cell(t, f, "E15"))
	assert.Equal(t, "1 pcs", cell(t, f, "D20"))
	assert.Equal(t, "3", cell(t, f, "D21"))
	assert.Equal(t, "Cem", cell(t, f, "B26"))
	assert.Equal(t, "1", cell(t, f, "C26"))
	assert.Equal(t, "T9", cell(t, f, "D26"))
}

func TestComposeErrors(t *testing.T) {
	tmpl := defaultTemplate(t)

	t.Run("not found", func(t *testing.T) {
		src := &fakeSource{err: fmt.Errorf("%w: id 3", ErrNotFound)}
		_, err := NewComposer(src, tmpl, nil).Compose(context.Background(), 3)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed id never fetches", func(t *testing.T) {
		src := &fakeSource{snap: fiveByFive()}
		_, err := NewComposer(src, tmpl, nil).Compose(context.Background(), 0)
		assert.ErrorIs(t, err, ErrMalformedInput)
		assert.Zero(t, src.calls.Load())
	})

	t.Run("upstream failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		out, err := NewComposer(&fakeSource{err: boom}, tmpl, nil).Compose(context.Background(), 3)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Nil(t, out)
	})

	t.Run("cancelled request", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewComposer(&fakeSource{snap: fiveByFive()}, tmpl, nil).Compose(ctx, 7)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestComposeConcurrentRequestsShareTemplate(t *testing.T) {
	c := NewComposer(&fakeSource{snap: fiveByFive()}, defaultTemplate(t), nil)
	results := make(chan error, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			_, err := c.Compose(context.Background(), 7)
			results <- err
		}()
	}
	for i := 0; i < cap(results); i++ {
		assert.NoError(t, <-results)
	}

	out, err := c.Compose(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Ali", cell(t, openResult(t, out), "B30"))
}

func TestParseWorkOrderID(t *testing.T) {
	id, err := ParseWorkOrderID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "-1", "0", "4.5"} {
		_, err := ParseWorkOrderID(raw)
		assert.ErrorIs(t, err, ErrMalformedInput, raw)
	}
}

func TestLoadTemplate(t *testing.T) {
	data, err := BuildDefaultTemplate(DefaultSheetName)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	tmpl, err := LoadTemplate(path, DefaultSheetName)
	require.NoError(t, err)
	assert.Equal(t, DefaultSheetName, tmpl.Sheet())

	_, err = LoadTemplate(path, "Missing")
	assert.Error(t, err)

	_, err = LoadTemplate(filepath.Join(t.TempDir(), "nope.xlsx"), DefaultSheetName)
	assert.Error(t, err)
}

func TestComposeDocumentCarriesNumber(t *testing.T) {
	c := NewComposer(&fakeSource{snap: fiveByFive()}, defaultTemplate(t), nil)
	doc, err := c.ComposeDocument(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "WO-2024-007", doc.WorkOrderNumber)
	assert.Equal(t, "WO-2024-007", cell(t, openResult(t, doc.Data), "E1"))
}
