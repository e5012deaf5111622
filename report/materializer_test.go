package report

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type insertCall struct {
	source, at int
}

// recordingCanvas keeps cell writes in a map and shifts them on insert the
// same way a real sheet would.
type recordingCanvas struct {
	cells   map[string]any
	inserts []insertCall
	merges  []string
	failAt  int
}

func newRecordingCanvas() *recordingCanvas {
	return &recordingCanvas{cells: make(map[string]any)}
}

func (c *recordingCanvas) SetCellValue(cell string, v any) error {
	c.cells[cell] = v
	return nil
}

func (c *recordingCanvas) MergeRange(from, to string) error {
	c.merges = append(c.merges, from+":"+to)
	return nil
}

func (c *recordingCanvas) InsertRowCopyingFormat(source, at int, _ []string) (int, error) {
	if c.failAt != 0 && at == c.failAt {
		return 0, errors.New("boom")
	}
	c.inserts = append(c.inserts, insertCall{source, at})
	shifted := make(map[string]any, len(c.cells))
	for cell, v := range c.cells {
		var col string
		var row int
		fmt.Sscanf(cell, "%1s%d", &col, &row)
		if row >= at {
			row++
		}
		shifted[fmt.Sprintf("%s%d", col, row)] = v
	}
	c.cells = shifted
	return at, nil
}

func (c *recordingCanvas) Bytes() ([]byte, error) { return []byte("ok"), nil }

func findingsN(n int) []Finding {
	out := make([]Finding, n)
	for i := range out {
		out[i] = Finding{ID: int64(i + 1), Description: fmt.Sprintf("finding %d", i+1)}
	}
	return out
}

func TestMaterializeWithinCapacityNeverInserts(t *testing.T) {
	spec := DefaultSections[SectionFindings]
	for n := 0; n <= spec.Capacity; n++ {
		c := newRecordingCanvas()
		p, _ := LayoutContext{}.Place(spec, n)
		require.NoError(t, materialize(c, spec, p, findingsFiller(c, findingsN(n))))
		assert.Empty(t, c.inserts)
		assert.Len(t, c.merges, n)
	}
}

func TestMaterializeOverflowInsertsBelowCursor(t *testing.T) {
	spec := DefaultSections[SectionFindings]
	c := newRecordingCanvas()
	c.cells["A12"] = "Job Allocated By: X"
	p, _ := LayoutContext{}.Place(spec, 5)

	require.NoError(t, materialize(c, spec, p, findingsFiller(c, findingsN(5))))

	assert.Equal(t, []insertCall{{8, 11}, {8, 12}}, c.inserts)
	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, c.cells[fmt.Sprintf("A%d", 7+i)])
		assert.Equal(t, fmt.Sprintf("finding %d", i), c.cells[fmt.Sprintf("B%d", 7+i)])
	}
	assert.Equal(t, "Job Allocated By: X", c.cells["A14"])
	assert.Equal(t, []string{"B8:E8", "B9:E9", "B10:E10", "B11:E11", "B12:E12"}, c.merges)
}

func TestMaterializeFollowsReturnedRow(t *testing.T) {
	spec := SectionSpec{Section: SectionActions, BaseRow: 15, Capacity: 1, Columns: templateColumns}
	c := &offsetCanvas{recordingCanvas: newRecordingCanvas()}
	p, _ := LayoutContext{}.Place(spec, 3)

	var rows []int
	err := materialize(c, spec, p, func(row, _ int) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{15, 17, 19}, rows)
}

// offsetCanvas places each inserted row one below the requested position.
type offsetCanvas struct {
	*recordingCanvas
}

func (c *offsetCanvas) InsertRowCopyingFormat(source, at int, cols []string) (int, error) {
	row, err := c.recordingCanvas.InsertRowCopyingFormat(source, at+1, cols)
	return row, err
}

func TestMaterializeSkipsEmptySection(t *testing.T) {
	c := newRecordingCanvas()
	called := false
	p, _ := LayoutContext{}.Place(DefaultSections[SectionSpareParts], 0)
	require.NoError(t, materialize(c, DefaultSections[SectionSpareParts], p, func(int, int) error {
		called = true
		return nil
	}))
	assert.False(t, called)
	assert.Empty(t, c.cells)
}

func TestMaterializeInsertFailureAborts(t *testing.T) {
	spec := DefaultSections[SectionTechnicians]
	c := newRecordingCanvas()
	c.failAt = 29
	p, _ := LayoutContext{}.Place(spec, 4)
	err := materialize(c, spec, p, func(int, int) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "technicians")
}

func TestActionsFillerAssignsSymbols(t *testing.T) {
	spec := DefaultSections[SectionActions]
	actions := []Action{
		{ID: 42, Description: "a"}, {ID: 7, Description: "b"}, {ID: 99, Description: "c"}, {ID: 3, Description: "d"},
	}
	c := newRecordingCanvas()
	symbols := make(Symbols)
	p, _ := LayoutContext{CumulativeOverflow: 2}.Place(spec, len(actions))

	require.NoError(t, materialize(c, spec, p, actionsFiller(c, actions, symbols)))

	assert.Equal(t, Symbols{42: 1, 7: 2, 99: 3, 3: 4}, symbols)
	assert.Equal(t, []insertCall{{17, 20}}, c.inserts)
	assert.Equal(t, 4, c.cells["A20"])
	assert.Equal(t, "d", c.cells["B20"])
}

func TestSymbolsResolve(t *testing.T) {
	s := Symbols{10: 3, 11: 1, 12: 2}
	assert.Equal(t, []int{1, 2, 3}, s.Resolve([]int64{10, 12, 11, 10}))
	assert.Equal(t, []int{3}, s.Resolve([]int64{99, 10}))
	assert.Equal(t, "1,3", s.CSV([]int64{10, 11, 11}))
	assert.Equal(t, "", s.CSV(nil))
}
