package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceOverflow(t *testing.T) {
	spec := SectionSpec{Section: SectionSpareParts, BaseRow: 20, Capacity: 4}
	tests := []struct {
		name     string
		count    int
		overflow int
	}{
		{"empty", 0, 0},
		{"under capacity", 3, 0},
		{"at capacity", 4, 0},
		{"one over", 5, 1},
		{"far over", 12, 8},
		{"negative count", -2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, next := LayoutContext{CumulativeOverflow: 3}.Place(spec, tt.count)
			assert.Equal(t, 23, p.StartRow)
			assert.Equal(t, tt.overflow, p.Overflow)
			assert.Equal(t, 26, p.EndRowIfNoOverflow)
			assert.Equal(t, 3+tt.overflow, next.CumulativeOverflow)
		})
	}
}

func TestPlanShiftsByPriorOverflowOnly(t *testing.T) {
	tests := []struct {
		name   string
		counts [4]int
		starts [4]int
	}{
		{"all within capacity", [4]int{3, 3, 4, 3}, [4]int{8, 15, 20, 26}},
		{"all empty", [4]int{0, 0, 0, 0}, [4]int{8, 15, 20, 26}},
		{"findings overflow", [4]int{6, 1, 1, 1}, [4]int{8, 18, 23, 29}},
		{"findings overflow, spares under capacity", [4]int{4, 0, 2, 5}, [4]int{8, 16, 21, 27}},
		{"spare parts overflow only", [4]int{1, 2, 9, 1}, [4]int{8, 15, 20, 31}},
		{"everything overflows", [4]int{5, 7, 6, 10}, [4]int{8, 17, 26, 34}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(DefaultSections, tt.counts)
			for i, p := range got {
				assert.Equal(t, tt.starts[i], p.StartRow, "section %s", p.Section)
				assert.Equal(t, tt.counts[i], p.Count)
			}
		})
	}
}

func TestPlanCumulativeShiftProperty(t *testing.T) {
	for a := 0; a < 7; a++ {
		for b := 0; b < 7; b++ {
			for c := 0; c < 8; c++ {
				counts := [4]int{a, b, c, 5}
				got := Plan(DefaultSections, counts)
				shift := 0
				for i, spec := range DefaultSections {
					assert.Equal(t, spec.BaseRow+shift, got[i].StartRow)
					if counts[i] > spec.Capacity {
						shift += counts[i] - spec.Capacity
					}
				}
			}
		}
	}
}

func TestPlanEmptySectionDoesNotShift(t *testing.T) {
	got := Plan(DefaultSections, [4]int{5, 5, 0, 2})

	assert.Equal(t, 17, got[SectionActions].StartRow)
	assert.False(t, got[SectionSpareParts].Rendered())
	assert.Equal(t, 0, got[SectionSpareParts].Overflow)
	assert.Equal(t, 30, got[SectionTechnicians].StartRow)
}

func TestSectionString(t *testing.T) {
	assert.Equal(t, "findings", SectionFindings.String())
	assert.Equal(t, "technicians", SectionTechnicians.String())
	assert.Equal(t, "unknown", Section(9).String())
}
