package report

// Section identifies one of the variable-length row blocks of the sheet.
// Sections are always laid out in this order.
type Section int

const (
	SectionFindings Section = iota
	SectionActions
	SectionSpareParts
	SectionTechnicians
)

var sectionNames = [...]string{"findings", "actions", "spare_parts", "technicians"}

func (s Section) String() string {
	if s < 0 || int(s) >= len(sectionNames) {
		return "unknown"
	}
	return sectionNames[s]
}

// SectionSpec describes where a section sits in the unmodified template.
type SectionSpec struct {
	Section  Section
	BaseRow  int
	Capacity int
	// Columns are copied with their styles when an overflow row is inserted.
	Columns []string
	// MergeFrom/MergeTo span the text column range; equal values mean no merge.
	MergeFrom string
	MergeTo   string
}

var templateColumns = []string{"A", "B", "C", "D", "E"}

// DefaultSections matches the template produced by BuildDefaultTemplate.
var DefaultSections = [4]SectionSpec{
	{Section: SectionFindings, BaseRow: 8, Capacity: 3, Columns: templateColumns, MergeFrom: "B", MergeTo: "E"},
	{Section: SectionActions, BaseRow: 15, Capacity: 3, Columns: templateColumns},
	{Section: SectionSpareParts, BaseRow: 20, Capacity: 4, Columns: templateColumns},
	{Section: SectionTechnicians, BaseRow: 26, Capacity: 3, Columns: templateColumns},
}

// Placement is the planned position of one section.
type Placement struct {
	Section  Section
	StartRow int
	Count    int
	Overflow int
	// EndRowIfNoOverflow is the last pre-formatted template row of the section.
	EndRowIfNoOverflow int
}

// Rendered reports whether the section has anything to write.
func (p Placement) Rendered() bool { return p.Count > 0 }

// LayoutContext carries the overflow accumulated by the sections placed so far.
type LayoutContext struct {
	CumulativeOverflow int
}

// Place positions one section below everything already placed and returns
// the context to hand to the next section.
func (lc LayoutContext) Place(spec SectionSpec, count int) (Placement, LayoutContext) {
	if count < 0 {
		count = 0
	}
	start := spec.BaseRow + lc.CumulativeOverflow
	overflow := count - spec.Capacity
	if overflow < 0 {
		overflow = 0
	}
	p := Placement{
		Section:            spec.Section,
		StartRow:           start,
		Count:              count,
		Overflow:           overflow,
		EndRowIfNoOverflow: start + spec.Capacity - 1,
	}
	return p, LayoutContext{CumulativeOverflow: lc.CumulativeOverflow + overflow}
}

// Plan places all four sections in order.
func Plan(specs [4]SectionSpec, counts [4]int) [4]Placement {
	var (
		out [4]Placement
		lc  LayoutContext
	)
	for i, spec := range specs {
		out[i], lc = lc.Place(spec, counts[i])
	}
	return out
}
