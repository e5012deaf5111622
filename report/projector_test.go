package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		WorkOrder: WorkOrder{ID: 1, Number: "WO-001"},
		Findings: []Finding{
			{ID: 10, Description: "Hydraulic leak", Actions: []Action{
				{ID: 100, Description: "Replace hose", SpareParts: []SparePart{
					{ID: 1000, PartName: "Hose", PartNumber: "H-1", Quantity: decimal.NewFromInt(2), Unit: "pcs"},
					{ID: 0, PartName: "Ghost"},
				}},
				{ID: 0, Description: "No id"},
				{ID: 101, Description: "   "},
			}},
			{ID: 11, Description: "  ", Actions: []Action{
				{ID: 110, Description: "Under blank finding", SpareParts: []SparePart{
					{ID: 1100, PartName: "Hidden"},
				}},
			}},
			{ID: 12, Description: "Worn brake pads", Actions: []Action{
				{ID: 120, Description: "Replace pads", SpareParts: []SparePart{
					{ID: 1200, PartName: " "},
					{ID: 1201, PartName: "Brake pad", Quantity: decimal.NewFromInt(4)},
				}},
				{ID: 121, Description: "Test drive"},
			}},
		},
		Assignments: []TechnicianAssignment{
			{StaffID: "S2", Name: "Bea", ActionID: 121},
			{StaffID: "S1", Name: " Ali ", ActionID: 120},
			{StaffID: "S1", Name: "Ali", ActionID: 100},
			{StaffID: "S1", Name: "Ali", ActionID: 100},
			{StaffID: "S3", Name: "Cem", ActionID: 110},
			{StaffID: "S4", Name: "  ", ActionID: 100},
			{StaffID: "S2", Name: "Bea", ActionID: 100},
		},
	}
}

func TestProjectFiltersAndOrders(t *testing.T) {
	p := Project(sampleSnapshot())

	require.Len(t, p.Findings, 2)
	assert.Equal(t, int64(10), p.Findings[0].ID)
	assert.Equal(t, int64(12), p.Findings[1].ID)

	var actionIDs []int64
	for _, a := range p.Actions {
		actionIDs = append(actionIDs, a.ID)
	}
	assert.Equal(t, []int64{100, 120, 121}, actionIDs)

	var partIDs []int64
	for _, sp := range p.SpareParts {
		partIDs = append(partIDs, sp.ID)
	}
	assert.Equal(t, []int64{1000, 1201}, partIDs)
}

func TestProjectTechniciansByFirstAppearance(t *testing.T) {
	p := Project(sampleSnapshot())

	require.Len(t, p.Technicians, 2)
	assert.Equal(t, Technician{StaffID: "S1", Name: "Ali", ActionIDs: []int64{100, 120}}, p.Technicians[0])
	assert.Equal(t, Technician{StaffID: "S2", Name: "Bea", ActionIDs: []int64{100, 121}}, p.Technicians[1])
}

func TestProjectSameNameDifferentStaffIDIsDistinct(t *testing.T) {
	snap := &Snapshot{
		Findings: []Finding{{ID: 1, Description: "f", Actions: []Action{{ID: 5, Description: "a"}}}},
		Assignments: []TechnicianAssignment{
			{StaffID: "A", Name: "Sam", ActionID: 5},
			{StaffID: "B", Name: "Sam", ActionID: 5},
		},
	}
	p := Project(snap)
	require.Len(t, p.Technicians, 2)
	assert.Equal(t, "A", p.Technicians[0].StaffID)
	assert.Equal(t, "B", p.Technicians[1].StaffID)
}

func TestProjectIsDeterministic(t *testing.T) {
	snap := sampleSnapshot()
	assert.Equal(t, Project(snap), Project(snap))
}

func TestProjectBlankFindingAnchorsNothing(t *testing.T) {
	snap := &Snapshot{
		Findings: []Finding{
			{ID: 1, Description: "\t \n", Actions: []Action{{ID: 9, Description: "orphan"}}},
			{ID: 2, Description: "real", Actions: []Action{{ID: 10, Description: "first"}}},
		},
	}
	p := Project(snap)
	require.Len(t, p.Findings, 1)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, int64(10), p.Actions[0].ID)
}
