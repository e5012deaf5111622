package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkOrder is the header record of a report.
type WorkOrder struct {
	ID                 int64
	Number             string
	Date               time.Time
	EquipmentNumber    string
	KmHrs              string
	WorkType           string
	RequestedBy        string
	AllocatorFirstName string
	AllocatorLastName  string
}

type Finding struct {
	ID          int64
	Description string
	Actions     []Action
}

// Action carries its own start/end/date as a fallback for when no ActionDate rows exist.
type Action struct {
	ID          int64
	Description string
	ActionDate  *time.Time
	StartTime   string
	EndTime     string
	Dates       []ActionDate
	SpareParts  []SparePart
}

type ActionDate struct {
	Date      time.Time
	StartTime string
	EndTime   *string
	Completed bool
}

type SparePart struct {
	ID         int64
	PartName   string
	PartNumber string
	Quantity   decimal.Decimal
	Unit       string
}

// TechnicianAssignment links one technician identity to one action.
type TechnicianAssignment struct {
	StaffID  string
	Name     string
	ActionID int64
}

// Snapshot is everything one report needs, fetched once per request.
type Snapshot struct {
	WorkOrder   WorkOrder
	Findings    []Finding
	Assignments []TechnicianAssignment
}
