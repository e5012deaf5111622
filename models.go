package main

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

const (
	statusPending  = "pending"
	statusApproved = "approved"
	statusRejected = "rejected"
)

type WorkOrder struct {
	ID              int        `json:"id"`
	WorkOrderNo     string     `json:"work_order_no"`
	WorkOrderDate   string     `json:"work_order_date"`
	EquipmentNumber string     `json:"equipment_number"`
	KmHrs           *string    `json:"km_hrs"`
	WorkType        string     `json:"work_type"`
	RequestedBy     string     `json:"requested_by"`
	RequestedByID   int        `json:"requested_by_id"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason"`
	ApprovedBy      *int       `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Findings        []Finding  `json:"findings,omitempty"`
}

type Finding struct {
	ID          int       `json:"id"`
	WorkOrderID int       `json:"work_order_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Actions     []Action  `json:"actions,omitempty"`
}

type Action struct {
	ID          int          `json:"id"`
	FindingID   int          `json:"finding_id"`
	Description string       `json:"description"`
	ActionDate  *string      `json:"action_date"`
	StartTime   *string      `json:"start_time"`
	EndTime     *string      `json:"end_time"`
	SpareParts  []SparePart  `json:"spare_parts,omitempty"`
	Technicians []Technician `json:"technicians,omitempty"`
}

type ActionDate struct {
	ID          int       `json:"id"`
	ActionID    int       `json:"action_id"`
	ActionDate  string    `json:"action_date"`
	StartTime   string    `json:"start_time"`
	EndTime     *string   `json:"end_time"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SparePart struct {
	ID         int             `json:"id"`
	ActionID   int             `json:"action_id"`
	PartName   string          `json:"part_name"`
	PartNumber string          `json:"part_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       *string         `json:"unit"`
}

type Technician struct {
	ID       int    `json:"id"`
	ActionID int    `json:"action_id"`
	Name     string `json:"name"`
	StaffID  string `json:"staff_id"`
}

type Notification struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	WorkOrderID *int      `json:"work_order_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Request payloads

type userRequest struct {
	Username  string `json:"username" validate:"required,max=50"`
	Password  string `json:"password"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,role"`
}

type workOrderRequest struct {
	WorkOrderNo     string  `json:"work_order_no" validate:"required,max=50"`
	WorkOrderDate   string  `json:"work_order_date" validate:"required,isodate"`
	EquipmentNumber string  `json:"equipment_number" validate:"required"`
	KmHrs           *string `json:"km_hrs"`
	WorkType        string  `json:"work_type" validate:"required"`
	RequestedBy     string  `json:"requested_by" validate:"required"`
}

type rejectRequest struct {
	Reason string `json:"rejection_reason" validate:"required"`
}

type findingRequest struct {
	Description string `json:"description" validate:"required"`
}

type actionRequest struct {
	Description string  `json:"description" validate:"required"`
	ActionDate  *string `json:"action_date" validate:"omitempty,isodate"`
	StartTime   *string `json:"start_time" validate:"omitempty,clock"`
	EndTime     *string `json:"end_time" validate:"omitempty,clock"`
}

type sparePartRequest struct {
	PartName   string          `json:"part_name" validate:"required"`
	PartNumber string          `json:"part_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       *string         `json:"unit"`
}

type technicianRequest struct {
	Name    string `json:"name" validate:"required"`
	StaffID string `json:"staff_id" validate:"required"`
}

type actionDateCreateRequest struct {
	ActionDate  string  `json:"action_date" validate:"required,isodate"`
	StartTime   string  `json:"start_time" validate:"required,clock"`
	EndTime     *string `json:"end_time"`
	IsCompleted bool    `json:"is_completed"`
}

type actionDateCompletionRequest struct {
	ActionDate  string `json:"action_date" validate:"required,isodate"`
	IsCompleted *bool  `json:"is_completed" validate:"required"`
}

type actionDatePatchRequest struct {
	ActionDate  *string        `json:"action_date" validate:"omitempty,isodate"`
	StartTime   *string        `json:"start_time" validate:"omitempty,clock"`
	EndTime     nullableString `json:"end_time"`
	IsCompleted *bool          `json:"is_completed"`
}

func (p actionDatePatchRequest) empty() bool {
	return p.ActionDate == nil && p.StartTime == nil && !p.EndTime.Set && p.IsCompleted == nil
}

// nullableString tells an absent JSON key apart from an explicit null.
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// blankToNil maps an empty string to SQL NULL.
func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
