package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Status string

// Lab lifecycle. Transitions are strictly linear; cancel is allowed from
// any non-terminal state.
const (
	StatusReceived  Status = "received"
	StatusInLab     Status = "in_lab"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// NextStatus returns the only legal forward transition, or "" for terminal
// states.
func NextStatus(s Status) Status {
	switch s {
	case StatusReceived:
		return StatusInLab
	case StatusInLab:
		return StatusReady
	case StatusReady:
		return StatusDelivered
	default:
		return ""
	}
}

func Terminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

type WorkOrder struct {
	ID           snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	BranchID     snowflake.ID `gorm:"column:branch_id" json:"branch_id"`
	CustomerID   snowflake.ID `gorm:"column:customer_id" json:"customer_id"`
	OrderID      snowflake.ID `gorm:"column:order_id" json:"order_id,omitempty"`
	Status       Status       `gorm:"column:status" json:"status"`
	CustomerName string       `gorm:"column:customer_name" json:"customer_name"`
	Prescription string       `gorm:"column:prescription" json:"prescription,omitempty"`
	LabNotes     string       `gorm:"column:lab_notes" json:"lab_notes,omitempty"`
	DueAt        *time.Time   `gorm:"column:due_at" json:"due_at,omitempty"`
	DeliveredAt  *time.Time   `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

type CreateWorkOrderRequest struct {
	CustomerID   string
	OrderID      string
	Prescription string
	LabNotes     string
	DueAt        *time.Time
}

type ListWorkOrderRequest struct {
	PageToken  string
	PageSize   int32
	Status     Status
	CustomerID string
}

type ListWorkOrderFilter struct {
	Status     Status
	CustomerID snowflake.ID
}

type ListWorkOrderResponse struct {
	pagination.PageInfo
	WorkOrders []WorkOrder `json:"work_orders"`
}

type Service interface {
	Create(context.Context, CreateWorkOrderRequest) (WorkOrder, error)
	List(context.Context, ListWorkOrderRequest) (ListWorkOrderResponse, error)
	GetByID(ctx context.Context, id string) (WorkOrder, error)
	// Advance moves the work order to the next state in the linear
	// received → in_lab → ready → delivered chain.
	Advance(ctx context.Context, id string) (WorkOrder, error)
	Cancel(ctx context.Context, id string) (WorkOrder, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, wo *WorkOrder) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*WorkOrder, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListWorkOrderFilter, page pagination.Pagination) ([]*WorkOrder, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, status Status, deliveredAt *time.Time) error
}

var (
	ErrInvalidBranch     = errors.New("invalid_branch")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrTerminalState     = errors.New("terminal_state")
	ErrInvalidTransition = errors.New("invalid_transition")
)
