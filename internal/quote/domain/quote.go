package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusRejected Status = "rejected"
)

type Quote struct {
	ID            snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	BranchID      snowflake.ID `gorm:"column:branch_id" json:"branch_id"`
	CustomerID    snowflake.ID `gorm:"column:customer_id" json:"customer_id"`
	Status        Status       `gorm:"column:status" json:"status"`
	CustomerName  string       `gorm:"column:customer_name" json:"customer_name"`
	Subtotal      int64        `gorm:"column:subtotal" json:"subtotal"`
	TaxAmount     int64        `gorm:"column:tax_amount" json:"tax_amount"`
	Total         int64        `gorm:"column:total" json:"total"`
	Currency      string       `gorm:"column:currency" json:"currency"`
	Notes         string       `gorm:"column:notes" json:"notes,omitempty"`
	ExpiresAt     time.Time    `gorm:"column:expires_at" json:"expires_at"`
	AcceptedAt    *time.Time   `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedAt     time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"column:updated_at" json:"updated_at"`

	Items []QuoteItem `gorm:"foreignKey:QuoteID" json:"items,omitempty"`
}

func (Quote) TableName() string {
	return "quotes"
}

type QuoteItem struct {
	ID          snowflake.ID           `gorm:"column:id;primaryKey" json:"id"`
	QuoteID     snowflake.ID           `gorm:"column:quote_id" json:"quote_id"`
	ProductID   snowflake.ID           `gorm:"column:product_id" json:"product_id"`
	Description string                 `gorm:"column:description" json:"description"`
	Category    productdomain.Category `gorm:"column:category" json:"category"`
	Quantity    int                    `gorm:"column:quantity" json:"quantity"`
	UnitPrice   int64                  `gorm:"column:unit_price" json:"unit_price"`
	Total       int64                  `gorm:"column:total" json:"total"`
	CreatedAt   time.Time              `gorm:"column:created_at" json:"created_at"`
}

func (QuoteItem) TableName() string {
	return "quote_items"
}

type CreateQuoteItemRequest struct {
	ProductID string
	Quantity  int
}

type CreateQuoteRequest struct {
	CustomerID string
	Notes      string
	ValidDays  int
	Items      []CreateQuoteItemRequest
}

type ListQuoteRequest struct {
	PageToken  string
	PageSize   int32
	Status     Status
	CustomerID string
}

type ListQuoteFilter struct {
	Status     Status
	CustomerID snowflake.ID
}

type ListQuoteResponse struct {
	pagination.PageInfo
	Quotes []Quote `json:"quotes"`
}

type Service interface {
	Create(context.Context, CreateQuoteRequest) (Quote, error)
	List(context.Context, ListQuoteRequest) (ListQuoteResponse, error)
	GetByID(ctx context.Context, id string) (Quote, error)
	Accept(ctx context.Context, id string) (Quote, error)
	// ExpireOverdue marks pending quotes past their expiry as expired.
	// Invoked by the scheduler, returns the number of quotes flipped.
	ExpireOverdue(ctx context.Context) (int64, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quote *Quote) error
	InsertItems(ctx context.Context, db *gorm.DB, items []QuoteItem) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Quote, error)
	FindItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]QuoteItem, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListQuoteFilter, page pagination.Pagination) ([]*Quote, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, status Status, acceptedAt *time.Time) error
	ExpireOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

var (
	ErrInvalidBranch   = errors.New("invalid_branch")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidItems    = errors.New("invalid_items")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrNotPending      = errors.New("not_pending")
	ErrQuoteExpired    = errors.New("quote_expired")
)
