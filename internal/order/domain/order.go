package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	productdomain "github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	BranchID       snowflake.ID `gorm:"column:branch_id" json:"branch_id"`
	CustomerID     snowflake.ID `gorm:"column:customer_id" json:"customer_id"`
	Number         string       `gorm:"column:number" json:"number"`
	Status         Status       `gorm:"column:status" json:"status"`
	CustomerName   string       `gorm:"column:customer_name" json:"customer_name"`
	CustomerTaxID  string       `gorm:"column:customer_tax_id" json:"customer_tax_id"`
	Subtotal       int64        `gorm:"column:subtotal" json:"subtotal"`
	TaxAmount      int64        `gorm:"column:tax_amount" json:"tax_amount"`
	Total          int64        `gorm:"column:total" json:"total"`
	Currency       string       `gorm:"column:currency" json:"currency"`
	SIIInvoiceType string       `gorm:"column:sii_invoice_type" json:"sii_invoice_type,omitempty"`
	BillingFolio   string       `gorm:"column:billing_folio" json:"billing_folio,omitempty"`
	BillingType    string       `gorm:"column:billing_type" json:"billing_type,omitempty"`
	BillingPDFURL  string       `gorm:"column:billing_pdf_url" json:"billing_pdf_url,omitempty"`
	CompletedAt    *time.Time   `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID          snowflake.ID           `gorm:"column:id;primaryKey" json:"id"`
	OrderID     snowflake.ID           `gorm:"column:order_id" json:"order_id"`
	ProductID   snowflake.ID           `gorm:"column:product_id" json:"product_id"`
	Description string                 `gorm:"column:description" json:"description"`
	Category    productdomain.Category `gorm:"column:category" json:"category"`
	Quantity    int                    `gorm:"column:quantity" json:"quantity"`
	UnitPrice   int64                  `gorm:"column:unit_price" json:"unit_price"`
	Total       int64                  `gorm:"column:total" json:"total"`
	CreatedAt   time.Time              `gorm:"column:created_at" json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int
}

type CreateOrderRequest struct {
	CustomerID     string
	SIIInvoiceType string
	Items          []CreateOrderItemRequest
}

type ListOrderRequest struct {
	PageToken   string
	PageSize    int32
	Status      Status
	CustomerID  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListOrderFilter struct {
	Status      Status
	CustomerID  snowflake.ID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type CompleteOrderResponse struct {
	Order   Order                 `json:"order"`
	Billing *billingdomain.Result `json:"billing"`
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (Order, error)
	List(context.Context, ListOrderRequest) (ListOrderResponse, error)
	GetByID(ctx context.Context, id string) (Order, error)
	// Complete marks the order completed and emits its billing document.
	// Folio generation failure aborts the completion: the order stays
	// pending rather than ending up sold-but-undocumented.
	Complete(ctx context.Context, id string) (CompleteOrderResponse, error)
	Cancel(ctx context.Context, id string) (Order, error)
}

type Repository interface {
	NextNumber(ctx context.Context, db *gorm.DB, branchID snowflake.ID) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Order, error)
	FindItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListOrderFilter, page pagination.Pagination) ([]*Order, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, status Status, completedAt *time.Time) error
}

var (
	ErrInvalidBranch    = errors.New("invalid_branch")
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvalidItems     = errors.New("invalid_items")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyCompleted = errors.New("already_completed")
	ErrOrderCancelled   = errors.New("order_cancelled")
	ErrNotPending       = errors.New("not_pending")
)
