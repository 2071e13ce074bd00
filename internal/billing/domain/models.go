package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DocumentType classifies an emitted billing document.
type DocumentType string

const (
	DocumentTypeFacturaInterna DocumentType = "FACTURA_INTERNA"
	DocumentTypeBoletaInterna  DocumentType = "BOLETA_INTERNA"
	DocumentTypeTicketInterno  DocumentType = "TICKET_INTERNO"
)

// DocumentTypeFromInvoiceType maps the order's declared invoice type to the
// internal document subtype. Anything unrecognized becomes an internal ticket.
func DocumentTypeFromInvoiceType(invoiceType string) DocumentType {
	switch invoiceType {
	case "factura":
		return DocumentTypeFacturaInterna
	case "boleta":
		return DocumentTypeBoletaInterna
	default:
		return DocumentTypeTicketInterno
	}
}

// FolioPrefix returns the human-facing prefix for the document type.
func (t DocumentType) FolioPrefix() string {
	switch t {
	case DocumentTypeFacturaInterna:
		return "FAC"
	case DocumentTypeBoletaInterna:
		return "BOL"
	default:
		return "TIC"
	}
}

// FormatFolio renders a sequence number as the consumer-facing folio.
func FormatFolio(t DocumentType, seq int64) string {
	return fmt.Sprintf("%s-%08d", t.FolioPrefix(), seq)
}

// DocumentStatus is the lifecycle state of a billing document.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusAccepted  DocumentStatus = "accepted"
	StatusRejected  DocumentStatus = "rejected"
	StatusCancelled DocumentStatus = "cancelled"
)

// LineItemCategory classifies an order line explicitly instead of inferring
// it from the product name.
type LineItemCategory string

const (
	CategoryFrame     LineItemCategory = "frame"
	CategoryLens      LineItemCategory = "lens"
	CategoryTreatment LineItemCategory = "treatment"
	CategoryLabor     LineItemCategory = "labor"
	CategoryOther     LineItemCategory = "other"
)

// ValidCategory reports whether the category is one of the known values.
func ValidCategory(c LineItemCategory) bool {
	switch c {
	case CategoryFrame, CategoryLens, CategoryTreatment, CategoryLabor, CategoryOther:
		return true
	}
	return false
}

var (
	ErrFiscalNotImplemented = errors.New("fiscal billing backend is not implemented")
	ErrDocumentNotFound     = errors.New("billing document not found")
	ErrFolioGeneration      = errors.New("folio generation failed")
)

// Order is the completed-order shape billing consumes. Amounts are minor
// currency units.
type Order struct {
	ID             snowflake.ID
	Number         string
	BranchID       snowflake.ID
	CustomerID     snowflake.ID
	CustomerName   string
	CustomerTaxID  string
	Subtotal       int64
	TaxAmount      int64
	Total          int64
	Currency       string
	SIIInvoiceType string
	Items          []OrderLine
}

// OrderLine is one sellable line of the order.
type OrderLine struct {
	ProductID   snowflake.ID
	Description string
	Category    LineItemCategory
	Quantity    int
	UnitPrice   int64
	Total       int64
}

// BillingDocument is one row of the append-only document ledger.
type BillingDocument struct {
	ID             snowflake.ID   `gorm:"column:id;primaryKey" json:"id"`
	BranchID       snowflake.ID   `gorm:"column:branch_id" json:"branch_id"`
	OrderID        snowflake.ID   `gorm:"column:order_id" json:"order_id"`
	OrderNumber    string         `gorm:"column:order_number" json:"order_number"`
	DocumentType   DocumentType   `gorm:"column:document_type" json:"document_type"`
	SequenceNumber int64          `gorm:"column:sequence_number" json:"-"`
	Folio          string         `gorm:"column:folio" json:"folio"`
	Status         DocumentStatus `gorm:"column:status" json:"status"`
	CancelReason   string         `gorm:"column:cancel_reason" json:"cancel_reason,omitempty"`
	CustomerName   string         `gorm:"column:customer_name" json:"customer_name"`
	CustomerTaxID  string         `gorm:"column:customer_tax_id" json:"customer_tax_id"`
	Subtotal       int64          `gorm:"column:subtotal" json:"subtotal"`
	TaxAmount      int64          `gorm:"column:tax_amount" json:"tax_amount"`
	Total          int64          `gorm:"column:total" json:"total"`
	Currency       string         `gorm:"column:currency" json:"currency"`
	PDFURL         string         `gorm:"column:pdf_url" json:"pdf_url"`
	IssuedAt       time.Time      `gorm:"column:issued_at" json:"issued_at"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at" json:"updated_at"`

	Items []BillingDocumentItem `gorm:"foreignKey:DocumentID" json:"items,omitempty"`
}

func (BillingDocument) TableName() string {
	return "billing_documents"
}

// BillingDocumentItem is one persisted line of a document.
type BillingDocumentItem struct {
	ID          snowflake.ID     `gorm:"column:id;primaryKey" json:"id"`
	DocumentID  snowflake.ID     `gorm:"column:document_id" json:"document_id"`
	ProductID   snowflake.ID     `gorm:"column:product_id" json:"product_id"`
	Description string           `gorm:"column:description" json:"description"`
	Category    LineItemCategory `gorm:"column:category" json:"category"`
	Quantity    int              `gorm:"column:quantity" json:"quantity"`
	UnitPrice   int64            `gorm:"column:unit_price" json:"unit_price"`
	Total       int64            `gorm:"column:total" json:"total"`
	CreatedAt   time.Time        `gorm:"column:created_at" json:"created_at"`
}

func (BillingDocumentItem) TableName() string {
	return "billing_document_items"
}

// FolioSequence is the per-branch, per-type counter row behind folio
// generation.
type FolioSequence struct {
	BranchID     snowflake.ID `gorm:"column:branch_id;primaryKey"`
	DocumentType DocumentType `gorm:"column:document_type;primaryKey"`
	LastValue    int64        `gorm:"column:last_value"`
	UpdatedAt    time.Time    `gorm:"column:updated_at"`
}

func (FolioSequence) TableName() string {
	return "folio_sequences"
}

// Result is what EmitDocument hands back to the order flow.
type Result struct {
	DocumentID   snowflake.ID   `json:"document_id"`
	Folio        string         `json:"folio"`
	PDFURL       string         `json:"pdf_url"`
	Type         string         `json:"type"`
	DocumentType DocumentType   `json:"document_type"`
	Status       DocumentStatus `json:"status"`
	IssuedAt     time.Time      `json:"issued_at"`
}

const (
	// BillingTypeInternal marks documents produced by the shadow backend.
	BillingTypeInternal = "internal"
	// BillingTypeFiscal is reserved for the future fiscal integration.
	BillingTypeFiscal = "fiscal"
)
