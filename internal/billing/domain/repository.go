package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// NextFolio atomically increments and returns the branch+type counter.
	NextFolio(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType DocumentType) (int64, error)
	// NextFolioFallback derives the next sequence from the ledger itself.
	// Not atomic: concurrent callers can collide. Used only when NextFolio
	// errors.
	NextFolioFallback(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType DocumentType) (int64, error)
	InsertDocument(ctx context.Context, db *gorm.DB, doc *BillingDocument) error
	InsertItems(ctx context.Context, db *gorm.DB, items []BillingDocumentItem) error
	FindByFolio(ctx context.Context, db *gorm.DB, branchID snowflake.ID, folio string) (*BillingDocument, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status DocumentStatus, reason string) error
	StampOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID, folio, billingType, pdfURL string) error
}
