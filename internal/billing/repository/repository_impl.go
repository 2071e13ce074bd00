package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextFolio(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType domain.DocumentType) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO folio_sequences (branch_id, document_type, last_value, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (branch_id, document_type)
		 DO UPDATE SET last_value = folio_sequences.last_value + 1, updated_at = ?
		 RETURNING last_value`,
		branchID,
		docType,
		time.Now().UTC(),
		time.Now().UTC(),
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) NextFolioFallback(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType domain.DocumentType) (int64, error) {
	var max int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sequence_number), 0)
		 FROM billing_documents WHERE branch_id = ? AND document_type = ?`,
		branchID,
		docType,
	).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repo) InsertDocument(ctx context.Context, db *gorm.DB, doc *domain.BillingDocument) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_documents (
			id, branch_id, order_id, order_number, document_type, sequence_number,
			folio, status, cancel_reason, customer_name, customer_tax_id,
			subtotal, tax_amount, total, currency, pdf_url, issued_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.BranchID,
		doc.OrderID,
		doc.OrderNumber,
		doc.DocumentType,
		doc.SequenceNumber,
		doc.Folio,
		doc.Status,
		doc.CancelReason,
		doc.CustomerName,
		doc.CustomerTaxID,
		doc.Subtotal,
		doc.TaxAmount,
		doc.Total,
		doc.Currency,
		doc.PDFURL,
		doc.IssuedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.BillingDocumentItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByFolio(ctx context.Context, db *gorm.DB, branchID snowflake.ID, folio string) (*domain.BillingDocument, error) {
	var doc domain.BillingDocument
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, order_id, order_number, document_type, sequence_number,
			folio, status, cancel_reason, customer_name, customer_tax_id,
			subtotal, tax_amount, total, currency, pdf_url, issued_at, created_at, updated_at
		 FROM billing_documents WHERE branch_id = ? AND folio = ?`,
		branchID,
		folio,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.DocumentStatus, reason string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_documents SET status = ?, cancel_reason = ?, updated_at = ? WHERE id = ?`,
		status,
		reason,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) StampOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID, folio, billingType, pdfURL string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET billing_folio = ?, billing_type = ?, billing_pdf_url = ?, updated_at = ? WHERE id = ?`,
		folio,
		billingType,
		pdfURL,
		time.Now().UTC(),
		orderID,
	).Error
}
