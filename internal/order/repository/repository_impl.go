package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/order/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextNumber(ctx context.Context, db *gorm.DB, branchID snowflake.ID) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO order_sequences (branch_id, last_value, updated_at)
		 VALUES (?, 1, ?)
		 ON CONFLICT (branch_id)
		 DO UPDATE SET last_value = order_sequences.last_value + 1, updated_at = ?
		 RETURNING last_value`,
		branchID,
		time.Now().UTC(),
		time.Now().UTC(),
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, branch_id, customer_id, number, status, customer_name, customer_tax_id,
			subtotal, tax_amount, total, currency, sii_invoice_type,
			billing_folio, billing_type, billing_pdf_url, completed_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.BranchID,
		order.CustomerID,
		order.Number,
		order.Status,
		order.CustomerName,
		order.CustomerTaxID,
		order.Subtotal,
		order.TaxAmount,
		order.Total,
		order.Currency,
		order.SIIInvoiceType,
		order.BillingFolio,
		order.BillingType,
		order.BillingPDFURL,
		order.CompletedAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, customer_id, number, status, customer_name, customer_tax_id,
			subtotal, tax_amount, total, currency, sii_invoice_type,
			billing_folio, billing_type, billing_pdf_url, completed_at, created_at, updated_at
		 FROM orders WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListOrderFilter, page pagination.Pagination) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("branch_id = ?", branchID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	stmt = pagination.Apply(stmt, page)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, status domain.Status, completedAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, completed_at = ?, updated_at = ? WHERE branch_id = ? AND id = ?`,
		status,
		completedAt,
		time.Now().UTC(),
		branchID,
		id,
	).Error
}
