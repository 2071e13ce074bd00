package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/quote/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quote *domain.Quote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quotes (
			id, branch_id, customer_id, status, customer_name,
			subtotal, tax_amount, total, currency, notes, expires_at,
			accepted_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.ID,
		quote.BranchID,
		quote.CustomerID,
		quote.Status,
		quote.CustomerName,
		quote.Subtotal,
		quote.TaxAmount,
		quote.Total,
		quote.Currency,
		quote.Notes,
		quote.ExpiresAt,
		quote.AcceptedAt,
		quote.CreatedAt,
		quote.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.QuoteItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Quote, error) {
	var quote domain.Quote
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, customer_id, status, customer_name,
			subtotal, tax_amount, total, currency, notes, expires_at,
			accepted_at, created_at, updated_at
		 FROM quotes WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&quote).Error
	if err != nil {
		return nil, err
	}
	if quote.ID == 0 {
		return nil, nil
	}
	return &quote, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]domain.QuoteItem, error) {
	var items []domain.QuoteItem
	err := db.WithContext(ctx).
		Model(&domain.QuoteItem{}).
		Where("quote_id = ?", quoteID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListQuoteFilter, page pagination.Pagination) ([]*domain.Quote, error) {
	var quotes []*domain.Quote
	stmt := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("branch_id = ?", branchID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	stmt = pagination.Apply(stmt, page)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, status domain.Status, acceptedAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotes SET status = ?, accepted_at = ?, updated_at = ? WHERE branch_id = ? AND id = ?`,
		status,
		acceptedAt,
		time.Now().UTC(),
		branchID,
		id,
	).Error
}

func (r *repo) ExpireOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE quotes SET status = ?, updated_at = ? WHERE status = ? AND expires_at < ?`,
		domain.StatusExpired,
		now,
		domain.StatusPending,
		now,
	)
	return result.RowsAffected, result.Error
}
