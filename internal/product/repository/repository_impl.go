package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, branch_id, sku, name, description, category, brand, price, currency, stock, archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.BranchID,
		product.SKU,
		product.Name,
		product.Description,
		product.Category,
		product.Brand,
		product.Price,
		product.Currency,
		product.Stock,
		product.Archived,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, sku, name, description, category, brand, price, currency, stock, archived, created_at, updated_at
		 FROM products WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindBySKU(ctx context.Context, db *gorm.DB, branchID snowflake.ID, sku string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, sku, name, description, category, brand, price, currency, stock, archived, created_at, updated_at
		 FROM products WHERE branch_id = ? AND sku = ?`,
		branchID,
		sku,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListProductFilter, page pagination.Pagination) ([]*domain.Product, error) {
	var products []*domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("branch_id = ?", branchID)
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Brand != "" {
		stmt = stmt.Where("brand = ?", filter.Brand)
	}
	if filter.Search != "" {
		stmt = stmt.Where("(name LIKE ? OR sku LIKE ?)", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Archived != nil {
		stmt = stmt.Where("archived = ?", *filter.Archived)
	}
	stmt = pagination.Apply(stmt, page)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) SetArchived(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, archived bool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET archived = ?, updated_at = ? WHERE branch_id = ? AND id = ?`,
		archived,
		time.Now().UTC(),
		branchID,
		id,
	).Error
}

func (r *repo) AdjustStock(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, delta int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ?, updated_at = ? WHERE branch_id = ? AND id = ?`,
		delta,
		time.Now().UTC(),
		branchID,
		id,
	).Error
}
