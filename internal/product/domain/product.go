package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

// Category classifies what an order line becomes on a billing document.
type Category string

const (
	CategoryFrame     Category = "frame"
	CategoryLens      Category = "lens"
	CategoryTreatment Category = "treatment"
	CategoryLabor     Category = "labor"
	CategoryOther     Category = "other"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryFrame, CategoryLens, CategoryTreatment, CategoryLabor, CategoryOther:
		return true
	}
	return false
}

type Product struct {
	ID          snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	BranchID    snowflake.ID `gorm:"column:branch_id" json:"branch_id"`
	SKU         string       `gorm:"column:sku" json:"sku"`
	Name        string       `gorm:"column:name" json:"name"`
	Description string       `gorm:"column:description" json:"description,omitempty"`
	Category    Category     `gorm:"column:category" json:"category"`
	Brand       string       `gorm:"column:brand" json:"brand,omitempty"`
	Price       int64        `gorm:"column:price" json:"price"`
	Currency    string       `gorm:"column:currency" json:"currency"`
	Stock       int          `gorm:"column:stock" json:"stock"`
	Archived    bool         `gorm:"column:archived" json:"archived"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

type CreateProductRequest struct {
	SKU         string
	Name        string
	Description string
	Category    Category
	Brand       string
	Price       int64
	Currency    string
	Stock       int
}

type ListProductRequest struct {
	PageToken string
	PageSize  int32
	Category  Category
	Brand     string
	Search    string
	Archived  *bool
}

type ListProductFilter struct {
	Category Category
	Brand    string
	Search   string
	Archived *bool
}

type ListProductResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type GetProductRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateProductRequest) (Product, error)
	List(context.Context, ListProductRequest) (ListProductResponse, error)
	GetByID(context.Context, GetProductRequest) (Product, error)
	Archive(ctx context.Context, id string) (Product, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Product, error)
	FindBySKU(ctx context.Context, db *gorm.DB, branchID snowflake.ID, sku string) (*Product, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListProductFilter, page pagination.Pagination) ([]*Product, error)
	SetArchived(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, archived bool) error
	AdjustStock(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, delta int) error
}

var (
	ErrInvalidBranch   = errors.New("invalid_branch")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidSKU      = errors.New("invalid_sku")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidID       = errors.New("invalid_id")
	ErrSKUExists       = errors.New("sku_exists")
	ErrNotFound        = errors.New("not_found")
)
