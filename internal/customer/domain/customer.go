package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Customer struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	BranchID  snowflake.ID `gorm:"column:branch_id" json:"branch_id"`
	Name      string       `gorm:"column:name" json:"name"`
	Email     string       `gorm:"column:email" json:"email"`
	Phone     string       `gorm:"column:phone" json:"phone"`
	TaxID     string       `gorm:"column:tax_id" json:"tax_id"`
	Notes     string       `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

type CreateCustomerRequest struct {
	Name  string
	Email string
	Phone string
	TaxID string
	Notes string
}

type ListCustomerRequest struct {
	PageToken   string
	PageSize    int32
	Name        string
	Email       string
	TaxID       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	Email       string
	TaxID       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
}

var (
	ErrInvalidBranch = errors.New("invalid_branch")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
