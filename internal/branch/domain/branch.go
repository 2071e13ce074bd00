package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Branch is the tenant unit: every customer, product and order belongs to
// exactly one branch.
type Branch struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Name      string       `gorm:"column:name" json:"name"`
	Code      string       `gorm:"column:code" json:"code"`
	Address   string       `gorm:"column:address" json:"address"`
	Phone     string       `gorm:"column:phone" json:"phone"`
	Timezone  string       `gorm:"column:timezone" json:"timezone"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Branch) TableName() string {
	return "branches"
}

type CreateBranchRequest struct {
	Name     string
	Code     string
	Address  string
	Phone    string
	Timezone string
}

type Service interface {
	Create(context.Context, CreateBranchRequest) (Branch, error)
	List(context.Context) ([]Branch, error)
	GetByID(ctx context.Context, id string) (Branch, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, branch *Branch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Branch, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Branch, error)
	List(ctx context.Context, db *gorm.DB) ([]Branch, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidCode = errors.New("invalid_code")
	ErrInvalidID   = errors.New("invalid_id")
	ErrCodeExists  = errors.New("code_exists")
	ErrNotFound    = errors.New("not_found")
)
