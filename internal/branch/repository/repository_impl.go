package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/branch/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, branch *domain.Branch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO branches (id, name, code, address, phone, timezone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		branch.ID,
		branch.Name,
		branch.Code,
		branch.Address,
		branch.Phone,
		branch.Timezone,
		branch.CreatedAt,
		branch.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Branch, error) {
	var branch domain.Branch
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, address, phone, timezone, created_at, updated_at
		 FROM branches WHERE id = ?`,
		id,
	).Scan(&branch).Error
	if err != nil {
		return nil, err
	}
	if branch.ID == 0 {
		return nil, nil
	}
	return &branch, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Branch, error) {
	var branch domain.Branch
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, address, phone, timezone, created_at, updated_at
		 FROM branches WHERE code = ?`,
		code,
	).Scan(&branch).Error
	if err != nil {
		return nil, err
	}
	if branch.ID == 0 {
		return nil, nil
	}
	return &branch, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Branch, error) {
	var branches []domain.Branch
	err := db.WithContext(ctx).
		Model(&domain.Branch{}).
		Order("created_at asc, id asc").
		Find(&branches).Error
	if err != nil {
		return nil, err
	}
	return branches, nil
}
