package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/opticore/opticore/internal/branch/domain"
	"gorm.io/gorm"
)

const (
	defaultBranchName     = "Casa Matriz"
	defaultBranchCode     = "main"
	defaultBranchTimezone = "America/Santiago"
)

// EnsureDefaultBranch seeds the main branch so a fresh install can take
// requests immediately.
func EnsureDefaultBranch(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureBranchTx(ctx, tx, node.Generate())
		return err
	})
}

// EnsureDefaultBranchWithID seeds the main branch under a fixed ID, used when
// deployments pin the default tenant through configuration.
func EnsureDefaultBranchWithID(db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if id == 0 {
		return errors.New("seed branch id is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureBranchTx(ctx, tx, snowflake.ID(id))
		return err
	})
}

func ensureBranchTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (branchdomain.Branch, error) {
	var branch branchdomain.Branch
	err := tx.WithContext(ctx).Where("code = ?", defaultBranchCode).First(&branch).Error
	if err == nil {
		return branch, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return branch, err
	}

	now := time.Now().UTC()
	branch = branchdomain.Branch{
		ID:        id,
		Name:      defaultBranchName,
		Code:      defaultBranchCode,
		Timezone:  defaultBranchTimezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&branch).Error; err != nil {
		return branch, err
	}
	return branch, nil
}
