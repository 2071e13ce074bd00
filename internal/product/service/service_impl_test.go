package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type productFixture struct {
	svc      domain.Service
	db       *gorm.DB
	branchID snowflake.ID
	ctx      context.Context
}

func setupProductService(t *testing.T) *productFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.Exec(`CREATE TABLE products (
		id INTEGER PRIMARY KEY, branch_id INTEGER, sku TEXT, name TEXT, description TEXT,
		category TEXT, brand TEXT, price INTEGER, currency TEXT, stock INTEGER,
		archived BOOLEAN DEFAULT 0, created_at TIMESTAMP, updated_at TIMESTAMP
	)`).Error)

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	branchID := node.Generate()

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})

	return &productFixture{
		svc:      svc,
		db:       db,
		branchID: branchID,
		ctx:      branchctx.WithBranchID(context.Background(), int64(branchID)),
	}
}

func TestCreateProductNormalizesSKU(t *testing.T) {
	f := setupProductService(t)

	created, err := f.svc.Create(f.ctx, domain.CreateProductRequest{
		Name:     "Marco Acetato Negro",
		SKU:      " mar-001 ",
		Category: domain.CategoryFrame,
		Brand:    "Vulk",
		Price:    45000,
	})
	require.NoError(t, err)
	assert.Equal(t, "MAR-001", created.SKU)
	assert.Equal(t, "CLP", created.Currency)
	assert.Equal(t, f.branchID, created.BranchID)

	got, err := f.svc.GetByID(f.ctx, domain.GetProductRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domain.CategoryFrame, got.Category)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	f := setupProductService(t)

	_, err := f.svc.Create(f.ctx, domain.CreateProductRequest{
		Name:     "Cristal Blue Light",
		SKU:      "LEN-010",
		Category: domain.CategoryLens,
		Price:    30000,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, domain.CreateProductRequest{
		Name:     "Cristal Blue Light Premium",
		SKU:      "len-010",
		Category: domain.CategoryLens,
		Price:    42000,
	})
	assert.ErrorIs(t, err, domain.ErrSKUExists)
}

func TestCreateProductValidation(t *testing.T) {
	f := setupProductService(t)

	_, err := f.svc.Create(f.ctx, domain.CreateProductRequest{
		SKU:      "MAR-002",
		Category: domain.CategoryFrame,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(f.ctx, domain.CreateProductRequest{
		Name:     "Tratamiento AR",
		SKU:      "TRT-001",
		Category: domain.Category("warranty"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = f.svc.Create(f.ctx, domain.CreateProductRequest{
		Name:     "Armazon Metal",
		SKU:      "MAR-003",
		Category: domain.CategoryFrame,
		Price:    -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.svc.Create(context.Background(), domain.CreateProductRequest{
		Name:     "Armazon Metal",
		SKU:      "MAR-003",
		Category: domain.CategoryFrame,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBranch)
}

func TestArchiveProduct(t *testing.T) {
	f := setupProductService(t)

	created, err := f.svc.Create(f.ctx, domain.CreateProductRequest{
		Name:     "Pulido de bordes",
		SKU:      "LAB-001",
		Category: domain.CategoryLabor,
		Price:    8000,
	})
	require.NoError(t, err)

	archived, err := f.svc.Archive(f.ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	var stored int
	require.NoError(t, f.db.Raw(
		`SELECT archived FROM products WHERE id = ?`, created.ID,
	).Scan(&stored).Error)
	assert.Equal(t, 1, stored)

	_, err = f.svc.Archive(f.ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListProductsFiltersByCategory(t *testing.T) {
	f := setupProductService(t)

	for i, cat := range []domain.Category{domain.CategoryFrame, domain.CategoryFrame, domain.CategoryLens} {
		_, err := f.svc.Create(f.ctx, domain.CreateProductRequest{
			Name:     fmt.Sprintf("Producto %d", i),
			SKU:      fmt.Sprintf("SKU-%03d", i),
			Category: cat,
			Price:    10000,
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(f.ctx, domain.ListProductRequest{Category: domain.CategoryFrame})
	require.NoError(t, err)
	require.Len(t, resp.Products, 2)
	for _, p := range resp.Products {
		assert.Equal(t, domain.CategoryFrame, p.Category)
	}
}
