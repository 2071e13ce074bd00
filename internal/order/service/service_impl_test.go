package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/clock"
	customerrepo "github.com/opticore/opticore/internal/customer/repository"
	"github.com/opticore/opticore/internal/order/domain"
	orderrepo "github.com/opticore/opticore/internal/order/repository"
	productdomain "github.com/opticore/opticore/internal/product/domain"
	productrepo "github.com/opticore/opticore/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubBilling struct {
	calls  int
	fail   bool
	result *billingdomain.Result
}

func (s *stubBilling) EmitDocument(ctx context.Context, order billingdomain.Order) (*billingdomain.Result, error) {
	s.calls++
	if s.fail {
		return nil, fmt.Errorf("%w: sequence down", billingdomain.ErrFolioGeneration)
	}
	if s.result != nil {
		return s.result, nil
	}
	return &billingdomain.Result{
		Folio:        "BOL-00000001",
		Type:         billingdomain.BillingTypeInternal,
		DocumentType: billingdomain.DocumentTypeBoletaInterna,
		Status:       billingdomain.StatusAccepted,
	}, nil
}

func (s *stubBilling) GetDocumentStatus(ctx context.Context, branchID snowflake.ID, folio string) (billingdomain.DocumentStatus, error) {
	return billingdomain.StatusAccepted, nil
}

func (s *stubBilling) CancelDocument(ctx context.Context, branchID snowflake.ID, folio, reason string) (bool, error) {
	return true, nil
}

func setupOrderDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	stmts := []string{
		`CREATE TABLE customers (
			id INTEGER PRIMARY KEY, branch_id INTEGER, name TEXT, email TEXT,
			phone TEXT, tax_id TEXT, notes TEXT, created_at TIMESTAMP, updated_at TIMESTAMP
		)`,
		`CREATE TABLE products (
			id INTEGER PRIMARY KEY, branch_id INTEGER, sku TEXT, name TEXT, description TEXT,
			category TEXT, brand TEXT, price INTEGER, currency TEXT, stock INTEGER,
			archived BOOLEAN DEFAULT 0, created_at TIMESTAMP, updated_at TIMESTAMP
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY, branch_id INTEGER, customer_id INTEGER, number TEXT,
			status TEXT, customer_name TEXT, customer_tax_id TEXT,
			subtotal INTEGER, tax_amount INTEGER, total INTEGER, currency TEXT,
			sii_invoice_type TEXT, billing_folio TEXT, billing_type TEXT, billing_pdf_url TEXT,
			completed_at TIMESTAMP, created_at TIMESTAMP, updated_at TIMESTAMP
		)`,
		`CREATE TABLE order_items (
			id INTEGER PRIMARY KEY, order_id INTEGER, product_id INTEGER, description TEXT,
			category TEXT, quantity INTEGER, unit_price INTEGER, total INTEGER, created_at TIMESTAMP
		)`,
		`CREATE TABLE order_sequences (
			branch_id INTEGER PRIMARY KEY, last_value INTEGER NOT NULL, updated_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type orderFixture struct {
	svc        domain.Service
	billing    *stubBilling
	db         *gorm.DB
	node       *snowflake.Node
	branchID   snowflake.ID
	customerID snowflake.ID
	productID  snowflake.ID
	ctx        context.Context
}

func setupOrderService(t *testing.T) *orderFixture {
	t.Helper()

	db := setupOrderDB(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	branchID := node.Generate()
	customerID := node.Generate()
	productID := node.Generate()

	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		`INSERT INTO customers (id, branch_id, name, email, tax_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customerID, branchID, "Ana Rojas", "ana@example.com", "12.345.678-9", now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, branch_id, sku, name, category, price, currency, stock, archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		productID, branchID, "FR-001", "Marco Rayban", "frame", 60000, "CLP", 10, now, now,
	).Error)

	billing := &stubBilling{}
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:         orderrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		ProductRepo:  productrepo.Provide(),
		Billing:      billing,
	})

	return &orderFixture{
		svc:        svc,
		billing:    billing,
		db:         db,
		node:       node,
		branchID:   branchID,
		customerID: customerID,
		productID:  productID,
		ctx:        branchctx.WithBranchID(context.Background(), int64(branchID)),
	}
}

func (f *orderFixture) createOrder(t *testing.T) domain.Order {
	t.Helper()
	order, err := f.svc.Create(f.ctx, domain.CreateOrderRequest{
		CustomerID:     f.customerID.String(),
		SIIInvoiceType: "boleta",
		Items: []domain.CreateOrderItemRequest{
			{ProductID: f.productID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderComputesTotals(t *testing.T) {
	f := setupOrderService(t)
	order := f.createOrder(t)

	assert.Equal(t, "ORD-000001", order.Number)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(120000), order.Subtotal)
	assert.Equal(t, int64(22800), order.TaxAmount)
	assert.Equal(t, int64(142800), order.Total)
	assert.Equal(t, "CLP", order.Currency)
	require.Len(t, order.Items, 1)
	assert.Equal(t, productdomain.CategoryFrame, order.Items[0].Category)
	assert.Equal(t, "Ana Rojas", order.CustomerName)
}

func TestCreateOrderNumbersIncrease(t *testing.T) {
	f := setupOrderService(t)
	first := f.createOrder(t)
	second := f.createOrder(t)

	assert.Equal(t, "ORD-000001", first.Number)
	assert.Equal(t, "ORD-000002", second.Number)
}

func TestCreateOrderValidation(t *testing.T) {
	f := setupOrderService(t)

	_, err := f.svc.Create(f.ctx, domain.CreateOrderRequest{CustomerID: f.customerID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidItems)

	_, err = f.svc.Create(f.ctx, domain.CreateOrderRequest{
		CustomerID: f.customerID.String(),
		Items:      []domain.CreateOrderItemRequest{{ProductID: f.productID.String(), Quantity: 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.Create(f.ctx, domain.CreateOrderRequest{
		CustomerID: f.node.Generate().String(),
		Items:      []domain.CreateOrderItemRequest{{ProductID: f.productID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customerID.String(),
		Items:      []domain.CreateOrderItemRequest{{ProductID: f.productID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBranch)
}

func TestCompleteOrderEmitsBillingOnce(t *testing.T) {
	f := setupOrderService(t)
	order := f.createOrder(t)

	resp, err := f.svc.Complete(f.ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, f.billing.calls)
	assert.Equal(t, domain.StatusCompleted, resp.Order.Status)
	assert.Equal(t, "BOL-00000001", resp.Order.BillingFolio)
	require.NotNil(t, resp.Billing)

	// Completing again does not re-emit.
	_, err = f.svc.Complete(f.ctx, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	assert.Equal(t, 1, f.billing.calls)
}

func TestCompleteOrderFolioFailureKeepsPending(t *testing.T) {
	f := setupOrderService(t)
	order := f.createOrder(t)
	f.billing.fail = true

	_, err := f.svc.Complete(f.ctx, order.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, billingdomain.ErrFolioGeneration))

	reloaded, err := f.svc.GetByID(f.ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, reloaded.Status)

	// A retry after the backend recovers succeeds.
	f.billing.fail = false
	resp, err := f.svc.Complete(f.ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resp.Order.Status)
}

func TestCompleteOrderDecrementsStock(t *testing.T) {
	f := setupOrderService(t)
	order := f.createOrder(t)

	_, err := f.svc.Complete(f.ctx, order.ID.String())
	require.NoError(t, err)

	var stock int
	require.NoError(t, f.db.Raw(`SELECT stock FROM products WHERE id = ?`, f.productID).Scan(&stock).Error)
	assert.Equal(t, 8, stock)
}

func TestCancelOrder(t *testing.T) {
	f := setupOrderService(t)
	order := f.createOrder(t)

	cancelled, err := f.svc.Cancel(f.ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// Cancelled orders can be neither completed nor re-cancelled.
	_, err = f.svc.Complete(f.ctx, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrOrderCancelled)
	assert.Zero(t, f.billing.calls)

	_, err = f.svc.Cancel(f.ctx, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotPending)
}

func TestGetOrderScopedToBranch(t *testing.T) {
	f := setupOrderService(t)
	order := f.createOrder(t)

	otherBranch := branchctx.WithBranchID(context.Background(), int64(f.node.Generate()))
	_, err := f.svc.GetByID(otherBranch, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
