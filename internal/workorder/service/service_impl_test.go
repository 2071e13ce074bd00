package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/clock"
	customerrepo "github.com/opticore/opticore/internal/customer/repository"
	"github.com/opticore/opticore/internal/workorder/domain"
	workorderrepo "github.com/opticore/opticore/internal/workorder/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type workorderFixture struct {
	svc        domain.Service
	clk        *clock.FakeClock
	node       *snowflake.Node
	branchID   snowflake.ID
	customerID snowflake.ID
	ctx        context.Context
}

func setupWorkOrderService(t *testing.T) *workorderFixture {
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
		`CREATE TABLE work_orders (
			id INTEGER PRIMARY KEY, branch_id INTEGER, customer_id INTEGER, order_id INTEGER,
			status TEXT, customer_name TEXT, prescription TEXT, lab_notes TEXT,
			due_at TIMESTAMP, delivered_at TIMESTAMP, created_at TIMESTAMP, updated_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	branchID := node.Generate()
	customerID := node.Generate()
	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		`INSERT INTO customers (id, branch_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		customerID, branchID, "Pedro Soto", now, now,
	).Error)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         workorderrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
	})

	return &workorderFixture{
		svc:        svc,
		clk:        clk,
		node:       node,
		branchID:   branchID,
		customerID: customerID,
		ctx:        branchctx.WithBranchID(context.Background(), int64(branchID)),
	}
}

func (f *workorderFixture) create(t *testing.T) domain.WorkOrder {
	t.Helper()
	wo, err := f.svc.Create(f.ctx, domain.CreateWorkOrderRequest{
		CustomerID:   f.customerID.String(),
		Prescription: "OD -2.50 OS -2.25",
	})
	require.NoError(t, err)
	return wo
}

func TestWorkOrderLinearTransitions(t *testing.T) {
	f := setupWorkOrderService(t)
	wo := f.create(t)
	assert.Equal(t, domain.StatusReceived, wo.Status)

	expected := []domain.Status{domain.StatusInLab, domain.StatusReady, domain.StatusDelivered}
	for _, want := range expected {
		advanced, err := f.svc.Advance(f.ctx, wo.ID.String())
		require.NoError(t, err)
		assert.Equal(t, want, advanced.Status)
	}

	// Delivered is terminal.
	_, err := f.svc.Advance(f.ctx, wo.ID.String())
	assert.ErrorIs(t, err, domain.ErrTerminalState)
}

func TestWorkOrderDeliveredTimestamp(t *testing.T) {
	f := setupWorkOrderService(t)
	wo := f.create(t)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Advance(f.ctx, wo.ID.String())
		require.NoError(t, err)
	}

	delivered, err := f.svc.Advance(f.ctx, wo.ID.String())
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, f.clk.Now(), *delivered.DeliveredAt)
}

func TestWorkOrderCancelFromAnyNonTerminalState(t *testing.T) {
	f := setupWorkOrderService(t)

	// Cancel straight from received.
	first := f.create(t)
	cancelled, err := f.svc.Cancel(f.ctx, first.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// Cancel from the middle of the chain.
	second := f.create(t)
	_, err = f.svc.Advance(f.ctx, second.ID.String())
	require.NoError(t, err)
	cancelled, err = f.svc.Cancel(f.ctx, second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// Cancelled is terminal for both cancel and advance.
	_, err = f.svc.Cancel(f.ctx, cancelled.ID.String())
	assert.ErrorIs(t, err, domain.ErrTerminalState)
	_, err = f.svc.Advance(f.ctx, cancelled.ID.String())
	assert.ErrorIs(t, err, domain.ErrTerminalState)
}

func TestWorkOrderValidation(t *testing.T) {
	f := setupWorkOrderService(t)

	_, err := f.svc.Create(f.ctx, domain.CreateWorkOrderRequest{CustomerID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Create(f.ctx, domain.CreateWorkOrderRequest{CustomerID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.GetByID(f.ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Create(context.Background(), domain.CreateWorkOrderRequest{CustomerID: f.customerID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidBranch)
}
