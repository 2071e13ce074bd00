package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/billing/repository"
	"github.com/opticore/opticore/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupBillingDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	stmts := []string{
		`CREATE TABLE folio_sequences (
			branch_id INTEGER NOT NULL,
			document_type TEXT NOT NULL,
			last_value INTEGER NOT NULL,
			updated_at TIMESTAMP,
			PRIMARY KEY (branch_id, document_type)
		)`,
		`CREATE TABLE billing_documents (
			id INTEGER PRIMARY KEY,
			branch_id INTEGER NOT NULL,
			order_id INTEGER NOT NULL,
			order_number TEXT,
			document_type TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			folio TEXT NOT NULL,
			status TEXT NOT NULL,
			cancel_reason TEXT,
			customer_name TEXT,
			customer_tax_id TEXT,
			subtotal INTEGER,
			tax_amount INTEGER,
			total INTEGER,
			currency TEXT,
			pdf_url TEXT,
			issued_at TIMESTAMP,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX idx_billing_documents_branch_folio
			ON billing_documents (branch_id, folio)`,
		`CREATE TABLE billing_document_items (
			id INTEGER PRIMARY KEY,
			document_id INTEGER NOT NULL,
			product_id INTEGER,
			description TEXT,
			category TEXT,
			quantity INTEGER,
			unit_price INTEGER,
			total INTEGER,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			billing_folio TEXT,
			billing_type TEXT,
			billing_pdf_url TEXT,
			updated_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestAdapter(t *testing.T, db *gorm.DB, opts ...func(*InternalAdapterParams)) *InternalAdapter {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	params := InternalAdapterParams{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}
	for _, opt := range opts {
		opt(&params)
	}
	return NewInternalAdapter(params)
}

func testOrder(node *snowflake.Node, branchID snowflake.ID, invoiceType string) domain.Order {
	return domain.Order{
		ID:             node.Generate(),
		Number:         "ORD-0001",
		BranchID:       branchID,
		CustomerID:     node.Generate(),
		CustomerName:   "Ana Rojas",
		CustomerTaxID:  "12.345.678-9",
		Subtotal:       100000,
		TaxAmount:      19000,
		Total:          119000,
		Currency:       "CLP",
		SIIInvoiceType: invoiceType,
		Items: []domain.OrderLine{
			{ProductID: node.Generate(), Description: "Marco Rayban", Category: domain.CategoryFrame, Quantity: 1, UnitPrice: 60000, Total: 60000},
			{ProductID: node.Generate(), Description: "Cristal antirreflejo", Category: domain.CategoryLens, Quantity: 2, UnitPrice: 29500, Total: 59000},
		},
	}
}

func TestEmitDocumentBoleta(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)
	branchID := adapter.genID.Generate()

	order := testOrder(adapter.genID, branchID, "boleta")
	order.ID = adapter.genID.Generate()
	require.NoError(t, db.Exec(`INSERT INTO orders (id) VALUES (?)`, order.ID).Error)

	result, err := adapter.EmitDocument(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, "BOL-00000001", result.Folio)
	assert.Equal(t, domain.BillingTypeInternal, result.Type)
	assert.Equal(t, domain.DocumentTypeBoletaInterna, result.DocumentType)
	assert.Equal(t, domain.StatusAccepted, result.Status)

	var itemCount int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM billing_document_items WHERE document_id = ?`, result.DocumentID).Scan(&itemCount).Error)
	assert.Equal(t, int64(2), itemCount)

	// Folio mirrored onto the order row.
	var stamped string
	require.NoError(t, db.Raw(`SELECT billing_folio FROM orders WHERE id = ?`, order.ID).Scan(&stamped).Error)
	assert.Equal(t, result.Folio, stamped)
}

func TestEmitDocumentTypeMapping(t *testing.T) {
	cases := []struct {
		invoiceType string
		wantType    domain.DocumentType
		wantPrefix  string
	}{
		{"factura", domain.DocumentTypeFacturaInterna, "FAC-"},
		{"boleta", domain.DocumentTypeBoletaInterna, "BOL-"},
		{"", domain.DocumentTypeTicketInterno, "TIC-"},
		{"garbage", domain.DocumentTypeTicketInterno, "TIC-"},
	}

	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)
	branchID := adapter.genID.Generate()

	for _, tc := range cases {
		order := testOrder(adapter.genID, branchID, tc.invoiceType)
		result, err := adapter.EmitDocument(context.Background(), order)
		require.NoError(t, err, "invoice type %q", tc.invoiceType)
		assert.Equal(t, tc.wantType, result.DocumentType)
		assert.Equal(t, tc.wantPrefix, result.Folio[:4])
	}
}

func TestEmitDocumentFoliosIncreasePerBranchAndType(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)
	branchA := adapter.genID.Generate()
	branchB := adapter.genID.Generate()

	first, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchA, "boleta"))
	require.NoError(t, err)
	second, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchA, "boleta"))
	require.NoError(t, err)

	assert.Equal(t, "BOL-00000001", first.Folio)
	assert.Equal(t, "BOL-00000002", second.Folio)

	// A different type in the same branch starts its own sequence.
	factura, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchA, "factura"))
	require.NoError(t, err)
	assert.Equal(t, "FAC-00000001", factura.Folio)

	// So does the same type in a different branch.
	other, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchB, "boleta"))
	require.NoError(t, err)
	assert.Equal(t, "BOL-00000001", other.Folio)
}

func TestEmitDocumentWithoutBranchFails(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)

	order := testOrder(adapter.genID, 0, "boleta")
	_, err := adapter.EmitDocument(context.Background(), order)
	assert.Error(t, err)
}

func TestEmitDocumentUnknownCategoryFallsBackToOther(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)
	branchID := adapter.genID.Generate()

	order := testOrder(adapter.genID, branchID, "boleta")
	order.Items = []domain.OrderLine{
		{ProductID: adapter.genID.Generate(), Description: "Misc", Category: "mystery", Quantity: 1, UnitPrice: 100, Total: 100},
	}

	result, err := adapter.EmitDocument(context.Background(), order)
	require.NoError(t, err)

	var category string
	require.NoError(t, db.Raw(`SELECT category FROM billing_document_items WHERE document_id = ?`, result.DocumentID).Scan(&category).Error)
	assert.Equal(t, string(domain.CategoryOther), category)
}

type flakyFolioRepo struct {
	domain.Repository
}

func (r *flakyFolioRepo) NextFolio(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType domain.DocumentType) (int64, error) {
	return 0, errors.New("sequence unavailable")
}

func TestEmitDocumentFallsBackWhenSequenceErrors(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db, func(p *InternalAdapterParams) {
		p.Repo = &flakyFolioRepo{Repository: repository.Provide()}
	})
	branchID := adapter.genID.Generate()

	first, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "boleta"))
	require.NoError(t, err)
	assert.Equal(t, "BOL-00000001", first.Folio)

	second, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "boleta"))
	require.NoError(t, err)
	assert.Equal(t, "BOL-00000002", second.Folio)
}

type brokenFolioRepo struct {
	domain.Repository
}

func (r *brokenFolioRepo) NextFolio(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType domain.DocumentType) (int64, error) {
	return 0, errors.New("sequence unavailable")
}

func (r *brokenFolioRepo) NextFolioFallback(ctx context.Context, db *gorm.DB, branchID snowflake.ID, docType domain.DocumentType) (int64, error) {
	return 0, errors.New("ledger unavailable")
}

func TestEmitDocumentFolioFailureIsFatal(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db, func(p *InternalAdapterParams) {
		p.Repo = &brokenFolioRepo{Repository: repository.Provide()}
	})
	branchID := adapter.genID.Generate()

	_, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "boleta"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFolioGeneration)
}

type failingItemsRepo struct {
	domain.Repository
}

func (r *failingItemsRepo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.BillingDocumentItem) error {
	return errors.New("items table locked")
}

func TestEmitDocumentItemFailureIsNonFatal(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db, func(p *InternalAdapterParams) {
		p.Repo = &failingItemsRepo{Repository: repository.Provide()}
	})
	branchID := adapter.genID.Generate()

	result, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "boleta"))
	require.NoError(t, err)

	// Header persisted even though items were not.
	var headerCount int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM billing_documents WHERE id = ?`, result.DocumentID).Scan(&headerCount).Error)
	assert.Equal(t, int64(1), headerCount)

	var itemCount int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM billing_document_items WHERE document_id = ?`, result.DocumentID).Scan(&itemCount).Error)
	assert.Zero(t, itemCount)
}

type failingRenderer struct{}

func (failingRenderer) RenderDocument(ctx context.Context, doc *domain.BillingDocument, items []domain.BillingDocumentItem) (string, error) {
	return "", errors.New("render crashed")
}

func TestEmitDocumentRenderFailureIsNonFatal(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db, func(p *InternalAdapterParams) {
		p.Renderer = failingRenderer{}
	})
	branchID := adapter.genID.Generate()

	result, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "boleta"))
	require.NoError(t, err)
	assert.Empty(t, result.PDFURL)
}

func TestGetDocumentStatusAlwaysAccepted(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)
	branchID := adapter.genID.Generate()

	result, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "boleta"))
	require.NoError(t, err)

	status, err := adapter.GetDocumentStatus(context.Background(), branchID, result.Folio)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, status)

	// Documented current behavior: a cancelled internal document still
	// reads accepted through the adapter.
	ok, err := adapter.CancelDocument(context.Background(), branchID, result.Folio, "customer returned")
	require.NoError(t, err)
	require.True(t, ok)

	status, err = adapter.GetDocumentStatus(context.Background(), branchID, result.Folio)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, status)
}

func TestGetDocumentStatusMissingFolio(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)

	_, err := adapter.GetDocumentStatus(context.Background(), adapter.genID.Generate(), "BOL-99999999")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestCancelDocumentFlipsStatus(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)
	branchID := adapter.genID.Generate()

	result, err := adapter.EmitDocument(context.Background(), testOrder(adapter.genID, branchID, "factura"))
	require.NoError(t, err)

	ok, err := adapter.CancelDocument(context.Background(), branchID, result.Folio, "duplicate emission")
	require.NoError(t, err)
	assert.True(t, ok)

	var row struct {
		Status       string
		CancelReason string
	}
	require.NoError(t, db.Raw(`SELECT status, cancel_reason FROM billing_documents WHERE id = ?`, result.DocumentID).Scan(&row).Error)
	assert.Equal(t, string(domain.StatusCancelled), row.Status)
	assert.Equal(t, "duplicate emission", row.CancelReason)

	// The ledger row survives: cancellation is a marker, not a delete.
	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM billing_documents WHERE branch_id = ?`, branchID).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCancelDocumentMissingFolio(t *testing.T) {
	db := setupBillingDB(t)
	adapter := newTestAdapter(t, db)

	ok, err := adapter.CancelDocument(context.Background(), adapter.genID.Generate(), "FAC-00000042", "whatever")
	require.NoError(t, err)
	assert.False(t, ok)
}
