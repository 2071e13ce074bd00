package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$119.000", formatAmount(119000, "CLP"))
	assert.Equal(t, "$1.234.567", formatAmount(1234567, "CLP"))
	assert.Equal(t, "$42", formatAmount(42, "CLP"))
	assert.Equal(t, "$1.234,56", formatAmount(123456, "USD"))
	assert.Equal(t, "$0,05", formatAmount(5, "USD"))
}

func TestRenderDocumentWritesFile(t *testing.T) {
	dir := t.TempDir()

	provider, err := New(Params{
		Config: config.Config{
			Billing: config.BillingConfig{
				PDFOutputDir: dir,
				PDFBaseURL:   "https://files.example.com/documents",
			},
		},
		Log: zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	doc := &billingdomain.BillingDocument{
		DocumentType:  billingdomain.DocumentTypeBoletaInterna,
		Folio:         "BOL-00000001",
		OrderNumber:   "ORD-0001",
		CustomerName:  "Ana Rojas",
		CustomerTaxID: "12.345.678-9",
		Subtotal:      100000,
		TaxAmount:     19000,
		Total:         119000,
		Currency:      "CLP",
		IssuedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	items := []billingdomain.BillingDocumentItem{
		{Description: "Marco Rayban", Category: billingdomain.CategoryFrame, Quantity: 1, UnitPrice: 60000, Total: 60000},
	}

	url, err := provider.RenderDocument(context.Background(), doc, items)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/documents/BOL-00000001.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "BOL-00000001.pdf"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
