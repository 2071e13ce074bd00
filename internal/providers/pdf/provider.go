package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provider renders billing documents to PDF files on local disk and hands
// back a URL under the configured base path.
type Provider struct {
	outputDir string
	baseURL   string
	log       *zap.Logger
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) (*Provider, error) {
	dir := strings.TrimSpace(p.Config.Billing.PDFOutputDir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "opticore-documents")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf output dir: %w", err)
	}

	return &Provider{
		outputDir: dir,
		baseURL:   strings.TrimRight(p.Config.Billing.PDFBaseURL, "/"),
		log:       p.Log.Named("providers.pdf"),
	}, nil
}

// RenderDocument writes the document PDF and returns its fetchable URL.
func (p *Provider) RenderDocument(ctx context.Context, doc *billingdomain.BillingDocument, items []billingdomain.BillingDocumentItem) (string, error) {
	document, err := buildDocument(doc, items)
	if err != nil {
		return "", fmt.Errorf("render document %s: %w", doc.Folio, err)
	}

	filename := fmt.Sprintf("%s.pdf", doc.Folio)
	path := filepath.Join(p.outputDir, filename)
	if err := document.Save(path); err != nil {
		return "", fmt.Errorf("save document %s: %w", doc.Folio, err)
	}

	p.log.Debug("document rendered",
		zap.String("folio", doc.Folio),
		zap.String("path", path),
	)

	if p.baseURL == "" {
		return "file://" + path, nil
	}
	return p.baseURL + "/" + filename, nil
}

var _ billingdomain.DocumentRenderer = (*Provider)(nil)
