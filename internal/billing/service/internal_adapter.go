package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/clock"
	"github.com/opticore/opticore/internal/observability/logger"
	"github.com/opticore/opticore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InternalAdapterParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Renderer domain.DocumentRenderer `optional:"true"`
	Metrics  *metrics.Metrics        `optional:"true"`
}

// InternalAdapter is the shadow billing backend: it produces internal
// documents with branch-scoped folios, never talks to a fiscal authority.
type InternalAdapter struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	renderer domain.DocumentRenderer
	metrics  *metrics.Metrics
}

func NewInternalAdapter(p InternalAdapterParams) *InternalAdapter {
	return &InternalAdapter{
		db:       p.DB,
		log:      p.Log.Named("billing.internal"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		renderer: p.Renderer,
		metrics:  p.Metrics,
	}
}

func (a *InternalAdapter) EmitDocument(ctx context.Context, order domain.Order) (*domain.Result, error) {
	if order.BranchID == 0 {
		return nil, fmt.Errorf("order %s has no branch", order.Number)
	}

	docType := domain.DocumentTypeFromInvoiceType(order.SIIInvoiceType)

	seq, err := a.repo.NextFolio(ctx, a.db, order.BranchID, docType)
	if err != nil {
		a.log.Warn("atomic folio increment failed, using fallback",
			zap.String("order_number", order.Number),
			zap.Error(err),
		)
		seq, err = a.repo.NextFolioFallback(ctx, a.db, order.BranchID, docType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFolioGeneration, err)
		}
	}

	now := a.clock.Now()
	doc := &domain.BillingDocument{
		ID:             a.genID.Generate(),
		BranchID:       order.BranchID,
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		DocumentType:   docType,
		SequenceNumber: seq,
		Folio:          domain.FormatFolio(docType, seq),
		Status:         domain.StatusAccepted,
		CustomerName:   order.CustomerName,
		CustomerTaxID:  order.CustomerTaxID,
		Subtotal:       order.Subtotal,
		TaxAmount:      order.TaxAmount,
		Total:          order.Total,
		Currency:       order.Currency,
		IssuedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	items := make([]domain.BillingDocumentItem, 0, len(order.Items))
	for _, line := range order.Items {
		category := line.Category
		if !domain.ValidCategory(category) {
			category = domain.CategoryOther
		}
		items = append(items, domain.BillingDocumentItem{
			ID:          a.genID.Generate(),
			DocumentID:  doc.ID,
			ProductID:   line.ProductID,
			Description: line.Description,
			Category:    category,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total,
			CreatedAt:   now,
		})
	}

	if a.renderer != nil {
		url, err := a.renderer.RenderDocument(ctx, doc, items)
		if err != nil {
			a.log.Warn("document render failed",
				zap.String("folio", doc.Folio),
				zap.Error(err),
			)
		} else {
			doc.PDFURL = url
		}
	}

	if err := a.repo.InsertDocument(ctx, a.db, doc); err != nil {
		return nil, fmt.Errorf("persist billing document %s: %w", doc.Folio, err)
	}

	// Items are best-effort: a header without lines is preferable to a
	// rolled-back emission.
	if err := a.repo.InsertItems(ctx, a.db, items); err != nil {
		a.log.Error("billing items not persisted",
			zap.String("folio", doc.Folio),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
	}

	// Mirror onto the order row for backward-compatible lookups.
	if err := a.repo.StampOrder(ctx, a.db, order.ID, doc.Folio, domain.BillingTypeInternal, doc.PDFURL); err != nil {
		a.log.Error("folio not mirrored onto order",
			zap.String("folio", doc.Folio),
			zap.String("order_number", order.Number),
			zap.Error(err),
		)
	}

	a.metrics.RecordBillingDocument(ctx, string(docType))
	logger.FromContext(ctx).Info("billing document emitted",
		zap.String("folio", doc.Folio),
		zap.String("document_type", string(docType)),
		zap.String("order_number", order.Number),
	)

	return &domain.Result{
		DocumentID:   doc.ID,
		Folio:        doc.Folio,
		PDFURL:       doc.PDFURL,
		Type:         domain.BillingTypeInternal,
		DocumentType: docType,
		Status:       doc.Status,
		IssuedAt:     doc.IssuedAt,
	}, nil
}

// GetDocumentStatus always reports accepted for existing internal
// documents: shadow documents face no external validation, and a cancelled
// document still reads accepted here. Consumers needing the real marker
// read the ledger row.
func (a *InternalAdapter) GetDocumentStatus(ctx context.Context, branchID snowflake.ID, folio string) (domain.DocumentStatus, error) {
	doc, err := a.repo.FindByFolio(ctx, a.db, branchID, folio)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", domain.ErrDocumentNotFound
	}
	return domain.StatusAccepted, nil
}

func (a *InternalAdapter) CancelDocument(ctx context.Context, branchID snowflake.ID, folio, reason string) (bool, error) {
	doc, err := a.repo.FindByFolio(ctx, a.db, branchID, folio)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}

	if err := a.repo.UpdateStatus(ctx, a.db, doc.ID, domain.StatusCancelled, reason); err != nil {
		return false, err
	}

	a.log.Info("billing document cancelled",
		zap.String("folio", folio),
		zap.String("reason", reason),
	)
	return true, nil
}

var _ domain.Adapter = (*InternalAdapter)(nil)
