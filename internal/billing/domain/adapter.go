package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Adapter decouples order completion from the backend that produces the
// billing paperwork. Callers invoke EmitDocument once per completed order;
// the adapter does not deduplicate.
type Adapter interface {
	// EmitDocument generates a folio, persists the document ledger entry
	// and returns the consumer-facing result. Folio generation failure is
	// fatal; line-item persistence is best-effort.
	EmitDocument(ctx context.Context, order Order) (*Result, error)

	// GetDocumentStatus looks up a document by branch and folio. Missing
	// folios return ErrDocumentNotFound.
	GetDocumentStatus(ctx context.Context, branchID snowflake.ID, folio string) (DocumentStatus, error)

	// CancelDocument flips the document's status marker. Cancelling a
	// missing folio reports false without an error.
	CancelDocument(ctx context.Context, branchID snowflake.ID, folio, reason string) (bool, error)
}

// DocumentRenderer produces a fetchable representation of a document and
// returns its URL. Rendering failures never block emission.
type DocumentRenderer interface {
	RenderDocument(ctx context.Context, doc *BillingDocument, items []BillingDocumentItem) (string, error)
}
