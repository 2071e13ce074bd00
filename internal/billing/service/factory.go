package service

import (
	"strings"

	"github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/config"
	"go.uber.org/zap"
)

// NewAdapter selects the billing backend. Fiscal mode with credentials
// present is a hard startup error until the fiscal backend exists;
// everything else falls through to the internal shadow implementation.
func NewAdapter(cfg config.Config, internal *InternalAdapter, log *zap.Logger) (domain.Adapter, error) {
	if cfg.Billing.Mode == config.BillingModeFiscal && fiscalConfigured(cfg.Billing) {
		return nil, domain.ErrFiscalNotImplemented
	}

	if cfg.Billing.Mode == config.BillingModeFiscal {
		log.Warn("fiscal billing requested without credentials, using internal backend")
	}

	return internal, nil
}

func fiscalConfigured(cfg config.BillingConfig) bool {
	return strings.TrimSpace(cfg.FiscalEndpoint) != "" && strings.TrimSpace(cfg.FiscalAPIKey) != ""
}
