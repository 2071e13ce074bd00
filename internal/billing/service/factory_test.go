package service

import (
	"testing"

	"github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAdapterDefaultsToInternal(t *testing.T) {
	internal := &InternalAdapter{}

	adapter, err := NewAdapter(config.Config{
		Billing: config.BillingConfig{Mode: config.BillingModeInternal},
	}, internal, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, internal, adapter)
}

func TestNewAdapterFiscalWithCredentialsFails(t *testing.T) {
	_, err := NewAdapter(config.Config{
		Billing: config.BillingConfig{
			Mode:           config.BillingModeFiscal,
			FiscalEndpoint: "https://api.sii.example",
			FiscalAPIKey:   "key",
		},
	}, &InternalAdapter{}, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrFiscalNotImplemented)
}

func TestNewAdapterFiscalWithoutCredentialsFallsBack(t *testing.T) {
	internal := &InternalAdapter{}

	adapter, err := NewAdapter(config.Config{
		Billing: config.BillingConfig{Mode: config.BillingModeFiscal},
	}, internal, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, internal, adapter)
}
