package billing

import (
	"github.com/opticore/opticore/internal/billing/repository"
	"github.com/opticore/opticore/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewInternalAdapter),
	fx.Provide(service.NewAdapter),
)
