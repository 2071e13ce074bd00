package pdf

import (
	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(
		fx.Annotate(New, fx.As(new(billingdomain.DocumentRenderer))),
	),
)
