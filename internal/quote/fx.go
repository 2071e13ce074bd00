package quote

import (
	"github.com/opticore/opticore/internal/quote/repository"
	"github.com/opticore/opticore/internal/quote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
