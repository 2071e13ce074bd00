package order

import (
	"github.com/opticore/opticore/internal/order/repository"
	"github.com/opticore/opticore/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
