package customer

import (
	"github.com/opticore/opticore/internal/customer/repository"
	"github.com/opticore/opticore/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
