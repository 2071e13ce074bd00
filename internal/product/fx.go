package product

import (
	"github.com/opticore/opticore/internal/product/repository"
	"github.com/opticore/opticore/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
