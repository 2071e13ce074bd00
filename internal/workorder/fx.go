package workorder

import (
	"github.com/opticore/opticore/internal/workorder/repository"
	"github.com/opticore/opticore/internal/workorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
