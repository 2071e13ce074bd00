package branch

import (
	"github.com/opticore/opticore/internal/branch/repository"
	"github.com/opticore/opticore/internal/branch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("branch.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
