package loan

import (
	"github.com/lumafi/lumafi/internal/loan/repository"
	"github.com/lumafi/lumafi/internal/loan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("loan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
