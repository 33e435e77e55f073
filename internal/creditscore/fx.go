package creditscore

import (
	"github.com/lumafi/lumafi/internal/creditscore/repository"
	"github.com/lumafi/lumafi/internal/creditscore/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditscore.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
