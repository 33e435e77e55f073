package user

import (
	"github.com/lumafi/lumafi/internal/user/repository"
	"github.com/lumafi/lumafi/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
