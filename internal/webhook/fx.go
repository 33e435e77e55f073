package webhook

import (
	"github.com/lumafi/lumafi/internal/webhook/repository"
	"github.com/lumafi/lumafi/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
