package wallet

import (
	"github.com/lumafi/lumafi/internal/wallet/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.repository",
	fx.Provide(repository.Provide),
)
