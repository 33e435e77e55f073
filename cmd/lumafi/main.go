package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/cache"
	"github.com/lumafi/lumafi/internal/config"
	"github.com/lumafi/lumafi/internal/creditscore"
	"github.com/lumafi/lumafi/internal/loan"
	"github.com/lumafi/lumafi/internal/logger"
	"github.com/lumafi/lumafi/internal/migration"
	"github.com/lumafi/lumafi/internal/server"
	"github.com/lumafi/lumafi/internal/settlement"
	"github.com/lumafi/lumafi/internal/telemetry"
	"github.com/lumafi/lumafi/internal/user"
	"github.com/lumafi/lumafi/internal/wallet"
	"github.com/lumafi/lumafi/internal/webhook"
	"github.com/lumafi/lumafi/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		migration.Module,

		// Functional domains
		user.Module,
		wallet.Module,
		creditscore.Module,
		loan.Module,
		settlement.Module,
		webhook.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
