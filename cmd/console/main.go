package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"campaign-console/internal/server"
	"campaign-console/pkg/config"
	"campaign-console/pkg/db"
	"campaign-console/pkg/health"
	"campaign-console/pkg/logger"
	"campaign-console/pkg/redis"
	"campaign-console/pkg/sequence"
	"campaign-console/services/campaign"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		health.Module,
		fx.Provide(provideSnowflakeNode),
		campaign.Module,
		campaign.Routes,
		campaign.Jobs,
		server.Module,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
