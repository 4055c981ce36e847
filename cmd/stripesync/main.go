package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stripesync/internal/clock"
	"github.com/smallbiznis/stripesync/internal/config"
	"github.com/smallbiznis/stripesync/internal/customer"
	"github.com/smallbiznis/stripesync/internal/migration"
	"github.com/smallbiznis/stripesync/internal/observability"
	"github.com/smallbiznis/stripesync/internal/price"
	"github.com/smallbiznis/stripesync/internal/product"
	"github.com/smallbiznis/stripesync/internal/projection"
	"github.com/smallbiznis/stripesync/internal/server"
	"github.com/smallbiznis/stripesync/internal/subscription"
	"github.com/smallbiznis/stripesync/internal/webhook"
	"github.com/smallbiznis/stripesync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Projection targets
		customer.Module,
		product.Module,
		price.Module,
		subscription.Module,
		projection.Module,

		webhook.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
