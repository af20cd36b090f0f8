package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/docflow/internal/clock"
	"github.com/smallbiznis/docflow/internal/config"
	"github.com/smallbiznis/docflow/internal/document"
	"github.com/smallbiznis/docflow/internal/migration"
	"github.com/smallbiznis/docflow/internal/numbering"
	"github.com/smallbiznis/docflow/internal/observability"
	"github.com/smallbiznis/docflow/internal/party"
	"github.com/smallbiznis/docflow/internal/payment"
	"github.com/smallbiznis/docflow/internal/scheduler"
	"github.com/smallbiznis/docflow/internal/server"
	"github.com/smallbiznis/docflow/internal/tax"
	"github.com/smallbiznis/docflow/internal/totals"
	"github.com/smallbiznis/docflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Functional Domains
		tax.Module,
		totals.Module,
		numbering.Module,
		party.Module,
		payment.Module,
		document.Module,
		scheduler.Module,

		server.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
