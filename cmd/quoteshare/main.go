package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/chat"
	"github.com/smallbiznis/quoteshare/internal/clock"
	"github.com/smallbiznis/quoteshare/internal/config"
	"github.com/smallbiznis/quoteshare/internal/job"
	"github.com/smallbiznis/quoteshare/internal/migration"
	"github.com/smallbiznis/quoteshare/internal/observability"
	"github.com/smallbiznis/quoteshare/internal/offer"
	"github.com/smallbiznis/quoteshare/internal/productline"
	"github.com/smallbiznis/quoteshare/internal/server"
	"github.com/smallbiznis/quoteshare/internal/sharelink"
	"github.com/smallbiznis/quoteshare/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		productline.Module,
		migration.Module,

		// Domains
		job.Module,
		offer.Module,
		sharelink.Module,
		chat.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}
