package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/clock"
	"github.com/opticore/opticore/internal/config"
	"github.com/opticore/opticore/internal/migration"
	"github.com/opticore/opticore/internal/observability"
	"github.com/opticore/opticore/internal/scheduler"
	"github.com/opticore/opticore/internal/server"
	"github.com/opticore/opticore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
