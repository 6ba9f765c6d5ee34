package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/workrate/internal/migration"
	"github.com/smallbiznis/workrate/internal/observability"
	"github.com/smallbiznis/workrate/internal/server"
	"github.com/smallbiznis/workrate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure. server.Module pulls in config, clock and
		// the domain modules.
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
