package main

import (
	"context"
	"os"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/cli"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/mesh-rooms/mesh-rooms/server/multierr"
	"github.com/spf13/pflag"
)

const gitDescribe string = "v0.0.0"

func start(ctx context.Context, log logger.Logger, args []string) error {
	err := cli.Exec(ctx, cli.Props{
		Log:     log,
		Version: gitDescribe,
		Args:    args,
	})

	return errors.Trace(err)
}

func main() {
	log := logger.New().
		WithConfig(logger.ConfigMap{
			"pion": logger.LevelWarn,
			"":     logger.LevelInfo,
		}).
		WithConfig(logger.NewConfigMapFromString(os.Getenv("MESHROOMS_LOG"))).
		WithNamespaceAppended("main")

	err := start(context.Background(), log, os.Args[1:])

	if multierr.Is(err, pflag.ErrHelp) {
		os.Exit(1)
	} else if err != nil {
		log.Error("Command error", errors.Trace(err), nil)
		os.Exit(1)
	}
}
