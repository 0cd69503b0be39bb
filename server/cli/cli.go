// Package cli wires the configuration, signaling actors and HTTP mux into
// runnable commands.
package cli

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
)

type Props struct {
	Log     logger.Logger
	Version string
	Args    []string
}

// Exec dispatches to a subcommand. Running without one, or with flags only,
// starts the server.
func Exec(ctx context.Context, props Props) error {
	name := "server"
	args := props.Args

	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		name = args[0]
		args = args[1:]
	}

	switch name {
	case "server":
		return errors.Trace(execServer(ctx, props, args))
	case "version":
		fmt.Println("mesh-rooms", props.Version)

		return nil
	default:
		return errors.Errorf("unknown command: %q", name)
	}
}
