package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server"
	"github.com/mesh-rooms/mesh-rooms/server/clock"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/spf13/pflag"
)

type serverHandler struct {
	args struct {
		config string
	}

	log    logger.Logger
	config server.Config
	mux    *server.Mux
}

func execServer(ctx context.Context, props Props, args []string) error {
	h := &serverHandler{
		log: props.Log,
	}

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.StringVarP(&h.args.config, "config", "c", "", "config file to use")

	if err := flags.Parse(args); err != nil {
		return errors.Trace(err)
	}

	if err := h.configure(props.Version); err != nil {
		return errors.Trace(err)
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(
		h.config.BindHost,
		strconv.Itoa(h.config.BindPort),
	))
	if err != nil {
		return errors.Annotate(err, "listen")
	}

	defer listener.Close()

	h.log.Info("Listen", logger.Ctx{
		"local_addr": listener.Addr(),
	})

	srv := server.NewServer(server.ServerParams{
		TLSCertFile: h.config.TLS.Cert,
		TLSKeyFile:  h.config.TLS.Key,
	}, h.mux)

	return errors.Trace(srv.Start(ctx, listener))
}

func (h *serverHandler) configure(version string) (err error) {
	log := h.log

	configFiles := []string{}
	if h.args.config != "" {
		configFiles = append(configFiles, h.args.config)
	}

	h.config, err = server.ReadConfig(configFiles)
	if err != nil {
		return errors.Annotate(err, "read config")
	}

	c := h.config

	log.Info(fmt.Sprintf("Using config: %+v", c), nil)

	clk := clock.New()

	index := server.NewRoomIndex(log, c.Store, clk)

	rooms := server.NewRoomManager(func(roomID identifiers.RoomID) *server.Room {
		return server.NewRoom(log, roomID, index)
	})

	lobbies := server.NewLobbyManager(server.LobbyManagerParams{
		Log:           log,
		Clock:         clk,
		InitialDelay:  time.Duration(c.Lobby.InitialDelayMs) * time.Millisecond,
		RetryInterval: time.Duration(c.Lobby.RetryIntervalMs) * time.Millisecond,
	})

	h.mux = server.NewMux(log, version, c, rooms, lobbies, index)

	return nil
}
