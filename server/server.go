package server

import (
	"context"
	"net"
	"net/http"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/multierr"
)

type ServerParams struct {
	TLSCertFile string
	TLSKeyFile  string
}

type Server struct {
	server *http.Server
	params ServerParams
}

func NewServer(params ServerParams, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Handler: handler,
		},
		params: params,
	}
}

// Start serves requests on the listener until the context is done or the
// server fails. A context cancellation results in a nil error.
func (s *Server) Start(ctx context.Context, l net.Listener) error {
	serveErrCh := make(chan error, 1)

	go func() {
		defer close(serveErrCh)

		var err error

		if s.params.TLSCertFile != "" {
			err = s.server.ServeTLS(l, s.params.TLSCertFile, s.params.TLSKeyFile)
		} else {
			err = s.server.Serve(l)
		}

		serveErrCh <- errors.Annotate(err, "serve")
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErrCh:
		return errors.Trace(err)
	}

	err := errors.Trace(s.server.Close())

	if serveErr := <-serveErrCh; serveErr != nil {
		err = errors.Trace(serveErr)
	}

	if !multierr.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}

	return nil
}
