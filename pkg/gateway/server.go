package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/version"
)

type Server struct {
	state      *State
	httpServer *http.Server
}

func NewServer(state *State) *Server {
	return &Server{
		state: state,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", state.Config.Gateway.Host, state.Config.Gateway.Port),
			Handler:           state.buildMux(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start binds the configured address and serves until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(listener)
}

func (s *Server) Serve(listener net.Listener) error {
	logger.InfoCF("gateway", "gateway starting", map[string]any{
		"addr":    listener.Addr().String(),
		"version": version.Version,
		"auth":    s.state.authToken != "",
	})

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	logger.InfoC("gateway", "gateway stopping")
	return s.httpServer.Shutdown(ctx)
}
