package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server runs the command handler and serves shared files.
type Server struct {
	bind     string
	log      zerolog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer mounts h on "/" and the files directory on FilesRoute.
func NewServer(bind string, h *Handler, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/", h)
	mux.Handle(FilesRoute, http.StripPrefix(FilesRoute, http.FileServer(http.Dir(h.opts.FilesDir))))

	return &Server{
		bind: bind,
		log:  log.With().Str("component", "api-server").Logger(),
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens on the bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("api server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Info().Str("address", listener.Addr().String()).Msg("api server listening")
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
