package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/u64view/u64view/pkg/logger"
)

// Server is a plain HTTP server with sane timeouts,
// used for local diagnostics endpoints.
type Server struct {
	http.Server

	log *logger.Logger
}

func NewServer(address string, handler func(*Server) http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	server := &Server{
		Server: http.Server{
			Addr:         address,
			IdleTimeout:  120 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
	server.Handler = handler(server)
	return server
}

func (s *Server) Run() {
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msgf("http server on %v failed", s.Addr)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error { return s.Server.Shutdown(ctx) }
