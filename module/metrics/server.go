package metrics

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the registered prometheus collectors over HTTP on /metrics.
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a metrics server listening on the given port. When
// profiling is enabled the standard pprof handlers are mounted as well.
func NewServer(log zerolog.Logger, port uint, profiling bool) *Server {
	addr := ":" + strconv.FormatUint(uint64(port), 10)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if profiling {
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
	}

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		log:    log.With().Str("component", "metrics_server").Logger(),
	}
}

// Ready starts the server and returns a channel that closes once it is
// accepting connections.
func (s *Server) Ready() <-chan struct{} {
	ready := make(chan struct{})
	go func() {
		s.log.Info().Str("address", s.server.Addr).Msg("metrics server started")
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Err(err).Msg("metrics server failed")
		}
	}()
	go func() {
		close(ready)
	}()
	return ready
}

// Done shuts the server down and returns a channel that closes once all
// in-flight requests have drained or the shutdown timeout expires.
func (s *Server) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("metrics server shutdown interrupted")
		}
		close(done)
	}()
	return done
}
