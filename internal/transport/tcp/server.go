// Package tcp implements the line-oriented protocol front end: an accept
// loop with fail-fast admission control, and a per-connection command
// handler that drives the session manager and the store.
package tcp

import (
	"context"
	"fmt"
	"net"

	"github.com/hotelier-app/hotelier/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

var connectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hotelier_connections_total",
		Help: "Count of accepted client connections per admission outcome.",
	},
	[]string{"outcome"},
)

// Server accepts client connections and serves one command loop per
// connection. Admission is bounded by MaxSessions with no queueing: when all
// slots are taken a new connection is closed immediately, trading rejection
// for bounded per-connection latency under load.
type Server struct {
	Port           int
	MaxSessions    int64
	Catalog        Catalog
	Sessions       Sessions
	MulticastGroup string
	MulticastPort  int
}

func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.Port, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	logger := domain.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "server listening", "port", s.Port)

	sem := semaphore.NewWeighted(s.MaxSessions)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		if !sem.TryAcquire(1) {
			// Saturated; reject rather than queue.
			conn.Close()
			connectionsTotal.WithLabelValues("rejected").Inc()
			continue
		}
		connectionsTotal.WithLabelValues("accepted").Inc()

		go func() {
			defer sem.Release(1)
			h := &handler{
				catalog:        s.Catalog,
				sessions:       s.Sessions,
				multicastGroup: s.MulticastGroup,
				multicastPort:  s.MulticastPort,
			}
			h.serve(ctx, conn)
		}()
	}
}
