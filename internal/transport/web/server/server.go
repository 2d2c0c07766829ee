// Package server runs the operational HTTP listener: health, catalog
// preview, and metrics. It is a read-only side door; the client protocol
// lives in transport/tcp.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Server struct {
	Port   int
	Router http.Handler
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}
