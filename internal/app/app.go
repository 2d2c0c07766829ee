package app

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hotelier-app/hotelier/internal/auth"
	"github.com/hotelier-app/hotelier/internal/scheduler"
	"github.com/hotelier-app/hotelier/internal/session"
	"github.com/hotelier-app/hotelier/internal/store"
	"github.com/hotelier-app/hotelier/internal/transport/tcp"
	"github.com/hotelier-app/hotelier/internal/transport/web/router"
	"github.com/hotelier-app/hotelier/internal/transport/web/server"
)

type Component interface {
	Run(ctx context.Context) error
}

// Setup constructs the store, the session manager, and every long-running
// component: the TCP front end, the ops HTTP server, and the two background
// schedulers. Exactly one store and one session manager exist per process,
// shared by handle with everything that needs them.
func Setup(ctx context.Context) ([]Component, error) {
	storageDir := MustGetEnvAsString(ctx, "STORAGE_DIR")

	digest := auth.BcryptDigest{}

	st, err := store.Load(storageDir, digest)
	if err != nil {
		return nil, fmt.Errorf("loading store from %q: %w", storageDir, err)
	}

	sessions := session.NewManager(st, digest)

	multicastGroup := GetEnvAsStringDefault(ctx, "MULTICAST_GROUP", "226.226.226.226")
	multicastPort := GetEnvAsIntDefault(ctx, "MULTICAST_PORT", 4444)

	return []Component{
		&tcp.Server{
			Port:           GetEnvAsIntDefault(ctx, "PORT", 4242),
			MaxSessions:    int64(GetEnvAsIntDefault(ctx, "MAX_SESSIONS", 100)),
			Catalog:        st,
			Sessions:       sessions,
			MulticastGroup: multicastGroup,
			MulticastPort:  multicastPort,
		},
		&server.Server{
			Port:   GetEnvAsIntDefault(ctx, "OPS_PORT", 9090),
			Router: router.MakeRouter(st),
		},
		&scheduler.Persistence{
			Saver:  st,
			Dir:    storageDir,
			Period: GetEnvAsDurationDefault(ctx, "PERSISTENCE_PERIOD", 10*time.Second),
		},
		&scheduler.Notifier{
			Ranker: st,
			Addr:   net.JoinHostPort(multicastGroup, strconv.Itoa(multicastPort)),
			Period: GetEnvAsDurationDefault(ctx, "RANKING_PERIOD", 10*time.Second),
		},
	}, nil
}
