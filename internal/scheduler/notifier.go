package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/hotelier-app/hotelier/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rankingBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hotelier_ranking_broadcasts_total",
	Help: "Count of ranking change notifications broadcast to the multicast group.",
})

// Ranker is the slice of the store the notifier drives: one full ranking
// pass, returning the cities whose leader changed.
type Ranker interface {
	RecomputeRankings(now time.Time) map[string]domain.Hotel
}

// Notifier periodically recomputes rankings and broadcasts leadership
// changes as a single UDP datagram to the multicast group. Delivery is
// best-effort, at-most-once per change per cycle; there is no retry and no
// coalescing across cycles.
type Notifier struct {
	Ranker Ranker
	Addr   string // multicast group:port
	Period time.Duration
}

func (n *Notifier) Run(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", n.Addr)
	if err != nil {
		return fmt.Errorf("resolving notification address %q: %w", n.Addr, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("opening notification socket: %w", err)
	}
	defer conn.Close()

	logger := domain.LoggerFromContext(ctx)

	ticker := time.NewTicker(n.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed := n.Ranker.RecomputeRankings(time.Now())
			if len(changed) == 0 {
				continue
			}

			if err := n.broadcast(conn, changed); err != nil {
				logger.ErrorContext(ctx, "ranking notification failed", "error", err)
				continue
			}
			logger.InfoContext(ctx, "ranking update broadcast", "cities", len(changed))
		}
	}
}

// broadcast serializes the change set as an ordered array of (city, leader
// name) pairs and sends it as one datagram.
func (n *Notifier) broadcast(conn *net.UDPConn, changed map[string]domain.Hotel) error {
	changes := make([]domain.LeaderChange, 0, len(changed))
	for city, hotel := range changed {
		changes = append(changes, domain.LeaderChange{City: city, Hotel: hotel.Name})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].City < changes[j].City })

	msg, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("serializing change set: %w", err)
	}

	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("sending datagram: %w", err)
	}

	rankingBroadcasts.Inc()
	return nil
}
