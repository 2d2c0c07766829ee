// Package scheduler contains the two periodic background components: the
// snapshot persister and the ranking notification publisher. Both run on
// their own fixed-rate loop, decoupled from the connection pool, and a
// failing cycle only logs; it never stops the loop or affects the other
// component.
package scheduler

import (
	"context"
	"time"

	"github.com/hotelier-app/hotelier/internal/domain"
)

// Saver is the slice of the store the persistence scheduler drives: write
// out whatever is dirty, re-arming flags on failure.
type Saver interface {
	SaveDirty(dir string) error
}

// Persistence periodically snapshots dirty collections to the storage
// directory.
type Persistence struct {
	Saver  Saver
	Dir    string
	Period time.Duration
}

func (p *Persistence) Run(ctx context.Context) error {
	logger := domain.LoggerFromContext(ctx)

	ticker := time.NewTicker(p.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last flush so mutations from the final period are not
			// lost on an orderly shutdown.
			if err := p.Saver.SaveDirty(p.Dir); err != nil {
				logger.ErrorContext(ctx, "final snapshot flush failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if err := p.Saver.SaveDirty(p.Dir); err != nil {
				logger.ErrorContext(ctx, "snapshot cycle failed", "error", err)
				continue
			}
			logger.DebugContext(ctx, "snapshot cycle complete")
		}
	}
}
