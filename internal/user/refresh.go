package user

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultRefreshInterval is the countdown length used until one is chosen.
const DefaultRefreshInterval = 10

// RefreshIntervals lists the countdown lengths a caller may pick, in seconds.
var RefreshIntervals = []int{5, 10, 20, 30, 60}

// ValidInterval reports whether seconds is one of RefreshIntervals.
func ValidInterval(seconds int) bool {
	for _, s := range RefreshIntervals {
		if s == seconds {
			return true
		}
	}
	return false
}

// RefreshPolicy is the auto-refresh countdown owned by the Orchestrator.
// RemainingSeconds stays within [1, IntervalSeconds] and wraps back to
// IntervalSeconds instead of going below one.
type RefreshPolicy struct {
	Enabled          bool `json:"enabled"`
	IntervalSeconds  int  `json:"interval_seconds"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

func (p *RefreshPolicy) reset() { p.RemainingSeconds = p.IntervalSeconds }

// Driver calls Orchestrator.Tick once per second until its context ends.
type Driver struct {
	list   *Orchestrator
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

func NewDriver(list *Orchestrator, clock clockwork.Clock, logger *zap.SugaredLogger) *Driver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{list: list, clock: clock, logger: logger}
}

// Run blocks until ctx is done. A tick that lands while the previous refresh
// is still in flight is skipped by the ticker.
func (d *Driver) Run(ctx context.Context) error {
	t := d.clock.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			if err := d.list.Tick(ctx); err != nil {
				d.logger.Warnw("auto refresh failed", "err", err)
			}
		}
	}
}
