package lock

import (
	"context"
	"fmt"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
)

// Locker is the lock side of the write guard, satisfied by Coordinator.
type Locker interface {
	Acquire(ctx context.Context) (acquired, renewed bool, err error)
	Release(ctx context.Context) bool
	Held() bool
}

// FreshnessTracker is the freshness side of the write guard, satisfied by Freshness.
type FreshnessTracker interface {
	Mark() error
	Changed() (bool, error)
}

// GuardConfig is the configuration of the Guard.
type GuardConfig struct {
	// Locker is optional, without it writes are not bracketed by the lock.
	Locker Locker
	// Freshness is optional, without it external changes are not detected.
	Freshness FreshnessTracker
	ReadOnly  bool
	Logger    log.Logger
}

func (c *GuardConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lock.Guard"})
	return nil
}

// Guard runs the writes of a session on the shared data file.
type Guard struct {
	cfg    GuardConfig
	logger log.Logger
}

// NewGuard returns a new write guard.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Guard{cfg: cfg, logger: cfg.Logger}, nil
}

// Mark records the current data file state as seen by this session.
func (g *Guard) Mark() {
	if g.cfg.Freshness == nil {
		return
	}
	if err := g.cfg.Freshness.Mark(); err != nil {
		g.logger.Warningf("Could not mark data file freshness: %s", err)
	}
}

// Write runs fn as a write on the data file:
//   - Read-only sessions fail with model.ErrReadOnly.
//   - The lock is acquired if this session doesn't hold it. Only a lock created
//     by this write is released afterwards, a renewed one stays with its session.
//   - External changes not seen by this session fail with model.ErrStaleData unless
//     force is set. They are checked while holding the lock.
//   - After a successful write the new data file state is marked as seen.
func (g *Guard) Write(ctx context.Context, force bool, fn func(ctx context.Context) error) error {
	if g.cfg.ReadOnly {
		return fmt.Errorf("could not write: %w", model.ErrReadOnly)
	}

	if g.cfg.Locker != nil && !g.cfg.Locker.Held() {
		acquired, renewed, err := g.cfg.Locker.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("could not acquire lock: %w", err)
		}
		if acquired && !renewed {
			defer g.cfg.Locker.Release(ctx)
		}
	}

	if g.cfg.Freshness != nil {
		changed, err := g.cfg.Freshness.Changed()
		switch {
		case err != nil:
			g.logger.Warningf("Could not check data file freshness: %s", err)
		case changed && !force:
			return fmt.Errorf("reload before saving or force the write: %w", model.ErrStaleData)
		case changed:
			g.logger.Warningf("Overwriting external changes of the data file")
		}
	}

	if err := fn(ctx); err != nil {
		return err
	}

	g.Mark()
	return nil
}
