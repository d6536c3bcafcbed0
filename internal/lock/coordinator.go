// Package lock has the advisory coordination protocol between the sessions that
// share the same data file: a lease like lock record and file freshness polling.
//
// The lock is cooperative, the storage layer doesn't enforce it. Lock file I/O
// failures never fail an operation, the session proceeds unlocked.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
)

// Confirmer asks the user to confirm a lock takeover.
type Confirmer interface {
	ConfirmTakeover(ctx context.Context, current model.LockRecord) (bool, error)
}

// ConfirmerFunc is a helper to use functions as Confirmer.
type ConfirmerFunc func(ctx context.Context, current model.LockRecord) (bool, error)

// ConfirmTakeover satisfies Confirmer interface.
func (f ConfirmerFunc) ConfirmTakeover(ctx context.Context, current model.LockRecord) (bool, error) {
	return f(ctx, current)
}

// CoordinatorConfig is the configuration of the Coordinator.
type CoordinatorConfig struct {
	// DataPath is the shared data file, only required when Repository is missing.
	DataPath string
	// Owner identifies the user, defaults to user@host.
	Owner string
	PID   int
	// Session identifies this process among the ones of the same owner.
	Session        string
	StaleAfter     time.Duration
	PromptTakeover bool
	ReadOnly       bool
	Confirmer      Confirmer
	Repository     Repository
	TimeNow        func() time.Time
	Logger         log.Logger
}

func (c *CoordinatorConfig) defaults() error {
	if c.Repository == nil {
		if c.DataPath == "" {
			return fmt.Errorf("data path is required")
		}
		repo, err := NewFileRepository(c.DataPath)
		if err != nil {
			return fmt.Errorf("could not create lock file repository: %w", err)
		}
		c.Repository = repo
	}

	if c.Owner == "" {
		c.Owner = DefaultOwner()
	}

	if c.PID == 0 {
		c.PID = os.Getpid()
	}

	if c.Session == "" {
		c.Session = ulid.Make().String()
	}

	if c.StaleAfter == 0 {
		c.StaleAfter = model.DefaultLockStaleAfter
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("stale threshold can't be negative")
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lock.Coordinator"})

	return nil
}

// DefaultOwner returns the user@host identity of the current process.
func DefaultOwner() string {
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}

	return username + "@" + hostname
}

// Coordinator runs the lock state machine of a single session.
type Coordinator struct {
	cfg    CoordinatorConfig
	repo   Repository
	logger log.Logger

	mu      sync.Mutex
	held    bool
	pending bool
}

// NewCoordinator returns a new Coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Coordinator{
		cfg:    cfg,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Owner returns the session owner.
func (c *Coordinator) Owner() string { return c.cfg.Owner }

// Session returns the session identifier.
func (c *Coordinator) Session() string { return c.cfg.Session }

// ReadOnly returns true when the session never writes.
func (c *Coordinator) ReadOnly() bool { return c.cfg.ReadOnly }

// Held returns true if the last acquire of this session succeeded and it has not been released.
func (c *Coordinator) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// Status returns the lock status as observed by this session.
func (c *Coordinator) Status(ctx context.Context) (model.LockStatus, error) {
	status := model.LockStatus{State: model.LockStateUnlocked, ReadOnly: c.cfg.ReadOnly}

	rec, err := c.repo.GetLock(ctx)
	if err != nil {
		return status, fmt.Errorf("could not get lock record: %w", err)
	}
	if rec == nil {
		return status, nil
	}

	now := c.cfg.TimeNow()
	status.Record = rec
	status.Age = rec.Age(now)

	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	switch {
	case c.isOwn(*rec):
		status.State = model.LockStateHeld
	case pending:
		status.State = model.LockStateTakeoverPending
	case rec.IsStale(now, c.cfg.StaleAfter):
		status.State = model.LockStateStaleHeldByOther
	default:
		status.State = model.LockStateHeldByOther
	}

	return status, nil
}

// Acquire tries to take the lock for this session. It returns false without error
// when the session proceeds unlocked, this happens on read-only sessions and when
// the lock file can't be accessed. renewed is true when the record already
// belonged to this session.
func (c *Coordinator) Acquire(ctx context.Context) (acquired, renewed bool, err error) {
	if c.cfg.ReadOnly {
		c.logger.Debugf("Read-only session, lock not acquired")
		return false, false, nil
	}

	rec, err := c.repo.GetLock(ctx)
	if err != nil {
		c.logger.Warningf("Could not read lock record, proceeding without lock: %s", err)
		return false, false, nil
	}

	now := c.cfg.TimeNow()
	own := model.LockRecord{
		Owner:   c.cfg.Owner,
		When:    now,
		PID:     c.cfg.PID,
		Session: c.cfg.Session,
	}

	switch {
	case rec == nil:
		return c.create(ctx, own)
	case c.isOwn(*rec):
		c.logger.Debugf("Renewing own lock")
		renewed = true
	case rec.IsStale(now, c.cfg.StaleAfter):
		if c.cfg.PromptTakeover {
			ok, err := c.confirmTakeover(ctx, *rec)
			if err != nil {
				return false, false, err
			}
			if !ok {
				return false, false, fmt.Errorf("stale lock of %s: %w", rec.Owner, model.ErrTakeoverDeclined)
			}
		}
		c.logger.Infof("Taking over stale lock of %s (age %s)", rec.Owner, rec.Age(now).Truncate(time.Second))
	default:
		if !c.cfg.PromptTakeover {
			return false, false, fmt.Errorf("lock owned by %s since %s: %w", rec.Owner, rec.When.Format(RecordTimeFormat), model.ErrLockHeld)
		}

		ok, err := c.confirmTakeover(ctx, *rec)
		if err != nil {
			return false, false, err
		}
		if !ok {
			return false, false, fmt.Errorf("lock owned by %s since %s: %w", rec.Owner, rec.When.Format(RecordTimeFormat), model.ErrLockHeld)
		}
		c.logger.Warningf("Taking over active lock of %s", rec.Owner)
	}

	if err := c.repo.PutLock(ctx, own); err != nil {
		c.logger.Warningf("Could not write lock record, proceeding without lock: %s", err)
		return false, false, nil
	}

	// Another session replacing the record at the same time wins if its write landed last.
	cur, err := c.repo.GetLock(ctx)
	switch {
	case err != nil:
		c.logger.Warningf("Could not read back lock record: %s", err)
	case cur == nil:
		c.logger.Warningf("Lock record removed by another session, proceeding without lock")
		return false, false, nil
	case !c.isOwn(*cur):
		return false, false, fmt.Errorf("lock taken by %s: %w", cur.Owner, model.ErrLockHeld)
	}

	c.setHeld(true)
	c.logger.Debugf("Lock acquired by %s", c.cfg.Owner)
	return true, renewed, nil
}

// create writes the first lock record, failing if another session created one
// after this session saw the lock free.
func (c *Coordinator) create(ctx context.Context, own model.LockRecord) (bool, bool, error) {
	err := c.repo.CreateLock(ctx, own)
	switch {
	case errors.Is(err, model.ErrAlreadyExists):
		owner := "another session"
		if cur, gerr := c.repo.GetLock(ctx); gerr == nil && cur != nil {
			owner = cur.Owner
		}
		return false, false, fmt.Errorf("lock taken by %s: %w", owner, model.ErrLockHeld)
	case err != nil:
		c.logger.Warningf("Could not write lock record, proceeding without lock: %s", err)
		return false, false, nil
	}

	c.setHeld(true)
	c.logger.Debugf("Lock acquired by %s", c.cfg.Owner)
	return true, false, nil
}

func (c *Coordinator) setHeld(held bool) {
	c.mu.Lock()
	c.held = held
	c.mu.Unlock()
}

// Release deletes the lock record if it belongs to this session. It is best effort
// and returns true only when the record was removed.
func (c *Coordinator) Release(ctx context.Context) bool {
	if c.cfg.ReadOnly {
		return false
	}

	c.setHeld(false)

	rec, err := c.repo.GetLock(ctx)
	if err != nil {
		c.logger.Warningf("Could not read lock record on release: %s", err)
		return false
	}
	if rec == nil {
		return false
	}

	if !c.isOwn(*rec) {
		c.logger.Warningf("Lock belongs to %s, not releasing it", rec.Owner)
		return false
	}

	if err := c.repo.DeleteLock(ctx); err != nil {
		c.logger.Warningf("Could not delete lock record: %s", err)
		return false
	}

	c.logger.Debugf("Lock released by %s", c.cfg.Owner)
	return true
}

func (c *Coordinator) confirmTakeover(ctx context.Context, rec model.LockRecord) (bool, error) {
	if c.cfg.Confirmer == nil {
		return false, nil
	}

	c.mu.Lock()
	c.pending = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	ok, err := c.cfg.Confirmer.ConfirmTakeover(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("could not confirm lock takeover: %w", err)
	}
	return ok, nil
}

// isOwn returns true when the record was written by this owner and, if the record
// has a session, by this same session.
func (c *Coordinator) isOwn(rec model.LockRecord) bool {
	if !rec.IsOwnedBy(c.cfg.Owner) {
		return false
	}
	return rec.Session == "" || rec.Session == c.cfg.Session
}
