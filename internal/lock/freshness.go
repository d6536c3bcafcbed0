package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/slok/projplan/internal/log"
)

// walSuffix is the SQLite write ahead log sidecar, committed writes may only touch it.
const walSuffix = "-wal"

// Freshness detects external changes on the data file by polling its modification time.
type Freshness struct {
	path   string
	logger log.Logger

	mu   sync.Mutex
	last time.Time
}

// NewFreshness returns a freshness checker of the data file.
func NewFreshness(dataPath string, logger log.Logger) *Freshness {
	if logger == nil {
		logger = log.Noop
	}

	return &Freshness{
		path:   dataPath,
		logger: logger.WithValues(log.Kv{"svc": "lock.Freshness"}),
	}
}

// Mark caches the current modification time, it must be called after every
// successful read or write of this session.
func (f *Freshness) Mark() error {
	mt, err := f.modTime()
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.last = mt
	f.mu.Unlock()

	return nil
}

// Changed returns true if the data file was modified since the last mark.
func (f *Freshness) Changed() (bool, error) {
	mt, err := f.modTime()
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return !mt.Equal(f.last), nil
}

// Watch polls the data file every interval until the context ends. When a change
// is detected onChange is called and the new state is marked as seen.
func (f *Freshness) Watch(ctx context.Context, interval time.Duration, onChange func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		changed, err := f.Changed()
		if err != nil {
			f.logger.Warningf("Could not check data file freshness: %s", err)
			continue
		}
		if !changed {
			continue
		}

		f.logger.Debugf("Data file changed externally")
		if err := onChange(ctx); err != nil {
			f.logger.Errorf("Could not handle data file change: %s", err)
		}

		if err := f.Mark(); err != nil {
			f.logger.Warningf("Could not mark data file freshness: %s", err)
		}
	}
}

// modTime returns the newest modification time of the data file and its WAL
// sidecar. A missing file has a zero modification time.
func (f *Freshness) modTime() (time.Time, error) {
	var newest time.Time
	for _, p := range []string{f.path, f.path + walSuffix} {
		st, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return time.Time{}, fmt.Errorf("could not stat %s: %w", p, err)
		}

		if st.ModTime().After(newest) {
			newest = st.ModTime()
		}
	}

	return newest, nil
}
