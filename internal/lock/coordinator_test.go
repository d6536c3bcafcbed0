package lock_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/projplan/internal/lock"
	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.Local)

func confirmer(answer bool, err error, called *int) lock.Confirmer {
	return lock.ConfirmerFunc(func(ctx context.Context, current model.LockRecord) (bool, error) {
		*called++
		return answer, err
	})
}

func TestCoordinatorAcquire(t *testing.T) {
	tests := map[string]struct {
		existing       *model.LockRecord
		readOnly       bool
		promptTakeover bool
		confirm        bool
		confirmErr     error
		expAcquired    bool
		expRenewed     bool
		expErr         error
		expConfirms    int
		expOwner       string
	}{
		"no lock record should acquire": {
			expAcquired: true,
			expOwner:    "me@host",
		},
		"own lock should be renewed": {
			existing:    &model.LockRecord{Owner: "me@host", When: now.Add(-30 * time.Second), Session: "s1"},
			expAcquired: true,
			expRenewed:  true,
			expOwner:    "me@host",
		},
		"own lock without session should be renewed": {
			existing:    &model.LockRecord{Owner: "ME@host", When: now.Add(-30 * time.Second)},
			expAcquired: true,
			expRenewed:  true,
			expOwner:    "me@host",
		},
		"same owner on another session should be another owner": {
			existing:    &model.LockRecord{Owner: "me@host", When: now.Add(-30 * time.Second), Session: "s2"},
			expErr:      model.ErrLockHeld,
			expOwner:    "me@host",
		},
		"fresh lock of another owner should be refused": {
			existing: &model.LockRecord{Owner: "other@host", When: now.Add(-30 * time.Second)},
			expErr:   model.ErrLockHeld,
			expOwner: "other@host",
		},
		"fresh lock of another owner with confirmed takeover should acquire": {
			existing:       &model.LockRecord{Owner: "other@host", When: now.Add(-30 * time.Second)},
			promptTakeover: true,
			confirm:        true,
			expAcquired:    true,
			expConfirms:    1,
			expOwner:       "me@host",
		},
		"fresh lock of another owner with declined takeover should be refused": {
			existing:       &model.LockRecord{Owner: "other@host", When: now.Add(-30 * time.Second)},
			promptTakeover: true,
			expErr:         model.ErrLockHeld,
			expConfirms:    1,
			expOwner:       "other@host",
		},
		"stale lock of another owner should be taken over silently": {
			existing:    &model.LockRecord{Owner: "other@host", When: now.Add(-61 * time.Second)},
			expAcquired: true,
			expOwner:    "me@host",
		},
		"lock exactly at the threshold is not stale": {
			existing: &model.LockRecord{Owner: "other@host", When: now.Add(-60 * time.Second)},
			expErr:   model.ErrLockHeld,
			expOwner: "other@host",
		},
		"stale lock with prompt takeover should ask": {
			existing:       &model.LockRecord{Owner: "other@host", When: now.Add(-time.Hour)},
			promptTakeover: true,
			confirm:        true,
			expAcquired:    true,
			expConfirms:    1,
			expOwner:       "me@host",
		},
		"stale lock with declined takeover should fail": {
			existing:       &model.LockRecord{Owner: "other@host", When: now.Add(-time.Hour)},
			promptTakeover: true,
			expErr:         model.ErrTakeoverDeclined,
			expConfirms:    1,
			expOwner:       "other@host",
		},
		"confirmer errors should fail": {
			existing:       &model.LockRecord{Owner: "other@host", When: now.Add(-time.Hour)},
			promptTakeover: true,
			confirmErr:     fmt.Errorf("something"),
			expErr:         fmt.Errorf("something"),
			expConfirms:    1,
			expOwner:       "other@host",
		},
		"read-only sessions never write the lock": {
			readOnly: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo, err := lock.NewFileRepository(filepath.Join(t.TempDir(), "project_data.db"))
			require.NoError(err)
			if test.existing != nil {
				require.NoError(repo.PutLock(ctx, *test.existing))
			}

			called := 0
			c, err := lock.NewCoordinator(lock.CoordinatorConfig{
				Owner:          "me@host",
				PID:            1234,
				Session:        "s1",
				PromptTakeover: test.promptTakeover,
				ReadOnly:       test.readOnly,
				Confirmer:      confirmer(test.confirm, test.confirmErr, &called),
				Repository:     repo,
				TimeNow:        func() time.Time { return now },
				Logger:         log.Noop,
			})
			require.NoError(err)

			acquired, renewed, err := c.Acquire(ctx)
			if test.expErr != nil {
				if assert.Error(err) && test.confirmErr == nil {
					assert.ErrorIs(err, test.expErr)
				}
			} else {
				assert.NoError(err)
			}
			assert.Equal(test.expAcquired, acquired)
			assert.Equal(test.expRenewed, renewed)
			assert.Equal(test.expAcquired, c.Held())
			assert.Equal(test.expConfirms, called)

			rec, err := repo.GetLock(ctx)
			require.NoError(err)
			if test.expOwner == "" {
				assert.Nil(rec)
				return
			}
			require.NotNil(rec)
			assert.Equal(test.expOwner, rec.Owner)
			if test.expAcquired {
				assert.Equal(1234, rec.PID)
				assert.Equal("s1", rec.Session)
				assert.True(now.Equal(rec.When))
			}
		})
	}
}

func TestCoordinatorStatus(t *testing.T) {
	tests := map[string]struct {
		existing *model.LockRecord
		readOnly bool
		expState model.LockState
		expAge   time.Duration
	}{
		"missing record should be unlocked": {
			expState: model.LockStateUnlocked,
		},
		"own record should be held": {
			existing: &model.LockRecord{Owner: "me@host", When: now.Add(-10 * time.Second), Session: "s1"},
			expState: model.LockStateHeld,
			expAge:   10 * time.Second,
		},
		"fresh record of other owner should be held by other": {
			existing: &model.LockRecord{Owner: "other@host", When: now.Add(-10 * time.Second)},
			expState: model.LockStateHeldByOther,
			expAge:   10 * time.Second,
		},
		"old record of other owner should be stale": {
			existing: &model.LockRecord{Owner: "other@host", When: now.Add(-2 * time.Minute)},
			expState: model.LockStateStaleHeldByOther,
			expAge:   2 * time.Minute,
		},
		"read-only sessions report their mode": {
			readOnly: true,
			expState: model.LockStateUnlocked,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo, err := lock.NewFileRepository(filepath.Join(t.TempDir(), "project_data.db"))
			require.NoError(err)
			if test.existing != nil {
				require.NoError(repo.PutLock(ctx, *test.existing))
			}

			c, err := lock.NewCoordinator(lock.CoordinatorConfig{
				Owner:      "me@host",
				Session:    "s1",
				ReadOnly:   test.readOnly,
				Repository: repo,
				TimeNow:    func() time.Time { return now },
			})
			require.NoError(err)

			status, err := c.Status(ctx)
			require.NoError(err)
			assert.Equal(test.expState, status.State)
			assert.Equal(test.expAge, status.Age)
			assert.Equal(test.readOnly, status.ReadOnly)
		})
	}
}

func TestCoordinatorStatusWhileTakeoverPending(t *testing.T) {
	ctx := context.Background()
	repo, err := lock.NewFileRepository(filepath.Join(t.TempDir(), "project_data.db"))
	require.NoError(t, err)
	require.NoError(t, repo.PutLock(ctx, model.LockRecord{Owner: "other@host", When: now}))

	var c *lock.Coordinator
	var pendingState model.LockState
	c, err = lock.NewCoordinator(lock.CoordinatorConfig{
		Owner:          "me@host",
		PromptTakeover: true,
		Repository:     repo,
		TimeNow:        func() time.Time { return now },
		Confirmer: lock.ConfirmerFunc(func(ctx context.Context, current model.LockRecord) (bool, error) {
			st, err := c.Status(ctx)
			if err != nil {
				return false, err
			}
			pendingState = st.State
			return true, nil
		}),
	})
	require.NoError(t, err)

	ok, _, err := c.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.LockStateTakeoverPending, pendingState)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.LockStateHeld, st.State)
}

func TestCoordinatorRelease(t *testing.T) {
	tests := map[string]struct {
		existing    *model.LockRecord
		readOnly    bool
		expReleased bool
		expRemains  bool
	}{
		"own lock should be released": {
			existing:    &model.LockRecord{Owner: "me@host", When: now, Session: "s1"},
			expReleased: true,
		},
		"lock of another owner should not be released": {
			existing:   &model.LockRecord{Owner: "other@host", When: now},
			expRemains: true,
		},
		"lock of another session of the same owner should not be released": {
			existing:   &model.LockRecord{Owner: "me@host", When: now, Session: "s2"},
			expRemains: true,
		},
		"missing lock should be a no-op": {},
		"read-only sessions never touch the lock": {
			existing:   &model.LockRecord{Owner: "me@host", When: now, Session: "s1"},
			readOnly:   true,
			expRemains: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo, err := lock.NewFileRepository(filepath.Join(t.TempDir(), "project_data.db"))
			require.NoError(err)
			if test.existing != nil {
				require.NoError(repo.PutLock(ctx, *test.existing))
			}

			c, err := lock.NewCoordinator(lock.CoordinatorConfig{
				Owner:      "me@host",
				Session:    "s1",
				ReadOnly:   test.readOnly,
				Repository: repo,
			})
			require.NoError(err)

			assert.Equal(test.expReleased, c.Release(ctx))
			assert.False(c.Held())

			rec, err := repo.GetLock(ctx)
			require.NoError(err)
			assert.Equal(test.expRemains, rec != nil)
		})
	}
}

func TestCoordinatorProceedsUnlockedOnIOErrors(t *testing.T) {
	ctx := context.Background()

	// The lock file can't be created inside a missing directory.
	dataPath := filepath.Join(t.TempDir(), "missing", "project_data.db")
	c, err := lock.NewCoordinator(lock.CoordinatorConfig{DataPath: dataPath, Owner: "me@host"})
	require.NoError(t, err)

	ok, _, err := c.Acquire(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.Held())

	assert.False(t, c.Release(ctx))
	_, err = os.Stat(dataPath + lock.LockFileSuffix)
	assert.True(t, os.IsNotExist(err))
}

// racingRepository lets another session write its record right before this
// session writes its own one (create) or right after it (put).
type racingRepository struct {
	*lock.FileRepository
	other model.LockRecord
}

func (r racingRepository) CreateLock(ctx context.Context, rec model.LockRecord) error {
	if err := r.FileRepository.CreateLock(ctx, r.other); err != nil {
		return err
	}
	return r.FileRepository.CreateLock(ctx, rec)
}

func (r racingRepository) PutLock(ctx context.Context, rec model.LockRecord) error {
	if err := r.FileRepository.PutLock(ctx, rec); err != nil {
		return err
	}
	return r.FileRepository.PutLock(ctx, r.other)
}

func TestCoordinatorAcquireRaces(t *testing.T) {
	tests := map[string]struct {
		existing *model.LockRecord
	}{
		"a lock created by another session after seeing it free should be refused": {},
		"a stale lock taken over by another session at the same time should be refused": {
			existing: &model.LockRecord{Owner: "old@host", When: now.Add(-time.Hour)},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			fileRepo, err := lock.NewFileRepository(filepath.Join(t.TempDir(), "project_data.db"))
			require.NoError(err)
			if test.existing != nil {
				require.NoError(fileRepo.PutLock(ctx, *test.existing))
			}

			c, err := lock.NewCoordinator(lock.CoordinatorConfig{
				Owner:      "me@host",
				Session:    "s1",
				Repository: racingRepository{FileRepository: fileRepo, other: model.LockRecord{Owner: "other@host", When: now, Session: "s2"}},
				TimeNow:    func() time.Time { return now },
			})
			require.NoError(err)

			ok, _, err := c.Acquire(ctx)
			assert.ErrorIs(err, model.ErrLockHeld)
			assert.False(ok)
			assert.False(c.Held())

			rec, err := fileRepo.GetLock(ctx)
			require.NoError(err)
			require.NotNil(rec)
			assert.Equal("other@host", rec.Owner)
		})
	}
}

func TestDefaultOwner(t *testing.T) {
	assert.Contains(t, lock.DefaultOwner(), "@")
}
