package save_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/projplan/internal/app/save"
	"github.com/slok/projplan/internal/lock"
	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/storage/storagemock"
)

func date(s string) *time.Time { return model.ParseDate(s) }

func intp(i int) *int { return &i }

func TestNewService(t *testing.T) {
	guard, err := lock.NewGuard(lock.GuardConfig{})
	require.NoError(t, err)

	tests := map[string]struct {
		config save.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: save.ServiceConfig{Repository: &storagemock.MockRepository{}, Guard: guard},
		},
		"missing repository should fail": {
			config: save.ServiceConfig{Guard: guard},
			expErr: true,
		},
		"missing guard should fail": {
			config: save.ServiceConfig{Repository: &storagemock.MockRepository{}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := save.NewService(test.config)
			if test.expErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	newStore := func() *plan.Store {
		s, err := plan.NewStore([]model.Task{
			{Name: "p", Status: model.TaskStatusPlanned},
			{Name: "a", Parent: "p", StartDate: date("2024-01-01"), DurationDays: intp(4), PercentComplete: 50, Status: model.TaskStatusInProgress},
			{Name: "b", Parent: "p", StartDate: date("2024-01-01"), DurationDays: intp(6), PercentComplete: 100, Status: model.TaskStatusDone},
		})
		if err != nil {
			panic(err)
		}
		return s
	}

	tests := map[string]struct {
		readOnly bool
		mock     func(m *storagemock.MockRepository)
		expErr   error
	}{
		"saving should store the recomputed plan": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ReplaceTasks", mock.Anything, mock.MatchedBy(func(tasks []model.Task) bool {
					if len(tasks) != 3 {
						return false
					}
					p, a := tasks[0], tasks[1]
					return p.PercentComplete == 80 &&
						p.Status == model.TaskStatusInProgress &&
						p.AutoStart != nil && p.AutoStart.Equal(*date("2024-01-01")) &&
						a.CalculatedEndDate != nil && a.CalculatedEndDate.Equal(*date("2024-01-05"))
				})).Once().Return(nil)
			},
		},
		"read-only sessions should not save": {
			readOnly: true,
			mock:     func(m *storagemock.MockRepository) {},
			expErr:   model.ErrReadOnly,
		},
		"repository errors should fail": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ReplaceTasks", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("something"))
			},
			expErr: fmt.Errorf("something"),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := &storagemock.MockRepository{}
			test.mock(m)

			guard, err := lock.NewGuard(lock.GuardConfig{ReadOnly: test.readOnly})
			require.NoError(t, err)

			svc, err := save.NewService(save.ServiceConfig{
				Repository: m,
				Guard:      guard,
				Logger:     log.Noop,
			})
			require.NoError(t, err)

			err = svc.Run(context.Background(), save.Request{Store: newStore()})
			switch {
			case test.expErr == nil:
				assert.NoError(t, err)
			case test.expErr == model.ErrReadOnly:
				assert.ErrorIs(t, err, model.ErrReadOnly)
			default:
				assert.Error(t, err)
			}

			m.AssertExpectations(t)
		})
	}
}
