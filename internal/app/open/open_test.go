package open_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/projplan/internal/app/open"
	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/storage/storagemock"
)

type countMarker struct{ marks int }

func (c *countMarker) Mark() { c.marks++ }

func date(s string) *time.Time { return model.ParseDate(s) }

func intp(i int) *int { return &i }

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config open.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: open.ServiceConfig{
				Repository: &storagemock.MockRepository{},
				Logger:     log.Noop,
			},
		},
		"missing repository should fail": {
			config: open.ServiceConfig{Logger: log.Noop},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := open.NewService(test.config)
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
	tests := map[string]struct {
		mock      func(m *storagemock.MockRepository)
		expResult func(t *testing.T, res *open.Result)
		expErr    bool
		expMarks  int
	}{
		"loading should compute the derived fields": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListTasks", mock.Anything).Once().Return([]model.Task{
					{Name: "p", Status: model.TaskStatusPlanned},
					{Name: "a", Parent: "p", StartDate: date("2024-01-01"), DurationDays: intp(2), Status: model.TaskStatusPlanned},
					{Name: "b", Parent: "p", StartDate: date("2024-01-03"), DurationDays: intp(3), Status: model.TaskStatusPlanned,
						BaselineStartDate: date("2023-12-01"), BaselineEndDate: date("2023-12-05")},
				}, nil)
			},
			expResult: func(t *testing.T, res *open.Result) {
				require.Equal(t, 3, res.Store.Len())
				assert.Equal(t, 1, res.CapturedBaselines)

				a, _ := res.Store.Get("a")
				assert.Equal(t, date("2024-01-03"), a.CalculatedEndDate)
				assert.Equal(t, date("2024-01-01"), a.BaselineStartDate)
				assert.Equal(t, date("2024-01-03"), a.BaselineEndDate)

				b, _ := res.Store.Get("b")
				assert.Equal(t, date("2023-12-01"), b.BaselineStartDate)

				p, _ := res.Store.Get("p")
				assert.Equal(t, date("2024-01-01"), p.AutoStart)
				assert.Equal(t, date("2024-01-08"), p.AutoEnd)
			},
			expMarks: 1,
		},
		"invalid stored rows should be skipped": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListTasks", mock.Anything).Once().Return([]model.Task{
					{Name: "a"},
					{Name: ""},
					{Name: "a"},
				}, nil)
			},
			expResult: func(t *testing.T, res *open.Result) {
				assert.Equal(t, 1, res.Store.Len())
				assert.Equal(t, 2, res.Skipped)
			},
			expMarks: 1,
		},
		"repository errors should fail": {
			mock: func(m *storagemock.MockRepository) {
				m.On("ListTasks", mock.Anything).Once().Return(nil, fmt.Errorf("something"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := &storagemock.MockRepository{}
			test.mock(m)
			marker := &countMarker{}

			svc, err := open.NewService(open.ServiceConfig{
				Repository: m,
				Marker:     marker,
				Logger:     log.Noop,
			})
			require.NoError(t, err)

			res, err := svc.Run(context.Background(), open.Request{})
			if test.expErr {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				test.expResult(t, res)
			}
			assert.Equal(t, test.expMarks, marker.marks)

			m.AssertExpectations(t)
		})
	}
}
