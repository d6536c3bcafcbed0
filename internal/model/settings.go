package model

import (
	"fmt"
	"time"
)

const (
	// DefaultLockStaleAfter is the age after which a lock record is considered stale.
	DefaultLockStaleAfter = 60 * time.Second
	// DefaultPollInterval is the interval used to check the data file freshness.
	DefaultPollInterval = 5 * time.Second
)

// LockSettings are the shared file coordination settings.
type LockSettings struct {
	StaleAfter     time.Duration
	PromptTakeover bool
	PollInterval   time.Duration
}

// Settings are the user settings of the application.
type Settings struct {
	Lock     LockSettings
	Holidays HolidayCalendar
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Lock: LockSettings{
			StaleAfter:   DefaultLockStaleAfter,
			PollInterval: DefaultPollInterval,
		},
		Holidays: NewHolidayCalendar(nil),
	}
}

// Validate validates the settings.
func (s Settings) Validate() error {
	if s.Lock.StaleAfter <= 0 {
		return fmt.Errorf("lock stale threshold must be positive: %w", ErrNotValid)
	}

	if s.Lock.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive: %w", ErrNotValid)
	}

	return nil
}
