package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/projplan/internal/model"
)

// SettingsYAMLRepository loads the user settings from YAML files.
type SettingsYAMLRepository struct {
	fs fs.FS
}

// NewSettingsYAMLRepository creates a new YAML settings repository.
func NewSettingsYAMLRepository(filesystem fs.FS) *SettingsYAMLRepository {
	return &SettingsYAMLRepository{fs: filesystem}
}

// GetSettings loads the settings from a YAML file and returns a validated domain model.
// A missing file returns the default settings.
func (r *SettingsYAMLRepository) GetSettings(ctx context.Context, path string) (model.Settings, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.DefaultSettings(), nil
		}
		return model.Settings{}, fmt.Errorf("reading settings file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Settings{}, ctx.Err()
	}

	var cfg SettingsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.Settings{}, fmt.Errorf("parsing YAML: %w", err)
	}

	settings, err := cfg.toModel()
	if err != nil {
		return model.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return model.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return settings, nil
}

// SettingsConfig represents the YAML structure of the settings file.
type SettingsConfig struct {
	Lock     LockConfig `yaml:"lock"`
	Holidays []string   `yaml:"holidays"`
}

// LockConfig represents the YAML structure of the shared file coordination settings.
type LockConfig struct {
	StaleSeconds   *int `yaml:"stale_seconds,omitempty"`
	PromptTakeover bool `yaml:"prompt_takeover"`
	PollSeconds    *int `yaml:"poll_seconds,omitempty"`
}

func (c SettingsConfig) toModel() (model.Settings, error) {
	s := model.DefaultSettings()
	s.Lock.PromptTakeover = c.Lock.PromptTakeover

	if c.Lock.StaleSeconds != nil {
		s.Lock.StaleAfter = time.Duration(*c.Lock.StaleSeconds) * time.Second
	}
	if c.Lock.PollSeconds != nil {
		s.Lock.PollInterval = time.Duration(*c.Lock.PollSeconds) * time.Second
	}

	holidays := make([]time.Time, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		d := model.ParseDate(h)
		if d == nil {
			return model.Settings{}, fmt.Errorf("holiday %q is not a valid date: %w", h, model.ErrNotValid)
		}
		holidays = append(holidays, *d)
	}
	s.Holidays = model.NewHolidayCalendar(holidays)

	return s, nil
}
