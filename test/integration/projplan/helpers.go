package projplan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/projplan/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	// go test changes the CWD to the test package directory, relative paths are not allowed.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("PROJPLAN_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("projplan binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "PROJPLAN_INTEGRATION"
		envBinary     = "PROJPLAN_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{Binary: os.Getenv(envBinary)}
	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Session is a projplan user working on a shared data file.
type Session struct {
	Config     Config
	DBPath     string
	ConfigPath string
	Owner      string
	ID         string
}

// Run runs a projplan command as the session user.
func (s Session) Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error) {
	base := []string{
		"--no-color",
		"--db-path", s.DBPath,
		"--config", s.ConfigPath,
		"--owner", s.Owner,
	}
	if s.ID != "" {
		base = append(base, "--session", s.ID)
	}

	return testutils.RunProjplan(ctx, nil, s.Config.Binary, append(base, args...), true)
}
