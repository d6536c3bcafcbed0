package conventions

import (
	"path/filepath"

	"k8s.io/client-go/util/homedir"
)

const (
	// DefaultDataDir is the default projplan data directory name (relative to home).
	DefaultDataDir = ".projplan"
	// DataFile is the shared project data file name.
	DataFile = "project_data.db"
	// ConfigFile is the settings file name.
	ConfigFile = "config.yaml"

	// DBPathEnvVar is the environment variable that overrides the data file path.
	DBPathEnvVar = "PROJECT_DB_PATH"
)

// DataDir returns the default data directory.
func DataDir() string {
	return filepath.Join(homedir.HomeDir(), DefaultDataDir)
}

// DefaultDataPath returns the default path of the shared data file.
func DefaultDataPath() string {
	return filepath.Join(DataDir(), DataFile)
}

// DefaultConfigPath returns the default path of the settings file.
func DefaultConfigPath() string {
	return filepath.Join(DataDir(), ConfigFile)
}
