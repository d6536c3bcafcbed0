package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/projplan/internal/model"
)

const (
	// LockFileSuffix is appended to the data file path to get the lock file path.
	LockFileSuffix = ".lock.json"
	// RecordTimeFormat is the format of the lock record timestamp.
	RecordTimeFormat = "2006-01-02 15:04:05"
)

// Repository stores the lock record of a data file.
type Repository interface {
	// GetLock returns the current record, nil if there is none.
	GetLock(ctx context.Context) (*model.LockRecord, error)
	// CreateLock writes the record only if there is none, otherwise it fails with model.ErrAlreadyExists.
	CreateLock(ctx context.Context, r model.LockRecord) error
	PutLock(ctx context.Context, r model.LockRecord) error
	DeleteLock(ctx context.Context) error
}

// LockPath returns the lock file path of a data file.
func LockPath(dataPath string) (string, error) {
	abs, err := filepath.Abs(dataPath)
	if err != nil {
		return "", fmt.Errorf("could not get absolute path of %s: %w", dataPath, err)
	}
	return abs + LockFileSuffix, nil
}

// FileRepository stores the lock record as JSON in a sibling file of the data file.
type FileRepository struct {
	path string
}

// NewFileRepository returns a lock record repository for the data file.
func NewFileRepository(dataPath string) (*FileRepository, error) {
	path, err := LockPath(dataPath)
	if err != nil {
		return nil, err
	}
	return &FileRepository{path: path}, nil
}

// Path returns the lock file path.
func (r *FileRepository) Path() string { return r.path }

type recordJSON struct {
	Owner   string `json:"owner"`
	When    string `json:"when"`
	PID     int    `json:"pid"`
	Session string `json:"session,omitempty"`
}

// GetLock reads the lock record.
func (r *FileRepository) GetLock(ctx context.Context) (*model.LockRecord, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read lock file: %w", err)
	}

	var rj recordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("could not parse lock file: %w", err)
	}

	when, err := time.ParseInLocation(RecordTimeFormat, rj.When, time.Local)
	if err != nil {
		return nil, fmt.Errorf("could not parse lock time %q: %w", rj.When, err)
	}

	return &model.LockRecord{
		Owner:   rj.Owner,
		When:    when,
		PID:     rj.PID,
		Session: rj.Session,
	}, nil
}

// CreateLock writes the lock record if the lock file doesn't exist. The complete
// record is hard linked into place so readers never see a partial file.
func (r *FileRepository) CreateLock(ctx context.Context, rec model.LockRecord) error {
	tmpPath, err := r.writeTemp(rec)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	if err := os.Link(tmpPath, r.path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("lock file %s: %w", r.path, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not create lock file: %w", err)
	}

	return nil
}

// PutLock writes the lock record atomically, replacing the current one.
func (r *FileRepository) PutLock(ctx context.Context, rec model.LockRecord) error {
	tmpPath, err := r.writeTemp(rec)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("could not rename temp lock file: %w", err)
	}

	return nil
}

// writeTemp writes the record in a temp file of this process next to the lock file.
func (r *FileRepository) writeTemp(rec model.LockRecord) (string, error) {
	data, err := json.MarshalIndent(recordJSON{
		Owner:   rec.Owner,
		When:    rec.When.In(time.Local).Format(RecordTimeFormat),
		PID:     rec.PID,
		Session: rec.Session,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not marshal lock record: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("could not create temp lock file: %w", err)
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Chmod(0o644)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("could not write temp lock file: %w", err)
	}

	return f.Name(), nil
}

// DeleteLock removes the lock record, missing records are ignored.
func (r *FileRepository) DeleteLock(ctx context.Context) error {
	err := os.Remove(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove lock file: %w", err)
	}
	return nil
}
