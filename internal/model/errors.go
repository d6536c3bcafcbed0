package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrReadOnly is returned when a write is attempted by a read-only session.
	ErrReadOnly = errors.New("read-only session")
	// ErrLockHeld is returned when the edit lock belongs to another owner.
	ErrLockHeld = errors.New("lock held by another owner")
	// ErrTakeoverDeclined is returned when the user refuses to take over a lock.
	ErrTakeoverDeclined = errors.New("lock takeover declined")
	// ErrStaleData is returned when the data file changed since it was last read.
	ErrStaleData = errors.New("data file changed externally")
)
