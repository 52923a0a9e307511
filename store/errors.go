package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecord is returned by a Backend when nothing is stored under a key.
	ErrNoRecord = errors.New("no persisted record")

	ErrNotPermutation = errors.New("order must list every shortcut id exactly once")
)

// PersistenceError reports a failed write of the state record.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MalformedError reports a stored record that could not be decoded.
type MalformedError struct {
	Key string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record %s: %v", e.Key, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }
