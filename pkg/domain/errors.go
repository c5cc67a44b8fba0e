package domain

import (
	"errors"
	"fmt"
)

// StorageError marks persistence failures so callers can distinguish a
// transient store outage from a malformed request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func IsStorageError(err error) bool {
	if err == nil {
		return false
	}
	var storageError *StorageError
	return errors.As(err, &storageError)
}
