package repository

import (
	"errors"
	"fmt"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminExists        = errors.New("admin already exists")
)

// StorageError is an I/O or constraint failure at the persistence layer.
// Its message is for logs only.
type StorageError struct {
	Op  string
	ID  int64 // zero when the operation has no target row
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("storage: %s (id %d): %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, id int64, err error) error {
	return &StorageError{Op: op, ID: id, Err: err}
}
