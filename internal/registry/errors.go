package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a touch on an unknown record id. This indicates a
// logic error upstream; callers degrade to the creation path rather than
// failing the request.
var ErrNotFound = errors.New("record not found")

// StorageError represents an I/O failure in the registry file, distinct from
// corruption (which is auto-recovered). It is surfaced to the caller per
// request and never crashes the process.
type StorageError struct {
	Op   string // "load", "save", "lock"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("registry %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
