package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is returned when a submission's media kind is
	// outside the supported set. Rejected before any store interaction.
	ErrUnsupportedKind = errors.New("unsupported media kind")

	// ErrNotFound is returned by point operations when no matching active
	// record exists for the owner.
	ErrNotFound = errors.New("item not found")

	// ErrStoreUnavailable marks storage failures that abort the current
	// operation. Match with errors.Is.
	ErrStoreUnavailable = errors.New("archive store unavailable")
)

// StoreError wraps an unexpected backing-store failure. It matches
// ErrStoreUnavailable via errors.Is so callers never need to inspect
// driver-level errors.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// DuplicateContentError signals that an item with the same content hash
// already exists for the owner. A steady-state outcome, not a failure:
// Existing carries the record the submission collapsed into.
type DuplicateContentError struct {
	Existing *ItemRecord
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("duplicate content: already archived as record #%d", e.Existing.ID)
}

// DuplicateIdentityError signals that the same transport-assigned upload
// identity already exists for the owner.
type DuplicateIdentityError struct {
	Existing *ItemRecord
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate transport identity: already archived as record #%d", e.Existing.ID)
}
