package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: a unique key is already taken
//   - ErrNoTransaction: a write that must join a unit of work was called outside one
//   - ErrUnavailable: backing service temporarily unavailable
//   - ErrFileMissing: a stored path no longer points at a file
//   - ErrInvalidState: an argument or state the operation cannot act on
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrNoTransaction = errors.New("no ambient transaction")
	ErrUnavailable   = errors.New("unavailable")
	ErrFileMissing   = errors.New("file missing")
	ErrInvalidState  = errors.New("invalid state")
)
