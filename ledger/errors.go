package ledger

import "errors"

var (
	// ErrInvalidArgument is returned for malformed or missing caller input.
	ErrInvalidArgument = errors.New("ledger: invalid argument")
	// ErrNotFound is returned by index based accessors for unknown blocks.
	ErrNotFound = errors.New("ledger: block not found")
	// ErrIntegrity is returned when the chain fails verification.
	ErrIntegrity = errors.New("ledger: integrity check failed")
	// ErrStorage is returned when the backing store rejects a write.
	ErrStorage = errors.New("ledger: storage failure")
)
