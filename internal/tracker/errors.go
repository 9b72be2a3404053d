package tracker

import "errors"

var (
	// ErrRemote indicates the tracker API rejected or failed a request.
	ErrRemote = errors.New("tracker request failed")
	// ErrKeyReserved indicates another creation already holds the idempotency key.
	ErrKeyReserved = errors.New("idempotency key already reserved")
	// ErrMissingKey indicates a record was submitted without an idempotency key.
	ErrMissingKey = errors.New("idempotency key required")
)
