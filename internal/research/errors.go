package research

import "errors"

// Sentinel errors for research operations.
var (
	ErrUnknownScope = errors.New("unknown research scope")
	ErrUnavailable  = errors.New("research connector unavailable")
)
