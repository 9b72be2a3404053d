// Package pipeline implements the quality-gated ticket refinement workflow
// for Refinery. A request moves through draft, technical review, quality
// review, compliance review, and finalize stages; each review stage scores
// its output along weighted dimensions and the controller advances, loops
// back for bounded refinement, escalates, or rejects based on the band.
package pipeline

import "errors"

// Sentinel errors for pipeline operations.
var (
	ErrEmptyRequest   = errors.New("request text is empty")
	ErrInvalidWeights = errors.New("invalid weight table")
	ErrStageFailed    = errors.New("stage execution failed")
	ErrCreationFailed = errors.New("record creation failed")
)
