package executions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/refinery/internal/pipeline"
)

// Domain errors for execution operations.
var (
	ErrNotFound  = errors.New("execution not found")
	ErrDuplicate = errors.New("execution already exists")
)

// MapHTTPStatus maps execution domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, pipeline.ErrEmptyRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
