package errors

import (
	"errors"
	"net/http"
)

var httpKinds = []struct {
	err       error
	status    int
	errorType string
}{
	{ErrNotFound, http.StatusNotFound, HttpNotFound},
	{ErrAlignment, http.StatusBadRequest, HttpAlignmentError},
	{ErrIncompatibleUnits, http.StatusBadRequest, HttpIncompatibleUnits},
	{ErrUnitParse, http.StatusBadRequest, HttpIncompatibleUnits},
	{ErrUndefinedSamples, http.StatusBadRequest, HttpUndefinedSamples},
	{ErrOverlappingPeriods, http.StatusBadRequest, HttpOverlappingPeriods},
	{ErrCacheCorruption, http.StatusInternalServerError, HttpCacheCorruption},
}

// HTTPStatus maps an error to a response status and error type. Errors of
// no known kind are internal errors.
func HTTPStatus(err error) (int, string) {
	for _, k := range httpKinds {
		if errors.Is(err, k.err) {
			return k.status, k.errorType
		}
	}
	return http.StatusInternalServerError, HttpInternalError
}
