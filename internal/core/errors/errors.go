package errors

import "errors"

// Error kinds shared by the computation core. Packages wrap these with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is.
var (
	ErrUnitParse           = errors.New("unit parse error")
	ErrIncompatibleUnits   = errors.New("incompatible units")
	ErrInvalidExponent     = errors.New("invalid exponent")
	ErrNotPhysicalQuantity = errors.New("not a physical quantity")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrAlignment           = errors.New("timestamp not aligned")
	ErrUndefinedSamples    = errors.New("samples undefined for range")
	ErrOverlappingPeriods  = errors.New("overlapping periods")
	ErrCacheCorruption     = errors.New("cache corruption")
	ErrCyclicDependency    = errors.New("cyclic data sequence dependency")
	ErrNotFound            = errors.New("not found")
)

const (
	HttpInternalError      = "internal_error"
	HttpInvalidRequest     = "invalid_request"
	HttpNotFound           = "not_found"
	HttpAlignmentError     = "alignment_error"
	HttpIncompatibleUnits  = "incompatible_units"
	HttpUndefinedSamples   = "undefined_samples"
	HttpDuplicatePoint     = "duplicate_point"
	HttpCacheCorruption    = "cache_corruption"
	HttpOverlappingPeriods = "overlapping_periods"
	HttpMissingConfigError = "missing_configuration"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
