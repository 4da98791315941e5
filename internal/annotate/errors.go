package annotate

import "errors"

var (
	// ErrUnavailable indicates the model server is unreachable. The
	// caller degrades to an empty narrative; this never fails a plan.
	ErrUnavailable = errors.New("annotator unavailable")

	// ErrTimeout indicates the request exceeded its configured timeout.
	ErrTimeout = errors.New("annotator request timed out")

	// ErrInvalidOutput indicates the response did not conform to the
	// required output schema.
	ErrInvalidOutput = errors.New("invalid annotator output format")

	// ErrRetryExhausted indicates all retry attempts failed.
	ErrRetryExhausted = errors.New("annotator retry attempts exhausted")
)
