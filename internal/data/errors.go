package data

import "github.com/pkg/errors"

// domain error kinds, callers attach context with errors.Wrap and classify
// with errors.Is
var (
	ErrNotFound            = errors.New("employee not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("employee service unavailable")
	ErrEmptyCollection     = errors.New("no employees found")
	ErrDeleteFailed        = errors.New("failed to delete employee")
	ErrUnexpected          = errors.New("unexpected response from employee service")
	ErrMutationDisabled    = errors.New("mutation disabled")
)

// ErrorKind returns the domain sentinel err belongs to, or ErrUnexpected
func ErrorKind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUpstreamUnavailable,
		ErrEmptyCollection,
		ErrDeleteFailed,
		ErrMutationDisabled,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnexpected
}
