package multierr

import (
	"bytes"
	"errors"
	"fmt"
)

// Error collects independent failures so a pass over many resources or settings can report all of
// them at once.
type Error []error

func (e Error) Error() string {
	switch len(e) {
	case 0:
		return "<nil>"

	case 1:
		return e[0].Error()

	default:
		buf := new(bytes.Buffer)
		fmt.Fprintf(buf, "%d errors occurred:", len(e))
		for _, err := range e {
			fmt.Fprintf(buf, "\n\t* %v", err)
		}
		return buf.String()
	}
}

// Append mutates e to include err. It is a no-op when err is nil. Another Error is flattened into e.
//
//	var errs multierr.Error
//	errs.Append(validate(x))
//	return errs.ErrOrNil()
func (e *Error) Append(err error) {
	switch {
	case e == nil, err == nil:

	case isMulti(err):
		for _, inner := range err.(Error) {
			e.Append(inner)
		}

	case *e == nil:
		*e = Error{err}

	default:
		*e = append(*e, err)
	}
}

// ErrOrNil converts to a plain error, avoiding the typed-nil trap of returning an empty Error
// as an error interface. A single collected error is returned unwrapped.
func (e Error) ErrOrNil() error {
	switch len(e) {
	case 0:
		return nil

	case 1:
		return e[0]

	default:
		return e
	}
}

// Unwrap exposes the members to [errors.Is] and [errors.As].
func (e Error) Unwrap() []error {
	return e
}

func (e Error) Is(target error) bool {
	for _, err := range e {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isMulti(err error) bool {
	_, ok := err.(Error)
	return ok
}
