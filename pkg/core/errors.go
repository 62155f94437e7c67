package core

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

type (
	// SynthError is a failure while building one stack's resources, tagged with the construct path
	// (eg "ComponentDeployment/ThingComponent") that produced it.
	SynthError struct {
		Path  string
		Cause error
	}

	WrappedError struct {
		Message string
		Cause   error
		Stack   errors.StackTrace
	}
)

var (
	errorColour = color.New(color.FgRed)
)

func NewSynthError(path string, cause error) *SynthError {
	if sub, ok := cause.(*SynthError); ok {
		return &SynthError{
			Path:  path + "/" + sub.Path,
			Cause: sub.Cause,
		}
	}
	return &SynthError{
		Path:  path,
		Cause: cause,
	}
}

func (err *SynthError) Error() string {
	return fmt.Sprintf("error in %s: %v", err.Path, err.Cause)
}

func (err *SynthError) Format(s fmt.State, verb rune) {
	errorColour.Fprintf(s, "error in %s: ", err.Path)
	if formatter, ok := err.Cause.(fmt.Formatter); ok {
		formatter.Format(s, verb)
	} else {
		fmt.Fprint(s, err.Cause.Error())
	}
}

func (err *SynthError) Unwrap() error {
	return err.Cause
}

func (err *WrappedError) Error() string {
	if err.Message != "" {
		return err.Message + ": " + err.Cause.Error()
	}
	return err.Cause.Error()
}

func (err *WrappedError) Format(s fmt.State, verb rune) {
	if err.Message != "" {
		fmt.Fprint(s, err.Message+": ")
	}
	if len(err.Stack) > 0 && s.Flag('+') {
		err.Stack.Format(s, verb)
	}
	if formatter, ok := err.Cause.(fmt.Formatter); ok {
		formatter.Format(s, verb)
	} else {
		fmt.Fprint(s, err.Cause.Error())
	}
}

func (err *WrappedError) Unwrap() error {
	return err.Cause
}

func WrapErrf(err error, msg string, args ...interface{}) *WrappedError {
	return &WrappedError{
		Message: fmt.Sprintf(msg, args...),
		Cause:   err,
		Stack:   callers(2),
	}
}

func callers(depth int) errors.StackTrace {
	const maxDepth = 32

	var pcs [maxDepth]uintptr
	n := runtime.Callers(depth+1, pcs[:])

	frames := make([]errors.Frame, n)
	for i, frame := range pcs[:n] {
		frames[i] = errors.Frame(frame)
	}
	return errors.StackTrace(frames)
}
