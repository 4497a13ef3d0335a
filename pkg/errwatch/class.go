// class.go defines how errors describe their type identity for ignore rules
// and notice construction.

package errwatch

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BaseErrorClass is the ancestor reported for errors that do not describe
// their own ancestry. An ignore rule for it matches every plain Go error.
const BaseErrorClass = "error"

// Classified is implemented by errors that report their own class name and
// ordered ancestor class names (nearest first).
type Classified interface {
	error
	ErrorClass() string
	ErrorAncestors() []string
}

// Backtracer is implemented by errors that carry their own stack frames,
// innermost frame first.
type Backtracer interface {
	Backtrace() []string
}

// ClassError is a Classified error with an optional backtrace.
type ClassError struct {
	Class     string
	Message   string
	Ancestors []string
	Frames    []string
	Cause     error
}

// NewError creates a ClassError with the given class, message, and ancestry.
// It carries no backtrace; use WithBacktrace to capture one.
func NewError(class, message string, ancestors ...string) *ClassError {
	return &ClassError{
		Class:     class,
		Message:   message,
		Ancestors: ancestors,
	}
}

// Errorf creates a ClassError whose message is formatted from format and args.
// A %w verb records the wrapped error as the cause.
func Errorf(class string, format string, args ...any) *ClassError {
	wrapped := fmt.Errorf(format, args...)
	return &ClassError{
		Class:   class,
		Message: wrapped.Error(),
		Cause:   errors.Unwrap(wrapped),
	}
}

func (e *ClassError) Error() string {
	if e.Message == "" {
		return e.Class
	}
	return e.Message
}

// ErrorClass implements Classified.
func (e *ClassError) ErrorClass() string { return e.Class }

// ErrorAncestors implements Classified. The base error class is always last.
func (e *ClassError) ErrorAncestors() []string {
	out := make([]string, 0, len(e.Ancestors)+1)
	out = append(out, e.Ancestors...)
	if len(out) == 0 || out[len(out)-1] != BaseErrorClass {
		out = append(out, BaseErrorClass)
	}
	return out
}

// Backtrace implements Backtracer.
func (e *ClassError) Backtrace() []string { return e.Frames }

// Unwrap returns the cause, if any.
func (e *ClassError) Unwrap() error { return e.Cause }

// WithBacktrace returns err annotated with the caller's stack. A ClassError is
// copied and its frames replaced; any other error is wrapped in a ClassError
// that keeps its class and message.
func WithBacktrace(err error) error {
	if err == nil {
		return nil
	}
	frames := captureFrames(3)

	if ce, ok := err.(*ClassError); ok {
		cp := *ce
		cp.Frames = frames
		return &cp
	}

	class, ancestors := Classify(err)
	return &ClassError{
		Class:     class,
		Message:   err.Error(),
		Ancestors: ancestors,
		Frames:    frames,
		Cause:     err,
	}
}

// Classify returns the class name and ancestors of err. The first Classified
// error in the Unwrap chain wins; otherwise the dynamic Go type name of err is
// used with BaseErrorClass as its only ancestor.
func Classify(err error) (string, []string) {
	if err == nil {
		return "", nil
	}
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorClass(), c.ErrorAncestors()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*"), []string{BaseErrorClass}
}

// backtraceOf returns the frames of the first Backtracer in the Unwrap chain.
func backtraceOf(err error) []string {
	var bt Backtracer
	if errors.As(err, &bt) {
		return bt.Backtrace()
	}
	return nil
}

// captureFrames formats the current goroutine's stack as "file:line in func"
// strings, skipping the given number of frames.
func captureFrames(skip int) []string {
	pcs := make([]uintptr, MaxBacktraceFrames)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	var out []string
	for {
		frame, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d in %s", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return out
}
