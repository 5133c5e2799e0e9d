package task

import (
	"errors"
	"fmt"
)

// Error taxonomy:
//   - ParsingError: the raw message could not be parsed. Never retried.
//   - FatalError: the handler declared the failure unrecoverable. Never retried.
//   - anything else: transient, retried until the task's retry ceiling.

// FatalError marks a handler failure that must not be retried.
type FatalError struct{ Err error }

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so the executor stops retrying immediately.
//
// Example:
//
//	return task.Fatal(fmt.Errorf("unknown message kind %q", kind))
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err is wrapped with Fatal.
func IsFatal(err error) bool {
	var e *FatalError
	return errors.As(err, &e)
}

// ParsingError marks a message that could not be parsed into a payload.
type ParsingError struct{ Err error }

func (e *ParsingError) Error() string { return fmt.Sprintf("parsing: %v", e.Err) }
func (e *ParsingError) Unwrap() error { return e.Err }

// Parsing wraps a parser failure. Parse failures are terminal: the executor
// fails the task without entering the retry loop.
func Parsing(err error) error {
	if err == nil {
		return nil
	}
	return &ParsingError{Err: err}
}

// IsParsing reports whether err is wrapped with Parsing.
func IsParsing(err error) bool {
	var e *ParsingError
	return errors.As(err, &e)
}
