// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method and optional context fields
// (operation, path, index) so that failures surfaced to
// the CLI are actionable without a remote shell session.
package errors

import (
	stderr "errors"
	"fmt"
	"strings"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	return &Error{msg: msg, index: noIndex}
}

const noIndex = int(^uint(0) >> 1) // sentinel: no index attached

// Error augments the standard error interface with a Wrap method
// and contextual annotations.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg   string
	op    string
	path  string
	index int
	err   error
}

// Error message, including any attached context
func (e *Error) Error() string {
	var b strings.Builder
	if e.op != "" {
		b.WriteString(e.op)
		b.WriteString(": ")
	}
	b.WriteString(e.msg)
	if e.path != "" {
		fmt.Fprintf(&b, " [path: %s]", e.path)
	}
	if e.index != noIndex {
		fmt.Fprintf(&b, " [index: %d]", e.index)
	}
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error. The receiver is cloned so that package level
// sentinels are never mutated.
func (e *Error) Wrap(err error) *Error {
	c := e.clone()
	c.err = err
	return c
}

// WrapMsg wraps a nested error built from a message
func (e *Error) WrapMsg(format string, args ...interface{}) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// WithOp annotates the error with the failing operation
func (e *Error) WithOp(op string) *Error {
	c := e.clone()
	c.op = op
	return c
}

// WithPath annotates the error with the offending path
func (e *Error) WithPath(path string) *Error {
	c := e.clone()
	c.path = path
	return c
}

// WithIndex annotates the error with the offending catalog index
func (e *Error) WithIndex(index int) *Error {
	c := e.clone()
	c.index = index
	return c
}

// Is of some error type? A derived error matches its originating sentinel.
func (e *Error) Is(target error) bool {
	if e == target || e.err == target {
		return true
	}
	if t, ok := target.(*Error); ok {
		return e.msg == t.msg
	}
	return false
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
