// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode

import (
	"errors"
	"fmt"
)

// Error is an unrecoverable failure that is supposed to terminate the program
// with the exit status of its [Code].
type Error struct {
	Code Code
	Err  error
}

// New returns a new [Error] with the given code and a message formatted
// according to the format specifier. Use %w to wrap errors.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Err:  fmt.Errorf(format, args...),
	}
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}

// From returns an exit code based on the given error and if the error was an
// [Error].
//
// If the error is nil, the exit code is 0. If the error is an [Error] the exit
// code is its [Code]. Otherwise the exit code is [Software].
func From(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var exitErr *Error
	if errors.As(err, &exitErr) {
		return int(exitErr.Code), true
	}

	return int(Software), false
}

// CodeOf returns the [Code] of the given error if it is an [Error].
func CodeOf(err error) (Code, bool) {
	var exitErr *Error
	if !errors.As(err, &exitErr) {
		return 0, false
	}

	return exitErr.Code, true
}
