package cli

import (
	"errors"
	"fmt"
)

// Exit statuses of the conformance tool.
const (
	ExitPassed      = 0
	ExitFailed      = 1
	ExitConfigError = 2
)

// exitError carries the process exit status of a command. It
// satisfies cli.ExitCoder.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func (e *exitError) ExitCode() int { return e.code }

func failed(format string, args ...any) error {
	return &exitError{code: ExitFailed, err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error to an exit status. Errors that
// do not carry a status are configuration or usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitPassed
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitConfigError
}
