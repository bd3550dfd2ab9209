package main

import (
	"errors"

	"github.com/kk-code-lab/segetag/internal/digest"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitMismatch = 3
)

type exitCodeError struct {
	code  int
	msg   string
	quiet bool
}

func (e *exitCodeError) Error() string {
	return e.msg
}

func (e *exitCodeError) ExitCode() int {
	return e.code
}

func (e *exitCodeError) Quiet() bool {
	return e.quiet
}

func mismatchError(msg string, quiet bool) error {
	return &exitCodeError{code: exitMismatch, msg: msg, quiet: quiet}
}

func usageError(msg string) error {
	return &exitCodeError{code: exitUsage, msg: msg}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	if errors.Is(err, digest.ErrUnsupportedAlgorithm) {
		return exitUsage
	}
	return exitFailure
}
