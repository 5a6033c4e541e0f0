package model

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable signals that a configured external backend (CLI tool,
// API key) is missing. Callers fall back to the alternate backend rather than
// failing the worker.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrNotFound signals a missing record.
var ErrNotFound = errors.New("not found")

// ParseError is a permanent failure decoding a model reply. Jobs hitting it
// are discarded, leaving business status unchanged for a later retry pass.
type ParseError struct {
	Strategy string // extraction strategy that made the final attempt
	Snippet  string // leading fragment of the offending text
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse reply (%s): %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err chains to a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// CLIError is a completion-CLI failure carrying the process exit code.
type CLIError struct {
	ExitCode int
	Output   string
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("cli exited with code %d", e.ExitCode)
}

// APIError is a non-2xx response from an external HTTP API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d", e.StatusCode)
}
