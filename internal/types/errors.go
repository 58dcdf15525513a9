package types

import (
	"errors"
	"fmt"
)

var (
	ErrDataNotFound  = errors.New("data not found")
	ErrNoDataDirs    = errors.New("no Claude data directories found")
	ErrInvalidFormat = errors.New("invalid format")
	ErrNetworkError  = errors.New("network error")
	ErrNoPricing     = errors.New("failed to fetch pricing and no cache available")
	ErrNoCredentials = errors.New("no account credentials available")
	ErrOffline       = errors.New("network access disabled")
	ErrInvalidConfig = errors.New("invalid configuration")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

type LoaderError struct {
	Path string
	Err  error
}

func (e LoaderError) Error() string {
	return fmt.Sprintf("failed to load from %s: %v", e.Path, e.Err)
}

func (e LoaderError) Unwrap() error {
	return e.Err
}

type ParseError struct {
	Line int
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned when a remote endpoint answers with a non-200 status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

func (e HTTPStatusError) Unwrap() error {
	return ErrNetworkError
}
