package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports bad input caught before any network call is made.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// RemoteError reports a mutation rejected by the external GraphQL server
// or a malformed response from it.
type RemoteError struct {
	Op  string
	Err error
}

func NewRemoteError(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

func (err RemoteError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err RemoteError) Unwrap() error { return err.Err }

func IsRemote(err error) bool {
	_, ok := errors.Cause(err).(*RemoteError)
	return ok
}

// FetchError reports a failed list query. The caller keeps its last good
// data and may retry.
type FetchError struct {
	Op  string
	Err error
}

func NewFetchError(op string, err error) error {
	return &FetchError{Op: op, Err: err}
}

func (err FetchError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err FetchError) Unwrap() error { return err.Err }

func IsFetch(err error) bool {
	_, ok := errors.Cause(err).(*FetchError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
