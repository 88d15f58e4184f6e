// Package v1 represents types used by the web application for v1.
package v1

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// ErrorResponse is the form used for API responses from failures in the API.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RequestError is used to pass an error during the request through the
// application with web specific context.
type RequestError struct {
	Err    error
	Status int
}

// NewRequestError wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewRequestError(err error, status int) error {
	return &RequestError{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *RequestError) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *RequestError) Unwrap() error {
	return re.Err
}

// IsRequestError checks if an error of type RequestError exists.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// GetRequestError returns a copy of the RequestError pointer.
func GetRequestError(err error) *RequestError {
	var re *RequestError
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// NewChainError maps the errors of the blockchain packages to the status
// code a client should see. Errors that are not known are returned as is
// and become a 500.
func NewChainError(err error) error {
	var se *peer.SendError

	switch {
	case errors.Is(err, database.ErrPrevHashMismatch),
		errors.Is(err, database.ErrRedaction),
		errors.Is(err, peer.ErrMalformedMessage):
		return NewRequestError(err, http.StatusBadRequest)

	case errors.Is(err, database.ErrInvalidProof):
		return NewRequestError(err, http.StatusUnprocessableEntity)

	case errors.As(err, &se):
		return NewRequestError(err, http.StatusBadGateway)
	}

	return err
}
