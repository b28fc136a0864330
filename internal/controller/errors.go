package controller

import (
	"errors"
	"fmt"
)

const (
	ValidationMessage     = "Please enter text and select a model"
	RequestFailureMessage = "Failed to analyze sentiment. Please check your connection and try again."
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrRequestInFlight = errors.New("a classification request is already in flight")
	ErrStaleResponse   = errors.New("response discarded: controller was reset while the request was in flight")
)

// RequestFailure covers non-success statuses, transport failures and
// unreadable bodies. Users only ever see RequestFailureMessage; Cause is kept
// for logs and errors.As.
type RequestFailure struct {
	RequestID string
	Cause     error
}

func (e *RequestFailure) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.RequestID, e.Cause)
}

func (e *RequestFailure) Unwrap() error {
	return e.Cause
}
