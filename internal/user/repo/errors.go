package repo

import (
	"errors"
	"fmt"
)

// sentinel errors for the two remote failure classes
var (
	ErrRequestFailed   = errors.New("request failed")
	ErrTransportFailed = errors.New("transport failed")
)

// RequestError is returned when the remote answered with a non-success status
// or with a payload that does not have the expected shape.
type RequestError struct {
	Op      string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }

// TransportError is returned when no response was received at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransportFailed }
