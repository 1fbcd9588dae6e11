package gateway

import (
	"errors"
	"fmt"
)

// FaultCategory classifies a transport-level failure reported by an API
// implementation.
type FaultCategory string

const (
	FaultConfiguration      FaultCategory = "configuration"
	FaultInvalidCredentials FaultCategory = "invalid_credentials"
	FaultMissingCredentials FaultCategory = "missing_credentials"
	FaultConnection         FaultCategory = "connection"
)

// Fault is a failure reported by the gateway transport. Data carries the raw
// diagnostic payload returned by the gateway, when one was present.
type Fault struct {
	Category FaultCategory
	Code     string
	Message  string
	Data     string
	Err      error
}

func (f *Fault) Error() string {
	if f.Code != "" {
		return fmt.Sprintf("gateway fault (%s, code %s): %s", f.Category, f.Code, f.Message)
	}
	return fmt.Sprintf("gateway fault (%s): %s", f.Category, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// GatewayError is the stable error exposed to callers for the four translated
// fault categories: configuration, invalid credentials, missing credentials
// and connection. The message keeps the gateway's raw diagnostic payload
// appended so operators see exactly what the gateway reported.
type GatewayError struct {
	Category FaultCategory
	Message  string
	Code     string
	cause    error
}

func (e *GatewayError) Error() string { return e.Message }

// Unwrap exposes the underlying transport fault for errors.Is/As inspection.
func (e *GatewayError) Unwrap() error { return e.cause }

// translateError maps the four known fault categories into *GatewayError.
// Every other failure passes through unmodified; the taxonomy is deliberately
// narrow and unknown failures are not masked.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		return err
	}
	switch fault.Category {
	case FaultConfiguration, FaultInvalidCredentials, FaultMissingCredentials, FaultConnection:
	default:
		return err
	}
	msg := fault.Message
	if fault.Data != "" {
		msg = msg + " Data: " + fault.Data
	}
	return &GatewayError{
		Category: fault.Category,
		Message:  msg,
		Code:     fault.Code,
		cause:    err,
	}
}
