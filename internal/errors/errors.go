// Package errors provides structured error handling for portscout operations.
// It defines error codes for the pre-flight and per-job failure classes of a
// scan, the ScanError type that carries them, and the mapping from codes to
// process exit statuses.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"

	// CodeCanceled marks work abandoned because the caller cancelled the scan.
	CodeCanceled ErrorCode = "CANCELED"

	// Pre-flight errors. These abort a scan before any job is dispatched.
	CodeInvalidPortSpec       ErrorCode = "INVALID_PORT_SPEC"
	CodeUnresolvableHost      ErrorCode = "UNRESOLVABLE_HOST"
	CodePermissionDenied      ErrorCode = "PERMISSION_DENIED"
	CodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"

	// Per-job errors. Contained by the engine and never returned to callers.
	CodeProbeError ErrorCode = "PROBE_ERROR"

	// Output errors.
	CodeEncodeFailed ErrorCode = "ENCODE_FAILED"
	CodeFileWrite    ErrorCode = "FILE_WRITE"
)

// Process exit statuses reported by the CLI.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitInvalidArgument   = 2
	ExitMissingCapability = 3
	ExitPermissionDenied  = 4
)

// ScanError represents an error that occurred during scanning operations.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Target != "" {
		msg = fmt.Sprintf("%s (target: %s)", msg, e.Target)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// IsCode checks if an error, or any error it wraps, has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	if se, ok := AsScanError(err); ok {
		return se.Code
	}
	return CodeUnknown
}

// AsScanError finds the first ScanError in err's chain.
func AsScanError(err error) (*ScanError, bool) {
	var se *ScanError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsFatal reports whether err means the scan cannot produce a trustworthy
// report, such as a privilege or capability failure surfacing mid-scan.
// Uncoded errors and probe errors are per-job and are absorbed by the engine.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodePermissionDenied, CodeCapabilityUnavailable,
		CodeInvalidPortSpec, CodeUnresolvableHost, CodeValidation, CodeConfiguration:
		return true
	default:
		return false
	}
}

// ExitCode maps an error to the process exit status the CLI reports.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCode(err) {
	case CodeInvalidPortSpec, CodeUnresolvableHost, CodeValidation:
		return ExitInvalidArgument
	case CodeCapabilityUnavailable:
		return ExitMissingCapability
	case CodePermissionDenied:
		return ExitPermissionDenied
	default:
		return ExitFailure
	}
}

// Common error creation functions

// ErrInvalidPortSpec creates an error for a port expression that matches no
// supported form.
func ErrInvalidPortSpec(spec, reason string) *ScanError {
	return NewScanError(CodeInvalidPortSpec, "Invalid port specification").
		WithContext("spec", spec).
		WithContext("reason", reason)
}

// ErrUnresolvableHost creates an error for a host that is neither a literal
// address nor resolvable.
func ErrUnresolvableHost(host string, err error) *ScanError {
	return WrapScanErrorWithTarget(CodeUnresolvableHost, "Host cannot be resolved", host, err)
}

// ErrPermissionDenied creates an error for a scan type that needs elevated
// privileges the process does not hold.
func ErrPermissionDenied(scanType string) *ScanError {
	return NewScanError(CodePermissionDenied, "Scan type requires elevated privileges").
		WithContext("scan_type", scanType)
}

// ErrCapabilityUnavailable creates an error for a scanning capability that is
// not present on this host.
func ErrCapabilityUnavailable(capability string, err error) *ScanError {
	return WrapScanError(CodeCapabilityUnavailable, "Scanning capability unavailable", err).
		WithContext("capability", capability)
}

// ErrProbe creates a per-job probe error.
func ErrProbe(target string, port uint16, err error) *ScanError {
	return WrapScanErrorWithTarget(CodeProbeError, "Probe failed", target, err).
		WithContext("port", port)
}

// ErrConfigInvalid creates an error for an invalid option or configuration value.
func ErrConfigInvalid(field string, value interface{}) *ScanError {
	return NewScanError(CodeValidation, "Invalid configuration value").
		WithContext("field", field).
		WithContext("value", value)
}
