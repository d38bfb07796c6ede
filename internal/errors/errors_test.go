package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CodeUnknown,
		CodeValidation,
		CodeConfiguration,
		CodeCanceled,
		CodeInvalidPortSpec,
		CodeUnresolvableHost,
		CodePermissionDenied,
		CodeCapabilityUnavailable,
		CodeProbeError,
		CodeEncodeFailed,
		CodeFileWrite,
	}

	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("Error code %v should not be empty", code)
		}
	}
}

func TestScanError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewScanError(CodeProbeError, "probe failed")
		assert.Equal(t, CodeProbeError, err.Code)
		assert.Equal(t, "probe failed", err.Message)
		assert.NotNil(t, err.Context)
	})

	t.Run("error with target", func(t *testing.T) {
		err := WrapScanErrorWithTarget(CodeUnresolvableHost, "lookup failed", "nowhere.invalid", nil)
		assert.Equal(t, "[UNRESOLVABLE_HOST] lookup failed (target: nowhere.invalid)", err.Error())
	})

	t.Run("error without target", func(t *testing.T) {
		err := NewScanError(CodeValidation, "validation failed")
		assert.Equal(t, "[VALIDATION] validation failed", err.Error())
	})

	t.Run("wrapped error includes cause", func(t *testing.T) {
		cause := fmt.Errorf("no such host")
		err := WrapScanErrorWithTarget(CodeUnresolvableHost, "cannot resolve", "example.invalid", cause)
		assert.Equal(t, cause, err.Unwrap())
		assert.Contains(t, err.Error(), "no such host")
	})

	t.Run("with context", func(t *testing.T) {
		err := NewScanError(CodeCanceled, "scan cancelled")
		err.WithContext("duration", "30s").WithContext("port", 22)

		assert.Equal(t, "30s", err.Context["duration"])
		assert.Equal(t, 22, err.Context["port"])
	})
}

func TestGetCode(t *testing.T) {
	t.Run("direct scan error", func(t *testing.T) {
		assert.Equal(t, CodePermissionDenied, GetCode(ErrPermissionDenied("udp")))
	})

	t.Run("wrapped scan error", func(t *testing.T) {
		err := fmt.Errorf("preflight: %w", ErrInvalidPortSpec("abc", "unrecognized token"))
		assert.Equal(t, CodeInvalidPortSpec, GetCode(err))
		assert.True(t, IsCode(err, CodeInvalidPortSpec))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, CodeUnknown, GetCode(errors.New("boom")))
		assert.Equal(t, CodeUnknown, GetCode(nil))
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"invalid port spec", ErrInvalidPortSpec("x", "bad"), ExitInvalidArgument},
		{"unresolvable host", ErrUnresolvableHost("h", nil), ExitInvalidArgument},
		{"validation", ErrConfigInvalid("workers", 0), ExitInvalidArgument},
		{"capability", ErrCapabilityUnavailable("nmap", nil), ExitMissingCapability},
		{"permission", ErrPermissionDenied("semi-open"), ExitPermissionDenied},
		{"unknown", errors.New("disk full"), ExitFailure},
		{"wrapped permission", fmt.Errorf("scan: %w", ErrPermissionDenied("udp")), ExitPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(ErrProbe("127.0.0.1", 80, errors.New("reset"))))
	assert.False(t, IsFatal(errors.New("connection reset")))
	assert.False(t, IsFatal(WrapScanError(CodeCanceled, "interrupted", context.Canceled)))
	assert.True(t, IsFatal(ErrPermissionDenied("udp")))
	assert.True(t, IsFatal(fmt.Errorf("nmap: %w", ErrCapabilityUnavailable("nmap", nil))))
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrCapabilityUnavailable("nmap", errors.New("not found")))

	var se *ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "nmap", se.Context["capability"])
}

func TestAsScanError(t *testing.T) {
	se, ok := AsScanError(fmt.Errorf("scan: %w", ErrInvalidPortSpec("1-", "invalid range end")))
	require.True(t, ok)
	assert.Equal(t, CodeInvalidPortSpec, se.Code)
	assert.Equal(t, "1-", se.Context["spec"])

	_, ok = AsScanError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = AsScanError(nil)
	assert.False(t, ok)
}
