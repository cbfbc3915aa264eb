package verimail

import (
	"errors"
	"fmt"
	"time"

	"github.com/optimode/verimail/internal/breaker"
)

var (
	// ErrInvalidInput is returned when a caller-facing input survives
	// sanitisation in an unusable form.
	ErrInvalidInput = errors.New("verimail: invalid input")

	// ErrInvalidBulkSize is returned when a bulk request exceeds the
	// configured maximum number of entries.
	ErrInvalidBulkSize = errors.New("verimail: bulk request exceeds maximum size")

	// ErrDNSUnavailable marks a validation that could not reach any DNS
	// provider.
	ErrDNSUnavailable = errors.New("verimail: DNS unavailable")

	// ErrProbeTimeout marks a probe that exceeded its time budget.
	ErrProbeTimeout = errors.New("verimail: probe timed out")

	// ErrSMTPUnreachable marks an SMTP probe that could not open a
	// dialog with any MX host.
	ErrSMTPUnreachable = errors.New("verimail: SMTP server unreachable")

	// ErrCircuitOpen is the breaker's fail-fast error, re-exported so
	// callers don't import the internal package.
	ErrCircuitOpen = breaker.ErrOpen

	// ErrClosed is returned by operations on a closed Validator.
	ErrClosed = errors.New("verimail: validator is closed")
)

// RateLimitError is a distinguished failure carrying the retry hint.
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("verimail: rate limited (%s), retry after %s", e.Scope, e.RetryAfter)
}

// SMTPRejectedError carries the SMTP reply code of a hard rejection.
type SMTPRejectedError struct {
	Code int
}

func (e *SMTPRejectedError) Error() string {
	return fmt.Sprintf("verimail: SMTP rejected with code %d", e.Code)
}

// ErrorCode maps an engine error to the stable code string a wrapping
// HTTP layer should surface.
func ErrorCode(err error) string {
	var rl *RateLimitError
	var rej *SMTPRejectedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &rej):
		return "smtp_rejected"
	case errors.Is(err, ErrInvalidBulkSize):
		return "invalid_bulk_size"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrDNSUnavailable):
		return "dns_unavailable"
	case errors.Is(err, ErrProbeTimeout):
		return "probe_timeout"
	case errors.Is(err, ErrSMTPUnreachable):
		return "smtp_unreachable"
	default:
		return "transient_upstream"
	}
}
