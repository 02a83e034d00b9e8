package remote

import (
	"errors"
	"fmt"
)

// Rejection codes the authoritative service returns for definite failures.
const (
	CodeTerminalState = "terminal_state_violation"
	CodeValidation    = "validation_rejected"
)

// ErrQuoteExpired is returned when a skip-trace confirm targets a stale
// quote. The caller must re-quote; the provider is never called.
var ErrQuoteExpired = errors.New("remote: skip-trace quote expired")

// TransientError wraps timeouts, connection failures and 5xx responses.
// The operation may have succeeded server-side, which is why every mutation
// carries an idempotency token; the sync engine retries these with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("remote: transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RejectionError is a definite server-side rejection (terminal state,
// schema/semantic validation). Never retried.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("remote: rejected (%s): %s", e.Code, e.Message)
}

// ProviderError is an external skip-trace provider failure, surfaced
// verbatim. There is no automatic retry-with-charge: cost and availability
// may have changed, so the caller must obtain a fresh quote.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("remote: provider: %s", e.Message)
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsRejection reports whether err is a definite rejection, optionally of a
// specific code. An empty code matches any rejection.
func IsRejection(err error, code string) bool {
	var r *RejectionError
	if !errors.As(err, &r) {
		return false
	}
	return code == "" || r.Code == code
}
