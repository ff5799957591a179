package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflicting state")

	// Store errors
	ErrInvalidExecContext = errors.New("invalid db execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrPersistence        = errors.New("persistence failed")

	// Panel / remote errors
	ErrAuth                 = errors.New("panel authentication failed")
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrAuth)
	ErrSecondFactorRequired = fmt.Errorf("%w: second factor required", ErrAuth)
	ErrSessionRejected      = errors.New("panel rejected session token")
	ErrRemoteUnavailable    = errors.New("remote service unavailable")
	ErrLoginThrottled       = fmt.Errorf("%w: login attempts throttled", ErrRemoteUnavailable)
	ErrMalformedResponse    = errors.New("malformed remote response")
	ErrNoServerAvailable    = errors.New("no server available")

	// Saga
	ErrRollbackFailed = errors.New("rollback failed")

	// Subscription / payment
	ErrTrialUnavailable   = fmt.Errorf("%w: trial already used", ErrConflict)
	ErrNotProvisioned     = errors.New("subscriber has no provisioned client")
	ErrPaymentNotVerified = errors.New("payment not verified")
	ErrSubscriberLocked   = fmt.Errorf("%w: subscriber operation in progress", ErrConflict)
)

// OpError decorates an error with the operation and server it happened on.
// Message never includes credentials or session tokens.
type OpError struct {
	Op     string
	Server string
	Err    error
}

func (e *OpError) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("%s (server %s): %v", e.Op, e.Server, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// WrapOp returns nil for a nil err.
func WrapOp(op, server string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Server: server, Err: err}
}

// IsRetryable reports whether the caller may retry with backoff.
// Auth failures are terminal; only transport-level unavailability qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}
