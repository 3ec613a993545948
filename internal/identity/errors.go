package identity

import (
	"errors"
	"fmt"
)

// Kind classifies why verification failed. All kinds are equivalent to the
// roll transaction; the distinction exists for logs and metrics.
type Kind string

const (
	KindUnavailable Kind = "provider_unavailable"
	KindRejected    Kind = "ticket_rejected"
	KindMismatch    Kind = "identity_mismatch"
)

var (
	ErrProviderUnavailable = errors.New("identity provider unreachable")
	ErrTicketRejected      = errors.New("identity provider rejected assertion")
	ErrIdentityMismatch    = errors.New("verified identity does not match claim")
)

// VerificationError is returned by every Verifier on failure.
type VerificationError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *VerificationError) Error() string {
	msg := e.sentinel().Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *VerificationError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *VerificationError) sentinel() error {
	switch e.Kind {
	case KindUnavailable:
		return ErrProviderUnavailable
	case KindMismatch:
		return ErrIdentityMismatch
	default:
		return ErrTicketRejected
	}
}

// KindOf returns the failure kind carried by err, or KindRejected when err is
// not a VerificationError.
func KindOf(err error) Kind {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return KindRejected
}

func unavailable(err error) error {
	return &VerificationError{Kind: KindUnavailable, Err: err}
}

func rejected(format string, args ...any) error {
	return &VerificationError{Kind: KindRejected, Detail: fmt.Sprintf(format, args...)}
}

// matchIdentity compares the provider's identity with the claim byte for byte.
func matchIdentity(claimed, verified string) (string, error) {
	if verified == "" {
		return "", rejected("provider response has no identity")
	}
	if verified != claimed {
		return "", &VerificationError{
			Kind:   KindMismatch,
			Detail: fmt.Sprintf("claimed %q, provider returned %q", claimed, verified),
		}
	}
	return verified, nil
}
