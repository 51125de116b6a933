package service

import "errors"

var (
	// ErrInvalidSignature means the webhook payload failed signature
	// verification and must not be processed or retried.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrUnknownPlan means a billing event referenced a plan with no grant
	// mapping. The event fails so the provider redelivers after the mapping
	// is fixed.
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrTokenNotUsable covers a redemption against a token that is missing,
	// exhausted, or expired.
	ErrTokenNotUsable = errors.New("token not usable")

	// ErrGuestForbidden marks actions unavailable to guest sessions.
	ErrGuestForbidden = errors.New("guests cannot perform this action")
)
