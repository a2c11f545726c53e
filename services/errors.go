package services

import "errors"

var (
	// ErrSlotUnavailable means the requested window conflicts with an existing
	// non-terminal booking on the same trailer. Client must re-pick.
	ErrSlotUnavailable = errors.New("booking: slot unavailable")

	// ErrNotCancellable means the booking has passed the point where direct
	// cancellation is honored; resolution goes through the settlement path.
	ErrNotCancellable = errors.New("booking: no longer cancellable")

	// ErrInvalidTransition is a programming or data error: a state jump
	// outside the booking lifecycle was attempted. Logged loudly, never
	// silently coerced.
	ErrInvalidTransition = errors.New("booking: invalid state transition")

	// ErrBookingTerminal means the booking is CLOSED or CANCELLED and no
	// further pipeline activity is accepted for it.
	ErrBookingTerminal = errors.New("booking: already in a terminal state")

	// ErrPaymentNotAllowed means the booking is not in the state the requested
	// payment kind expects (rental charge wants PENDING_PAYMENT, deposit hold
	// wants PAID).
	ErrPaymentNotAllowed = errors.New("payment: booking not in a payable state")

	// ErrInvalidSignature rejects a webhook whose token does not match its
	// fields. No state changes; the provider will redeliver.
	ErrInvalidSignature = errors.New("webhook: invalid signature")

	// ErrUnknownPayment rejects a webhook naming a gateway payment id we have
	// no record of. Logged for the operator; the provider will retry.
	ErrUnknownPayment = errors.New("webhook: unknown payment")

	// ErrSettlementFailed means the gateway capture/release did not succeed.
	// The booking stays RETURNED and the refund row stays FAILED, eligible
	// for retry.
	ErrSettlementFailed = errors.New("settlement: gateway operation failed")

	// ErrForbidden means the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)
