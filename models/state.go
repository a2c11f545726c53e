package models

// bookingTransitions encodes the booking lifecycle:
// PENDING_PAYMENT → PAID → ACTIVE → RETURNED → CLOSED, with CANCELLED
// reachable from the two pre-ACTIVE states. No transition may skip a state.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPendingPayment: {BookingPaid, BookingCancelled},
	BookingPaid:           {BookingActive, BookingCancelled},
	BookingActive:         {BookingReturned},
	BookingReturned:       {BookingClosed},
}

// CanTransition reports whether from → to is a legal booking transition.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a booking status accepts no further transitions.
func IsTerminal(s BookingStatus) bool {
	return s == BookingClosed || s == BookingCancelled
}
