package models

import "time"

// BookingEvent is the payload published to Kafka for downstream consumers
// (notifications, analytics) on booking lifecycle changes.
type BookingEvent struct {
	Type      string    `json:"type"` // e.g. "booking_paid", "booking_closed"
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	TrailerID string    `json:"trailer_id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"` // UTC event time
}
