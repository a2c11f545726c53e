package services

import (
	"context"

	"rental-service/gateway"
	"rental-service/models"
)

// GatewayAPI is the payment provider surface the pipeline drives. Satisfied
// by *gateway.Client; tests inject fakes.
type GatewayAPI interface {
	Authorize(ctx context.Context, orderID string, amount int64, kind models.PaymentKind, customerKey string) (*gateway.AuthorizeResult, error)
	Capture(ctx context.Context, gatewayPaymentID string, amount int64) error
	Cancel(ctx context.Context, gatewayPaymentID string) error
	QueryStatus(ctx context.Context, gatewayPaymentID string) (gateway.Status, error)
	ReturnToCustomer(ctx context.Context, holdID string) error
	RetainForMerchant(ctx context.Context, holdID string, amount int64) error
	VerifyWebhook(p gateway.WebhookPayload) bool
}

// EventPublisher pushes booking lifecycle events to Kafka. Best-effort: a nil
// publisher or a publish failure never fails the originating operation.
type EventPublisher interface {
	SendBookingEvent(event models.BookingEvent) error
}

// DamageAssessor compares a before/after photo pair for one trailer side and
// returns a verdict. The shipped implementation is a randomized placeholder;
// a real model or rules engine slots in without touching settlement logic.
type DamageAssessor interface {
	Assess(ctx context.Context, beforeRef, afterRef string) (models.DamageVerdict, error)
}
