package gateway

import "strconv"

// WebhookPayload is the provider's callback body. The token is computed over
// the other fields with the shared secret per SignFields.
type WebhookPayload struct {
	GatewayPaymentID string `json:"payment_id" binding:"required"`
	OrderID          string `json:"order_id" binding:"required"`
	Status           Status `json:"status" binding:"required"`
	Amount           int64  `json:"amount"`
	Token            string `json:"token" binding:"required"`
}

// SignedFields returns the canonical field set the token covers. Any tampered
// field changes the digest and fails verification.
func (p WebhookPayload) SignedFields() map[string]string {
	return map[string]string{
		"payment_id": p.GatewayPaymentID,
		"order_id":   p.OrderID,
		"status":     string(p.Status),
		"amount":     strconv.FormatInt(p.Amount, 10),
	}
}
