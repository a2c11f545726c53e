package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rental-service/models"
)

// ErrUnavailable wraps transport failures and timeouts. The outcome of the
// attempted operation is unknown, not failed: callers must reconcile via
// QueryStatus before re-issuing a non-idempotent create.
var ErrUnavailable = errors.New("gateway: unavailable")

// ErrRejected is returned when the provider explicitly refuses an operation
// (4xx on capture/cancel, e.g. hold already resolved).
var ErrRejected = errors.New("gateway: operation rejected")

// Status is the provider's status vocabulary as delivered by webhooks and
// QueryStatus.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// AuthorizeResult is the provider's answer to a charge or hold creation.
type AuthorizeResult struct {
	GatewayPaymentID string `json:"payment_id"`
	RedirectURL      string `json:"redirect_url"`
}

// Client talks to the payment provider. Every request carries a token signed
// per SignFields; all calls are idempotent at the orderID level on the
// provider side.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Authorize creates a rental charge (direct) or a deposit hold (funds
// reserved, not captured) for orderID.
func (c *Client) Authorize(ctx context.Context, orderID string, amount int64, kind models.PaymentKind, customerKey string) (*AuthorizeResult, error) {
	path := "/v1/charges"
	if kind == models.PaymentDepositHold {
		path = "/v1/holds"
	}

	fields := map[string]string{
		"order_id":     orderID,
		"amount":       strconv.FormatInt(amount, 10),
		"customer_key": customerKey,
	}

	body := map[string]string{
		"order_id":     orderID,
		"amount":       fields["amount"],
		"customer_key": customerKey,
		"token":        SignFields(fields, c.secret),
	}

	var result AuthorizeResult
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Capture confirms a hold for amount. Depending on direction this either
// retains funds for the merchant or, for a partial settlement, retains the
// damage share while the provider releases the remainder.
func (c *Client) Capture(ctx context.Context, gatewayPaymentID string, amount int64) error {
	fields := map[string]string{
		"payment_id": gatewayPaymentID,
		"amount":     strconv.FormatInt(amount, 10),
	}
	body := map[string]string{
		"amount": fields["amount"],
		"token":  SignFields(fields, c.secret),
	}
	return c.post(ctx, "/v1/holds/"+gatewayPaymentID+"/capture", body, nil)
}

// Cancel voids a hold entirely, returning the full reserved amount.
func (c *Client) Cancel(ctx context.Context, gatewayPaymentID string) error {
	fields := map[string]string{"payment_id": gatewayPaymentID}
	body := map[string]string{
		"token": SignFields(fields, c.secret),
	}
	return c.post(ctx, "/v1/holds/"+gatewayPaymentID+"/cancel", body, nil)
}

// QueryStatus is the poll fallback when webhook delivery is in doubt.
func (c *Client) QueryStatus(ctx context.Context, gatewayPaymentID string) (Status, error) {
	fields := map[string]string{"payment_id": gatewayPaymentID}
	url := fmt.Sprintf("%s/v1/payments/%s?token=%s", c.baseURL, gatewayPaymentID, SignFields(fields, c.secret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("query status for %s: %w", gatewayPaymentID, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("query status for %s returned %d: %w", gatewayPaymentID, resp.StatusCode, ErrRejected)
	}

	var out struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// ReturnToCustomer resolves a hold fully in the customer's favor by voiding
// it. Named to keep the refund direction explicit at call sites.
func (c *Client) ReturnToCustomer(ctx context.Context, holdID string) error {
	return c.Cancel(ctx, holdID)
}

// RetainForMerchant captures amount from a hold. The provider releases any
// uncaptured remainder back to the customer, so a partial capture expresses
// "retain the damage share, return the rest".
func (c *Client) RetainForMerchant(ctx context.Context, holdID string, amount int64) error {
	return c.Capture(ctx, holdID, amount)
}

// VerifyWebhook re-runs the signing algorithm over a callback's fields and
// compares against its token.
func (c *Client) VerifyWebhook(p WebhookPayload) bool {
	return VerifyToken(p.SignedFields(), c.secret, p.Token)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s returned %d: %w", path, resp.StatusCode, ErrUnavailable)
	default:
		return fmt.Errorf("%s returned %d: %w", path, resp.StatusCode, ErrRejected)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
