package gateway

import (
	"fmt"
	"math"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
)

// Status is the normalized gateway verification state.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusPending    Status = "pending"
	StatusNotFound   Status = "not_found"
)

// VerifyResult is the normalized outcome of a verify-by-reference call.
type VerifyResult struct {
	Status    Status  `json:"status"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// SessionRequest describes a hosted payment session to create.
type SessionRequest struct {
	Amount        float64
	Currency      string
	CustomerEmail string
	Receipt       string
	CallbackURL   string
	Description   string
	Notes         map[string]interface{}
}

// Session is a created hosted payment session. Reference is the gateway's
// link id; it becomes the transaction's external reference.
type Session struct {
	Reference   string `json:"reference"`
	PaymentLink string `json:"payment_link"`
}

// Client is the boundary to the external payment gateway.
type Client interface {
	CreateSession(req SessionRequest) (*Session, error)
	VerifyReference(reference string) (*VerifyResult, error)
	Transfer(account string, amount float64, currency string) error
}

// paymentLinkAPI and transferAPI mirror the SDK resource signatures so the
// HTTP layer can be stubbed in tests.
type paymentLinkAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(paymentLinkID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type transferAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayClient struct {
	links     paymentLinkAPI
	transfers transferAPI
	retry     RetryConfig
}

// NewClient builds a gateway client backed by Razorpay payment links.
func NewClient(key, secret string) Client {
	rz := razorpay.NewClient(key, secret)
	return &razorpayClient{
		links:     rz.PaymentLink,
		transfers: rz.Transfer,
		retry:     DefaultRetryConfig(),
	}
}

// CreateSession creates a hosted payment link for the given amount.
func (c *razorpayClient) CreateSession(req SessionRequest) (*Session, error) {
	// Gateway expects the amount in the smallest currency unit
	data := map[string]interface{}{
		"amount":       smallestUnit(req.Amount),
		"currency":     req.Currency,
		"reference_id": req.Receipt,
		"description":  req.Description,
		"customer": map[string]interface{}{
			"email": req.CustomerEmail,
		},
	}
	if req.CallbackURL != "" {
		data["callback_url"] = req.CallbackURL
		data["callback_method"] = "get"
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	link, err := c.links.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment link: %w", err)
	}

	return &Session{
		Reference:   fmt.Sprintf("%v", link["id"]),
		PaymentLink: fmt.Sprintf("%v", link["short_url"]),
	}, nil
}

// VerifyReference resolves a reference to a normalized status with bounded
// retry. The gateway may not have the link indexed immediately or may still
// report it pending, so pending and not_found are retried; successful and
// failed return at once. After the budget is exhausted the last observed
// state is surfaced.
func (c *razorpayClient) VerifyReference(reference string) (*VerifyResult, error) {
	var (
		result  *VerifyResult
		lastErr error
	)
	_ = Retry(c.retry, func(attempt int) (bool, error) {
		res, err := c.verifyOnce(reference)
		if err != nil {
			lastErr = err
			return false, nil
		}
		lastErr = nil
		result = res
		return res.Status == StatusSuccessful || res.Status == StatusFailed, nil
	})
	if result == nil {
		return nil, fmt.Errorf("gateway verification failed for %s: %w", reference, lastErr)
	}
	return result, nil
}

func (c *razorpayClient) verifyOnce(reference string) (*VerifyResult, error) {
	link, err := c.links.Fetch(reference, nil, nil)
	if err != nil {
		if isNotFoundErr(err) {
			return &VerifyResult{Status: StatusNotFound, Reference: reference}, nil
		}
		return nil, err
	}

	result := &VerifyResult{
		Reference: reference,
		Currency:  fmt.Sprintf("%v", link["currency"]),
	}
	if amount, ok := link["amount"].(float64); ok {
		result.Amount = amount / 100
	}

	switch fmt.Sprintf("%v", link["status"]) {
	case "paid":
		result.Status = StatusSuccessful
	case "cancelled", "expired":
		result.Status = StatusFailed
	default: // created, partially_paid
		result.Status = StatusPending
	}
	return result, nil
}

// Transfer pushes a payout to the given linked account and reports the
// outcome synchronously.
func (c *razorpayClient) Transfer(account string, amount float64, currency string) error {
	data := map[string]interface{}{
		"account":  account,
		"amount":   smallestUnit(amount),
		"currency": currency,
	}
	if _, err := c.transfers.Create(data, nil); err != nil {
		return fmt.Errorf("transfer to %s failed: %w", account, err)
	}
	return nil
}

// smallestUnit converts a fiat amount to the gateway's integer subunit.
// Rounding, not truncation: float noise on amounts like 2099.99 would
// otherwise bill one paise short of what the ledger records.
func smallestUnit(amount float64) int {
	return int(math.Round(amount * 100))
}

func isNotFoundErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}
