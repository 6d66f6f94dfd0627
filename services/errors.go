package services

import (
	"errors"
	"fmt"

	"github.com/olamide-dev/tunepurse/gateway"
)

// ErrNotFound marks an unknown transaction, subscription or reference.
var ErrNotFound = errors.New("record not found")

// ValidationError reports a bad request before any state is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InsufficientFundsError is raised under lock when a balance cannot cover the
// requested amount. No partial mutation is ever committed alongside it.
type InsufficientFundsError struct {
	Required  float64
	Available float64
	Currency  string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %.2f %s, available %.2f %s",
		e.Required, e.Currency, e.Available, e.Currency)
}

// GatewayVerificationError is returned when the gateway reports a
// non-successful status after retries. The owning row has already been moved
// to its failed terminal state by the time this is surfaced.
type GatewayVerificationError struct {
	Reference string
	Status    gateway.Status
}

func (e *GatewayVerificationError) Error() string {
	return fmt.Sprintf("gateway verification failed for %s: %s", e.Reference, e.Status)
}
