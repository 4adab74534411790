package paymentapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/orders"
)

var (
	ErrInitializationFailed = errors.New("payment could not be initialized")
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusCancel  = "cancel"
)

// Request asks a provider to prepare a 3-D Secure card payment for an existing order
type Request struct {
	SessionUID  string
	OrderUID    string
	OrderNumber string
	Cart        checkoutmodel.Cart
	Customer    orders.Customer
	// SuccessURL and FailureURL are where the provider sends the customer back to
	SuccessURL string
	FailureURL string
	Locale     string
}

// RedirectPayload is opaque to checkout: either a url to navigate to or a page to render
type RedirectPayload struct {
	Provider    string `json:"provider"`
	PaymentID   string `json:"paymentID"`
	RedirectURL string `json:"redirectURL,omitempty"`
	HTML        string `json:"html,omitempty"`
}

//go:generate mockgen -source=api.go -package paymentapi -destination initializer_mock.go Initializer
type Initializer interface {
	Initialize(c context.Context, request Request) (RedirectPayload, error)
}

// ReturnURL is the url of the endpoint that handles the return from the provider
func ReturnURL(hostname string, sessionUID string, status string) string {
	return fmt.Sprintf("%s/api/checkout/%s/payment/return/%s", hostname, sessionUID, status)
}

func IsSuccess(status string) bool {
	return status == StatusSuccess
}

func Description(request Request) string {
	return fmt.Sprintf("Flowers, order %s", request.OrderNumber)
}

// AsRecoverable maps a provider failure onto an error the customer can retry from the payment step
func AsRecoverable(provider string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %w", ErrInitializationFailed, provider, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return myerrors.NewUnavailableError(wrapped)
	}
	return myerrors.NewBadGatewayError(wrapped)
}
