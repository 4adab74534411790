package orders

import (
	"context"
	"errors"
	"time"

	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/recipient"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderRejected      = errors.New("order rejected")
	ErrInvalidTransition  = errors.New("order status cannot change")
	ErrUnknownReminderAct = errors.New("unknown reminder action")
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
)

type ReminderAction string

const (
	ReminderShown   ReminderAction = "shown"
	ReminderResume  ReminderAction = "resume"
	ReminderDismiss ReminderAction = "dismiss"
)

func (a ReminderAction) IsValid() bool {
	return a == ReminderShown || a == ReminderResume || a == ReminderDismiss
}

type Customer struct {
	CustomerUID string `json:"customerUID,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Guest       bool   `json:"guest"`
}

type CreateRequest struct {
	SessionUID    string                      `json:"sessionUID"`
	Cart          checkoutmodel.Cart          `json:"cart"`
	Recipient     recipient.Details           `json:"recipient"`
	Message       checkoutmodel.Message       `json:"message"`
	Customer      Customer                    `json:"customer"`
	PaymentMethod checkoutmodel.PaymentMethod `json:"paymentMethod"`
}

type ReminderCounters struct {
	Shown     int `json:"shown"`
	Resumed   int `json:"resumed"`
	Dismissed int `json:"dismissed"`
}

// Order is owned by the order service, checkout only reads it
type Order struct {
	UID           string                      `json:"id"`
	OrderNumber   string                      `json:"orderNumber"`
	Status        Status                      `json:"status"`
	SessionUID    string                      `json:"sessionUID"`
	PaymentMethod checkoutmodel.PaymentMethod `json:"paymentMethod"`
	Items         []checkoutmodel.CartItem    `json:"items"`
	TotalInCents  int64                       `json:"totalInCents"`
	Currency      string                      `json:"currency"`
	CreatedAt     time.Time                   `json:"createdAt"`
	LastModified  *time.Time                  `json:"lastModified,omitempty"`
	Reminders     ReminderCounters            `json:"reminders"`
}

// Service is the external order service. Create is not idempotent.
//
//go:generate mockgen -source=api.go -package orders -destination service_mock.go Service
type Service interface {
	Create(c context.Context, request CreateRequest) (Order, error)
	Get(c context.Context, orderUID string) (Order, error)
	MarkAwaitingPayment(c context.Context, orderUID string) error
	ReportReminderAction(c context.Context, orderUID string, action ReminderAction) error
}
