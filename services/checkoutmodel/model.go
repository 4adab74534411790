package checkoutmodel

import (
	"time"

	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/recipient"
)

type Step string

const (
	StepCart      Step = "cart"
	StepRecipient Step = "recipient"
	StepMessage   Step = "message"
	StepPayment   Step = "payment"
	StepSuccess   Step = "success"
)

var stepOrder = []Step{StepCart, StepRecipient, StepMessage, StepPayment, StepSuccess}

func (s Step) index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return 0
}

func (s Step) Next() Step {
	idx := s.index()
	if idx >= len(stepOrder)-1 {
		return s
	}
	return stepOrder[idx+1]
}

func (s Step) Previous() Step {
	idx := s.index()
	if idx == 0 {
		return s
	}
	return stepOrder[idx-1]
}

type CartItem struct {
	ProductUID       string `json:"productUID" form:"productUID"`
	Name             string `json:"name" form:"name"`
	Quantity         int    `json:"quantity" form:"quantity"`
	UnitPriceInCents int64  `json:"unitPriceInCents" form:"unitPriceInCents"`
}

type Cart struct {
	Items    []CartItem `json:"items" form:"items"`
	Currency string     `json:"currency" form:"currency"`
}

func (c Cart) IsEmpty() bool {
	for _, item := range c.Items {
		if item.Quantity > 0 {
			return false
		}
	}
	return true
}

func (c Cart) TotalInCents() int64 {
	total := int64(0)
	for _, item := range c.Items {
		total += int64(item.Quantity) * item.UnitPriceInCents
	}
	return total
}

type Message struct {
	Text       string `json:"text" form:"text"`
	SenderName string `json:"senderName" form:"senderName"`
}

type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) IsValid() bool {
	return m == MethodCreditCard || m == MethodBankTransfer
}

type PaymentSelection struct {
	Method     PaymentMethod `json:"method"`
	Processing bool          `json:"processing"`
}

// Session is the single source of truth of one checkout
type Session struct {
	UID           string                `json:"uid"`
	Step          Step                  `json:"step"`
	Cart          Cart                  `json:"cart"`
	Recipient     recipient.Details     `json:"recipient"`
	Message       Message               `json:"message"`
	Identity      identity.Identity     `json:"identity"`
	Member        *identity.AuthSession `json:"-"`
	Payment       PaymentSelection      `json:"payment"`
	TermsAccepted bool                  `json:"termsAccepted"`
	// OrderUID is the order of the current payment attempt, a retry re-uses it
	OrderUID string `json:"orderUID,omitempty"`
	// OrderFingerprint identifies what OrderUID was created from
	OrderFingerprint string `json:"orderFingerprint,omitempty"`
	// PaymentEntries counts how often the payment step was entered
	PaymentEntries  int        `json:"paymentEntries"`
	NavigationArmed bool       `json:"navigationArmed"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastModified    *time.Time `json:"lastModified,omitempty"`
}

// AbandonmentMarker proves a payment attempt was started but never confirmed
type AbandonmentMarker struct {
	StartedAt     time.Time     `json:"startedAt"`
	OrderUID      string        `json:"orderUID"`
	OrderNumber   string        `json:"orderNumber"`
	PaymentID     string        `json:"paymentID,omitempty"`
	Method        PaymentMethod `json:"method"`
	ShownReported bool          `json:"shownReported"`
}

type OrderSummary struct {
	OrderUID     string     `json:"orderUID"`
	OrderNumber  string     `json:"orderNumber"`
	Status       string     `json:"status"`
	Items        []CartItem `json:"items"`
	TotalInCents int64      `json:"totalInCents"`
	Currency     string     `json:"currency"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type OutcomeStatus string

const (
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomePending OutcomeStatus = "pending"
)

// PaymentOutcome is the result of the last terminal payment attempt, shown once
type PaymentOutcome struct {
	Status   OutcomeStatus `json:"status"`
	Message  string        `json:"message"`
	OrderUID string        `json:"orderUID"`
	At       time.Time     `json:"at"`
}
