package checkoutflow

import (
	"fmt"
	"time"

	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/recipient"
	"github.com/MarcGrol/flowershop/services/region"
)

// kept switched off until sender names become mandatory
const senderNameRequired = false

type Reason string

const (
	ReasonEmptyCart        Reason = "empty_cart"
	ReasonInvalidRecipient Reason = "invalid_recipient"
	ReasonSenderName       Reason = "sender_name_required"
	ReasonIdentity         Reason = "identity"
	ReasonTerms            Reason = "terms_not_accepted"
	ReasonNoOrder          Reason = "order_not_created"
	ReasonTerminal         Reason = "terminal"
)

// StepError explains why a forward transition was refused
type StepError struct {
	Step         checkoutmodel.Step         `json:"step"`
	Reason       Reason                     `json:"reason"`
	Message      string                     `json:"message"`
	Fields       map[recipient.Field]string `json:"fields,omitempty"`
	FirstInvalid recipient.Field            `json:"firstInvalid,omitempty"`
	Gate         *identity.GateResult       `json:"gate,omitempty"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cannot leave step %s: %s", e.Step, e.Message)
}

// Policies are the validators in effect for one evaluation
type Policies struct {
	Calendar  delivery.Calendar
	Regions   region.Policy
	Recipient recipient.Validator
}

// NewPolicies builds the policies from one snapshot of the remote configuration
func NewPolicies(now time.Time, offDays []string, settings region.Settings) Policies {
	calendar := delivery.NewCalendar(now, offDays)
	regions := region.NewPolicy(settings)
	return Policies{
		Calendar:  calendar,
		Regions:   regions,
		Recipient: recipient.NewValidator(calendar, regions),
	}
}

// Advance moves one step forward when the gate of the current step passes.
// The session passed in is never modified.
func Advance(s checkoutmodel.Session, policies Policies) (checkoutmodel.Session, error) {
	err := CheckLeave(s, policies)
	if err != nil {
		return s, err
	}

	next := s
	next.Step = s.Step.Next()
	if next.Step == checkoutmodel.StepPayment {
		next.PaymentEntries++
	}
	next.NavigationArmed = true

	return next, nil
}

// CheckLeave evaluates the gate of the current step without moving
func CheckLeave(s checkoutmodel.Session, policies Policies) *StepError {
	switch s.Step {
	case checkoutmodel.StepCart:
		if s.Cart.IsEmpty() {
			return &StepError{Step: s.Step, Reason: ReasonEmptyCart, Message: "Your cart is empty."}
		}

	case checkoutmodel.StepRecipient:
		result := policies.Recipient.Validate(s.Recipient)
		if !result.OK {
			return &StepError{
				Step:         s.Step,
				Reason:       ReasonInvalidRecipient,
				Message:      result.Errors[result.FirstInvalid],
				Fields:       result.Errors,
				FirstInvalid: result.FirstInvalid,
			}
		}

	case checkoutmodel.StepMessage:
		if senderNameRequired && s.Message.SenderName == "" {
			return &StepError{Step: s.Step, Reason: ReasonSenderName, Message: "Please enter the name of the sender."}
		}

	case checkoutmodel.StepPayment:
		err := CheckPaymentGate(s)
		if err != nil {
			return err
		}
		if s.OrderUID == "" {
			return &StepError{Step: s.Step, Reason: ReasonNoOrder, Message: "The order has not been created yet."}
		}

	case checkoutmodel.StepSuccess:
		return &StepError{Step: s.Step, Reason: ReasonTerminal, Message: "Checkout is already completed."}
	}

	return nil
}

// CheckPaymentGate is the part of the payment gate that holds before an order exists
func CheckPaymentGate(s checkoutmodel.Session) *StepError {
	gate := identity.CheckGate(s.Identity, s.Member)
	if !gate.Open {
		return &StepError{Step: checkoutmodel.StepPayment, Reason: ReasonIdentity, Message: gate.Message, Gate: &gate}
	}
	if !s.TermsAccepted {
		return &StepError{Step: checkoutmodel.StepPayment, Reason: ReasonTerms, Message: "Please accept the terms and conditions."}
	}
	return nil
}

// Back always succeeds; on the first step and after success it is a no-op
func Back(s checkoutmodel.Session) checkoutmodel.Session {
	if s.Step == checkoutmodel.StepSuccess {
		return s
	}
	prev := s
	prev.Step = s.Step.Previous()
	prev.NavigationArmed = prev.Step != checkoutmodel.StepCart
	return prev
}

// EnterPayment jumps to the payment step, used when resuming an interrupted payment
func EnterPayment(s checkoutmodel.Session) checkoutmodel.Session {
	next := s
	if next.Step != checkoutmodel.StepPayment {
		next.PaymentEntries++
	}
	next.Step = checkoutmodel.StepPayment
	next.NavigationArmed = true
	return next
}

// Complete is the terminal transition, taken once the order exists and payment is settled
func Complete(s checkoutmodel.Session) checkoutmodel.Session {
	next := s
	next.Step = checkoutmodel.StepSuccess
	next.NavigationArmed = false
	next.Payment.Processing = false
	return next
}

// EnteredPayment tells whether a transition entered the payment step
func EnteredPayment(before, after checkoutmodel.Session) bool {
	return after.Step == checkoutmodel.StepPayment && after.PaymentEntries > before.PaymentEntries
}
