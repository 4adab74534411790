package payment

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/draft"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/paymentapi"
	"github.com/MarcGrol/flowershop/services/storeconfig"
)

const reminderTimeout = 5 * time.Second

var (
	ErrSubmissionInFlight = errors.New("payment is already being submitted")
	ErrNoPaymentMethod    = errors.New("no valid payment method selected")
	ErrNoAbandonedPayment = errors.New("no interrupted payment")
	ErrNoPaymentAttempt   = errors.New("no payment attempt to return to")
)

// Result is what the customer sees after submitting the payment step
type Result struct {
	Session  checkoutmodel.Session       `json:"session"`
	Order    orders.Order                `json:"order"`
	Redirect *paymentapi.RedirectPayload `json:"redirect,omitempty"`
	Summary  *checkoutmodel.OrderSummary `json:"summary,omitempty"`
}

// Dispatcher turns a validated checkout into an order and, for cards, into a 3-D Secure redirect
type Dispatcher struct {
	orders      orders.Service
	initializer paymentapi.Initializer
	config      storeconfig.Provider
	persistence *draft.Persistence
	nower       mytime.Nower
	logger      mylog.Logger

	inFlightLock sync.Mutex
	inFlight     map[string]struct{}
	reporting    sync.WaitGroup
}

func NewDispatcher(orderService orders.Service, initializer paymentapi.Initializer, config storeconfig.Provider,
	persistence *draft.Persistence, nower mytime.Nower) *Dispatcher {
	return &Dispatcher{
		orders:      orderService,
		initializer: initializer,
		config:      config,
		persistence: persistence,
		nower:       nower,
		logger:      mylog.New("payment"),
		inFlight:    map[string]struct{}{},
	}
}

// Close waits for outstanding reminder reports
func (d *Dispatcher) Close() {
	d.reporting.Wait()
}

// Dispatch re-validates the checkout against fresh configuration, creates the order and branches on payment method.
// When payment initialization fails the returned session still carries the order so a retry can re-use it.
func (d *Dispatcher) Dispatch(c context.Context, s checkoutmodel.Session, hostname string) (Result, error) {
	if !d.acquire(s.UID) {
		return Result{Session: s}, myerrors.NewConflictError(ErrSubmissionInFlight)
	}
	defer d.release(s.UID)

	err := d.revalidate(c, s)
	if err != nil {
		return Result{Session: s}, err
	}

	order, fingerprint, err := d.orderFor(c, s)
	if err != nil {
		d.logger.Log(c, s.UID, mylog.SeverityWarn, "Order creation failed: %s", err)
		return Result{Session: s}, err
	}

	s.OrderUID = order.UID
	s.OrderFingerprint = fingerprint
	s.Payment.Processing = false

	switch s.Payment.Method {
	case checkoutmodel.MethodBankTransfer:
		return d.dispatchBankTransfer(c, s, order)
	default:
		return d.dispatchCreditCard(c, s, order, hostname)
	}
}

func (d *Dispatcher) acquire(sessionUID string) bool {
	d.inFlightLock.Lock()
	defer d.inFlightLock.Unlock()

	_, busy := d.inFlight[sessionUID]
	if busy {
		return false
	}
	d.inFlight[sessionUID] = struct{}{}
	return true
}

func (d *Dispatcher) release(sessionUID string) {
	d.inFlightLock.Lock()
	defer d.inFlightLock.Unlock()

	delete(d.inFlight, sessionUID)
}

// revalidate runs the payment gate and the recipient step again, region or date data may have changed since
func (d *Dispatcher) revalidate(c context.Context, s checkoutmodel.Session) error {
	if s.Step != checkoutmodel.StepPayment {
		return myerrors.NewUnprocessableError(fmt.Errorf("checkout is at step %s, not at payment", s.Step))
	}
	if s.Cart.IsEmpty() {
		return myerrors.NewUnprocessableError(&checkoutflow.StepError{
			Step:    checkoutmodel.StepCart,
			Reason:  checkoutflow.ReasonEmptyCart,
			Message: "Your cart is empty.",
		})
	}
	if !s.Payment.Method.IsValid() {
		return myerrors.NewUnprocessableError(ErrNoPaymentMethod)
	}

	stepErr := checkoutflow.CheckPaymentGate(s)
	if stepErr != nil {
		return myerrors.NewUnprocessableError(stepErr)
	}

	snapshot := d.config.Fetch(c)
	policies := checkoutflow.NewPolicies(d.nower.Now(), snapshot.OffDays, snapshot.RegionSettings)
	result := policies.Recipient.Validate(s.Recipient)
	if !result.OK {
		d.logger.Log(c, s.UID, mylog.SeverityInfo, "Recipient no longer valid at payment: %s", result.FirstInvalid)
		return myerrors.NewUnprocessableError(&checkoutflow.StepError{
			Step:         checkoutmodel.StepRecipient,
			Reason:       checkoutflow.ReasonInvalidRecipient,
			Message:      result.Errors[result.FirstInvalid],
			Fields:       result.Errors,
			FirstInvalid: result.FirstInvalid,
		})
	}

	return nil
}

// orderFor re-uses the pending order of an earlier failed attempt when nothing changed, otherwise creates a new one
func (d *Dispatcher) orderFor(c context.Context, s checkoutmodel.Session) (orders.Order, string, error) {
	request := CreateRequestOf(s)
	fingerprint, err := Fingerprint(request)
	if err != nil {
		return orders.Order{}, "", myerrors.NewInternalError(fmt.Errorf("error fingerprinting order: %s", err))
	}

	if s.OrderUID != "" && s.OrderFingerprint == fingerprint {
		existing, err := d.orders.Get(c, s.OrderUID)
		if err == nil && existing.Status == orders.StatusPending {
			d.logger.Log(c, s.UID, mylog.SeverityInfo, "Re-using pending order %s", existing.OrderNumber)
			return existing, fingerprint, nil
		}
	}

	order, err := d.orders.Create(c, request)
	if err != nil {
		return orders.Order{}, "", err
	}

	d.logger.Log(c, s.UID, mylog.SeverityInfo, "Created order %s (%s)", order.OrderNumber, order.UID)
	return order, fingerprint, nil
}

// CreateRequestOf is the snapshot of cart, recipient, message and identity the order is created from
func CreateRequestOf(s checkoutmodel.Session) orders.CreateRequest {
	return orders.CreateRequest{
		SessionUID:    s.UID,
		Cart:          s.Cart,
		Recipient:     s.Recipient,
		Message:       s.Message,
		Customer:      CustomerOf(s),
		PaymentMethod: s.Payment.Method,
	}
}

// Fingerprint changes whenever anything the order is created from changes
func Fingerprint(request orders.CreateRequest) (string, error) {
	asJSON, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(asJSON)

	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// dispatchBankTransfer leaves cart and draft alone so the confirmation can be shown again later
func (d *Dispatcher) dispatchBankTransfer(c context.Context, s checkoutmodel.Session, order orders.Order) (Result, error) {
	err := d.orders.MarkAwaitingPayment(c, order.UID)
	if err != nil {
		return Result{Session: s, Order: order}, err
	}
	order.Status = orders.StatusAwaitingPayment

	summary := SummaryOf(order)
	err = d.persistence.SaveOrderSummary(c, s.UID, summary)
	if err != nil {
		return Result{Session: s, Order: order}, myerrors.NewInternalError(fmt.Errorf("error storing order summary: %s", err))
	}

	return Result{
		Session: checkoutflow.Complete(s),
		Order:   order,
		Summary: &summary,
	}, nil
}

func (d *Dispatcher) dispatchCreditCard(c context.Context, s checkoutmodel.Session, order orders.Order, hostname string) (Result, error) {
	payload, err := d.initializer.Initialize(c, paymentapi.Request{
		SessionUID:  s.UID,
		OrderUID:    order.UID,
		OrderNumber: order.OrderNumber,
		Cart:        s.Cart,
		Customer:    CustomerOf(s),
		SuccessURL:  paymentapi.ReturnURL(hostname, s.UID, paymentapi.StatusSuccess),
		FailureURL:  paymentapi.ReturnURL(hostname, s.UID, paymentapi.StatusCancel),
	})
	if err != nil {
		if myerrors.GetHTTPStatus(err) == http.StatusInternalServerError {
			err = paymentapi.AsRecoverable("payment", err)
		}
		return Result{Session: s, Order: order}, err
	}

	// the marker must exist before the customer leaves for the 3-D Secure page
	err = d.persistence.SaveMarker(c, s.UID, checkoutmodel.AbandonmentMarker{
		StartedAt:   d.nower.Now(),
		OrderUID:    order.UID,
		OrderNumber: order.OrderNumber,
		PaymentID:   payload.PaymentID,
		Method:      s.Payment.Method,
	})
	if err != nil {
		return Result{Session: s, Order: order}, myerrors.NewInternalError(fmt.Errorf("error storing abandonment marker: %s", err))
	}

	s.Payment.Processing = true

	return Result{
		Session:  s,
		Order:    order,
		Redirect: &payload,
	}, nil
}

func CustomerOf(s checkoutmodel.Session) orders.Customer {
	if s.Member.IsAuthenticated() {
		return orders.Customer{
			CustomerUID: s.Member.CustomerUID,
			Email:       s.Member.Email,
			Phone:       s.Member.Phone,
		}
	}
	return orders.Customer{
		Email: s.Identity.Guest.Email,
		Phone: s.Identity.Guest.Phone,
		Guest: true,
	}
}

func SummaryOf(order orders.Order) checkoutmodel.OrderSummary {
	return checkoutmodel.OrderSummary{
		OrderUID:     order.UID,
		OrderNumber:  order.OrderNumber,
		Status:       string(order.Status),
		Items:        order.Items,
		TotalInCents: order.TotalInCents,
		Currency:     order.Currency,
		CreatedAt:    order.CreatedAt,
	}
}
