package checkout

import (
	"context"
	"fmt"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/myevents"
	"github.com/MarcGrol/flowershop/services/checkoutevents"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/payment"
)

func (s *service) day() string {
	return delivery.FormatDate(delivery.DateOf(s.nower.Now()))
}

func (s *service) publish(c context.Context, event myevents.Event) error {
	err := s.publisher.Publish(c, checkoutevents.TopicName, event)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error publishing event %s: %s", event.GetEventTypeName(), err))
	}
	return nil
}

func (s *service) publishCheckoutStarted(c context.Context, session checkoutmodel.Session) error {
	return s.publish(c, checkoutevents.CheckoutStarted{
		CheckoutUID:    session.UID,
		PaymentEntries: session.PaymentEntries,
		AmountInCents:  session.Cart.TotalInCents(),
		Currency:       session.Cart.Currency,
		IdentityKind:   string(session.Identity.Kind),
		Day:            s.day(),
	})
}

// publishPaymentDispatched reports a started card payment, or the completed bank-transfer checkout
func (s *service) publishPaymentDispatched(c context.Context, result payment.Result) error {
	if result.Redirect != nil {
		return s.publish(c, checkoutevents.PaymentAttemptStarted{
			CheckoutUID:  result.Session.UID,
			OrderUID:     result.Order.UID,
			OrderNumber:  result.Order.OrderNumber,
			ProviderName: result.Redirect.Provider,
			PaymentID:    result.Redirect.PaymentID,
			Day:          s.day(),
		})
	}
	return s.publish(c, checkoutevents.CheckoutCompleted{
		CheckoutUID:    result.Session.UID,
		OrderUID:       result.Order.UID,
		OrderNumber:    result.Order.OrderNumber,
		PaymentMethod:  string(result.Session.Payment.Method),
		CheckoutStatus: checkoutevents.CheckoutStatusAwaitingPayment,
		Success:        true,
		Day:            s.day(),
	})
}

func (s *service) publishPaymentReturned(c context.Context, session checkoutmodel.Session) error {
	status := checkoutevents.CheckoutStatusFailed
	if session.Step == checkoutmodel.StepSuccess {
		status = checkoutevents.CheckoutStatusSuccess
	}
	return s.publish(c, checkoutevents.CheckoutCompleted{
		CheckoutUID:    session.UID,
		OrderUID:       session.OrderUID,
		PaymentMethod:  string(session.Payment.Method),
		CheckoutStatus: status,
		Success:        status == checkoutevents.CheckoutStatusSuccess,
		Day:            s.day(),
	})
}
