package payment

import (
	"context"
	"fmt"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/paymentapi"
)

// Offer looks for an interrupted payment when a session is loaded.
// "shown" is reported once per marker, later loads return the marker silently.
func (d *Dispatcher) Offer(c context.Context, sessionUID string) (*checkoutmodel.AbandonmentMarker, error) {
	marker, found, err := d.persistence.LoadMarker(c, sessionUID)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching abandonment marker: %s", err))
	}
	if !found {
		return nil, nil
	}

	if !marker.ShownReported {
		marker.ShownReported = true
		err = d.persistence.SaveMarker(c, sessionUID, marker)
		if err != nil {
			return nil, myerrors.NewInternalError(fmt.Errorf("error storing abandonment marker: %s", err))
		}
		d.report(c, sessionUID, marker.OrderUID, orders.ReminderShown)
	}

	return &marker, nil
}

// Resume re-enters the payment step for the interrupted attempt and forgets the marker
func (d *Dispatcher) Resume(c context.Context, s checkoutmodel.Session) (checkoutmodel.Session, error) {
	marker, err := d.requireMarker(c, s.UID)
	if err != nil {
		return s, err
	}

	err = d.persistence.ClearMarker(c, s.UID)
	if err != nil {
		return s, myerrors.NewInternalError(fmt.Errorf("error clearing abandonment marker: %s", err))
	}
	d.report(c, s.UID, marker.OrderUID, orders.ReminderResume)

	resumed := checkoutflow.EnterPayment(s)
	resumed.OrderUID = marker.OrderUID
	resumed.Payment.Processing = false
	return resumed, nil
}

// Dismiss forgets the marker, the cart stays as it is
func (d *Dispatcher) Dismiss(c context.Context, s checkoutmodel.Session) (checkoutmodel.Session, error) {
	marker, err := d.requireMarker(c, s.UID)
	if err != nil {
		return s, err
	}

	err = d.persistence.ClearMarker(c, s.UID)
	if err != nil {
		return s, myerrors.NewInternalError(fmt.Errorf("error clearing abandonment marker: %s", err))
	}
	d.report(c, s.UID, marker.OrderUID, orders.ReminderDismiss)

	s.Payment.Processing = false
	return s, nil
}

// HandleReturn processes the redirect back from the 3-D Secure page.
// Only a session waiting on its own marker is accepted, success requires the order to be paid.
func (d *Dispatcher) HandleReturn(c context.Context, s checkoutmodel.Session, status string) (checkoutmodel.Session, error) {
	if s.Step == checkoutmodel.StepSuccess {
		return s, nil
	}
	if s.Step != checkoutmodel.StepPayment || s.OrderUID == "" {
		return s, myerrors.NewConflictError(fmt.Errorf("%w: checkout %s is at step %s", ErrNoPaymentAttempt, s.UID, s.Step))
	}
	marker, err := d.requireMarker(c, s.UID)
	if err != nil {
		return s, err
	}
	if marker.OrderUID != s.OrderUID {
		return s, myerrors.NewConflictError(fmt.Errorf("%w: marker is for order %s, checkout has %s", ErrNoPaymentAttempt, marker.OrderUID, s.OrderUID))
	}

	if !paymentapi.IsSuccess(status) {
		d.logger.Log(c, s.UID, mylog.SeverityInfo, "Payment for order %s not completed (%s)", s.OrderUID, status)
		return d.notCompleted(c, s, checkoutmodel.OutcomeFailed,
			"Your payment was not completed. You can try again or choose another payment method.")
	}

	stepErr := checkoutflow.CheckPaymentGate(s)
	if stepErr != nil {
		return s, myerrors.NewUnprocessableError(stepErr)
	}

	order, err := d.orders.Get(c, s.OrderUID)
	if err != nil {
		return s, err
	}
	if order.Status != orders.StatusPaid {
		d.logger.Log(c, s.UID, mylog.SeverityWarn, "Return with success for order %s that is %s", order.OrderNumber, order.Status)
		return d.notCompleted(c, s, checkoutmodel.OutcomePending,
			"We have not received the confirmation of your payment yet.")
	}

	err = d.persistence.ClearMarker(c, s.UID)
	if err != nil {
		return s, myerrors.NewInternalError(fmt.Errorf("error clearing abandonment marker: %s", err))
	}
	err = d.persistence.Clear(c, s.UID)
	if err != nil {
		return s, myerrors.NewInternalError(fmt.Errorf("error clearing draft: %s", err))
	}
	d.logger.Log(c, s.UID, mylog.SeverityInfo, "Payment for order %s completed", order.OrderNumber)
	return checkoutflow.Complete(s), nil
}

// notCompleted keeps the marker so resume or dismiss is offered, the outcome is shown on the next load
func (d *Dispatcher) notCompleted(c context.Context, s checkoutmodel.Session, status checkoutmodel.OutcomeStatus, message string) (checkoutmodel.Session, error) {
	err := d.persistence.SaveOutcome(c, s.UID, checkoutmodel.PaymentOutcome{
		Status:   status,
		Message:  message,
		OrderUID: s.OrderUID,
		At:       d.nower.Now(),
	})
	if err != nil {
		return s, myerrors.NewInternalError(fmt.Errorf("error storing payment outcome: %s", err))
	}

	s.Payment.Processing = false
	return s, nil
}

func (d *Dispatcher) requireMarker(c context.Context, sessionUID string) (checkoutmodel.AbandonmentMarker, error) {
	marker, found, err := d.persistence.LoadMarker(c, sessionUID)
	if err != nil {
		return checkoutmodel.AbandonmentMarker{}, myerrors.NewInternalError(fmt.Errorf("error fetching abandonment marker: %s", err))
	}
	if !found {
		return checkoutmodel.AbandonmentMarker{}, myerrors.NewNotFoundError(ErrNoAbandonedPayment)
	}
	return marker, nil
}

// report never blocks the caller and never fails it, errors are only logged
func (d *Dispatcher) report(c context.Context, sessionUID string, orderUID string, action orders.ReminderAction) {
	d.reporting.Add(1)
	go func() {
		defer d.reporting.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c), reminderTimeout)
		defer cancel()

		err := d.orders.ReportReminderAction(ctx, orderUID, action)
		if err != nil {
			d.logger.Log(ctx, sessionUID, mylog.SeverityWarn, "Error reporting reminder action %s for order %s: %s", action, orderUID, err)
		}
	}()
}
