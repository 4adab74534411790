package funnel

import (
	"context"
	"fmt"

	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/services/checkoutevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, checkoutevents.TopicName, s.pushURL)
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) OnCheckoutStarted(c context.Context, topic string, event checkoutevents.CheckoutStarted) error {
	s.logger.Log(c, event.CheckoutUID, mylog.SeverityInfo, "Event: payment step entered (%d) for checkout %s", event.PaymentEntries, event.CheckoutUID)

	key := fmt.Sprintf("started:%s:%d", event.CheckoutUID, event.PaymentEntries)
	return s.count(c, event.Day, key, func(f *DailyFunnel) {
		f.PaymentStepEntries++
	})
}

func (s *service) OnPaymentAttemptStarted(c context.Context, topic string, event checkoutevents.PaymentAttemptStarted) error {
	s.logger.Log(c, event.CheckoutUID, mylog.SeverityInfo, "Event: payment attempt %s at %s for order %s", event.PaymentID, event.ProviderName, event.OrderNumber)

	key := fmt.Sprintf("attempt:%s:%s", event.CheckoutUID, event.PaymentID)
	return s.count(c, event.Day, key, func(f *DailyFunnel) {
		f.PaymentAttempts++
	})
}

func (s *service) OnCheckoutCompleted(c context.Context, topic string, event checkoutevents.CheckoutCompleted) error {
	s.logger.Log(c, event.CheckoutUID, mylog.SeverityInfo, "Event: checkout %s completed with %s", event.CheckoutUID, event.CheckoutStatus)

	key := fmt.Sprintf("completed:%s:%s:%s", event.CheckoutUID, event.OrderUID, event.CheckoutStatus)
	return s.count(c, event.Day, key, func(f *DailyFunnel) {
		switch event.CheckoutStatus {
		case checkoutevents.CheckoutStatusSuccess:
			f.Completed++
		case checkoutevents.CheckoutStatusAwaitingPayment:
			f.AwaitingBankTransfer++
		default:
			f.Failed++
		}
	})
}
