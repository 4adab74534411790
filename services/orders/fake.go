package orders

import (
	"context"
	"fmt"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/lib/myuuid"
)

const maxQuantityPerItem = 20

// FakeService behaves like the order service and is used when none is configured
type FakeService struct {
	store  mystore.Store[Order]
	nower  mytime.Nower
	uuider myuuid.UUIDer
}

func NewFakeService(store mystore.Store[Order], nower mytime.Nower, uuider myuuid.UUIDer) *FakeService {
	return &FakeService{
		store:  store,
		nower:  nower,
		uuider: uuider,
	}
}

func (s *FakeService) Create(c context.Context, request CreateRequest) (Order, error) {
	if request.Cart.IsEmpty() {
		return Order{}, myerrors.NewUnprocessableError(fmt.Errorf("%w: cart is empty", ErrOrderRejected))
	}
	// the real service checks stock, this mimics its answer for large quantities
	for _, item := range request.Cart.Items {
		if item.Quantity > maxQuantityPerItem {
			return Order{}, myerrors.NewUnprocessableError(fmt.Errorf("%w: insufficient stock for %s", ErrOrderRejected, item.ProductUID))
		}
	}

	now := s.nower.Now()
	order := Order{}
	err := s.store.RunInTransaction(c, func(c context.Context) error {
		existing, err := s.store.List(c)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		order = Order{
			UID:           s.uuider.Create(),
			OrderNumber:   fmt.Sprintf("FS-%s-%05d", now.Format("20060102"), len(existing)+1),
			Status:        StatusPending,
			SessionUID:    request.SessionUID,
			PaymentMethod: request.PaymentMethod,
			Items:         request.Cart.Items,
			TotalInCents:  request.Cart.TotalInCents(),
			Currency:      request.Cart.Currency,
			CreatedAt:     now,
		}
		return s.store.Put(c, order.UID, order)
	})
	if err != nil {
		return Order{}, err
	}

	return order, nil
}

func (s *FakeService) Get(c context.Context, orderUID string) (Order, error) {
	order, found, err := s.store.Get(c, orderUID)
	if err != nil {
		return Order{}, myerrors.NewInternalError(err)
	}
	if !found {
		return Order{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrOrderNotFound, orderUID))
	}
	return order, nil
}

func (s *FakeService) MarkAwaitingPayment(c context.Context, orderUID string) error {
	return s.update(c, orderUID, func(order *Order) error {
		if order.Status != StatusPending && order.Status != StatusAwaitingPayment {
			return myerrors.NewConflictError(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, StatusAwaitingPayment))
		}
		order.Status = StatusAwaitingPayment
		return nil
	})
}

// MarkPaid plays the part of the payment provider notifying the order service
func (s *FakeService) MarkPaid(c context.Context, orderUID string) error {
	return s.update(c, orderUID, func(order *Order) error {
		if order.Status != StatusPending && order.Status != StatusPaid {
			return myerrors.NewConflictError(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, StatusPaid))
		}
		order.Status = StatusPaid
		return nil
	})
}

func (s *FakeService) ReportReminderAction(c context.Context, orderUID string, action ReminderAction) error {
	return s.update(c, orderUID, func(order *Order) error {
		switch action {
		case ReminderShown:
			order.Reminders.Shown++
		case ReminderResume:
			order.Reminders.Resumed++
		case ReminderDismiss:
			order.Reminders.Dismissed++
		default:
			return myerrors.NewInvalidInputError(fmt.Errorf("%w: %s", ErrUnknownReminderAct, action))
		}
		return nil
	})
}

func (s *FakeService) update(c context.Context, orderUID string, modify func(order *Order) error) error {
	now := s.nower.Now()
	return s.store.RunInTransaction(c, func(c context.Context) error {
		order, err := s.Get(c, orderUID)
		if err != nil {
			return err
		}
		err = modify(&order)
		if err != nil {
			return err
		}
		order.LastModified = &now
		return s.store.Put(c, order.UID, order)
	})
}
