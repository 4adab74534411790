package payment

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/draft"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/paymentapi"
	"github.com/MarcGrol/flowershop/services/recipient"
	"github.com/MarcGrol/flowershop/services/region"
	"github.com/MarcGrol/flowershop/services/storeconfig"
)

const hostname = "http://localhost:8080"

var (
	cart = checkoutmodel.Cart{
		Currency: "TRY",
		Items:    []checkoutmodel.CartItem{{ProductUID: "roses", Name: "Red roses", Quantity: 1, UnitPriceInCents: 45000}},
	}
	createdOrder = orders.Order{
		UID:           "order-1",
		OrderNumber:   "FS-20230228-00001",
		Status:        orders.StatusPending,
		SessionUID:    "sess-1",
		Items:         cart.Items,
		TotalInCents:  45000,
		Currency:      "TRY",
		PaymentMethod: checkoutmodel.MethodCreditCard,
		CreatedAt:     mytime.ExampleTime,
	}
	redirect = paymentapi.RedirectPayload{Provider: "stripe", PaymentID: "cs_1", RedirectURL: "https://checkout.stripe.com/cs_1"}
)

func paymentSession(method checkoutmodel.PaymentMethod) checkoutmodel.Session {
	return checkoutmodel.Session{
		UID:  "sess-1",
		Step: checkoutmodel.StepPayment,
		Cart: cart,
		Recipient: recipient.Details{
			Name:           "Ayşe Yılmaz",
			Phone:          "5551234567",
			Province:       "İstanbul",
			District:       "Beşiktaş",
			Neighborhood:   "Levent",
			Street:         "Nispetiye Caddesi",
			BuildingNumber: "12",
			DeliveryDate:   "2023-03-01",
			DeliveryTime:   delivery.SlotEvening,
		},
		Identity:       identity.Identity{Kind: identity.KindGuest, Guest: identity.GuestContact{Email: "ayse@example.com", Phone: "5551234567"}},
		Payment:        checkoutmodel.PaymentSelection{Method: method},
		TermsAccepted:  true,
		PaymentEntries: 1,
	}
}

type fixture struct {
	sut         *Dispatcher
	orders      *orders.MockService
	initializer *paymentapi.MockInitializer
	config      *storeconfig.MockProvider
	persistence *draft.Persistence
}

func setup(t *testing.T) fixture {
	ctrl := gomock.NewController(t)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	store, _, _ := mystore.NewInMemoryStore[draft.Record](context.Background())
	persistence := draft.New(draft.NewStoreKeyValue(store, nower), nower)

	f := fixture{
		orders:      orders.NewMockService(ctrl),
		initializer: paymentapi.NewMockInitializer(ctrl),
		config:      storeconfig.NewMockProvider(ctrl),
		persistence: persistence,
	}
	f.sut = NewDispatcher(f.orders, f.initializer, f.config, persistence, nower)
	return f
}

func fingerprintOf(t *testing.T, s checkoutmodel.Session) string {
	fingerprint, err := Fingerprint(CreateRequestOf(s))
	assert.NoError(t, err)
	return fingerprint
}

func defaultConfig() storeconfig.Snapshot {
	return storeconfig.Snapshot{OffDays: []string{}, RegionSettings: region.DefaultSettings()}
}

func TestDispatchCreditCard(t *testing.T) {
	c := context.TODO()

	t.Run("marker is written before redirect", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req orders.CreateRequest) (orders.Order, error) {
				assert.Equal(t, "sess-1", req.SessionUID)
				assert.True(t, req.Customer.Guest)
				assert.Equal(t, "ayse@example.com", req.Customer.Email)
				return createdOrder, nil
			})
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req paymentapi.Request) (paymentapi.RedirectPayload, error) {
				assert.Equal(t, "order-1", req.OrderUID)
				assert.Equal(t, hostname+"/api/checkout/sess-1/payment/return/success", req.SuccessURL)
				assert.Equal(t, hostname+"/api/checkout/sess-1/payment/return/cancel", req.FailureURL)
				return redirect, nil
			})

		// when
		result, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)

		// then
		assert.NoError(t, err)
		assert.Equal(t, &redirect, result.Redirect)
		assert.Equal(t, "order-1", result.Session.OrderUID)
		assert.Equal(t, checkoutmodel.StepPayment, result.Session.Step)
		assert.True(t, result.Session.Payment.Processing)

		marker, found, err := f.persistence.LoadMarker(c, "sess-1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "order-1", marker.OrderUID)
		assert.Equal(t, "cs_1", marker.PaymentID)
	})

	t.Run("initialization failure keeps the order and writes no marker", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(createdOrder, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).
			Return(paymentapi.RedirectPayload{}, paymentapi.AsRecoverable("stripe", context.DeadlineExceeded))

		// when
		result, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)

		// then
		assert.Equal(t, http.StatusServiceUnavailable, myerrors.GetHTTPStatus(err))
		assert.Equal(t, checkoutmodel.StepPayment, result.Session.Step)
		assert.Equal(t, "order-1", result.Session.OrderUID)
		assert.False(t, result.Session.Payment.Processing)

		_, found, _ := f.persistence.LoadMarker(c, "sess-1")
		assert.False(t, found)
	})

	t.Run("retry re-uses the pending order", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodCreditCard)
		s.OrderUID = "order-1"
		s.OrderFingerprint = fingerprintOf(t, s)
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Get(gomock.Any(), "order-1").Return(createdOrder, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(redirect, nil)

		// when
		result, err := f.sut.Dispatch(c, s, hostname)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "order-1", result.Order.UID)
	})

	t.Run("changed cart creates a new order", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodCreditCard)
		s.OrderUID = "order-1"
		s.OrderFingerprint = fingerprintOf(t, s)
		s.Cart.Items = []checkoutmodel.CartItem{{ProductUID: "tulips", Quantity: 2, UnitPriceInCents: 10000}}
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(orders.Order{UID: "order-2", OrderNumber: "FS-20230228-00002"}, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(redirect, nil)

		// when
		result, err := f.sut.Dispatch(c, s, hostname)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "order-2", result.Session.OrderUID)
		assert.NotEqual(t, fingerprintOf(t, paymentSession(checkoutmodel.MethodCreditCard)), result.Session.OrderFingerprint)
	})

	t.Run("changed delivery address creates a new order", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodCreditCard)
		s.OrderUID = "order-1"
		s.OrderFingerprint = fingerprintOf(t, s)
		s.Recipient.District = "Kadıköy"
		s.Recipient.Neighborhood = "Moda"
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req orders.CreateRequest) (orders.Order, error) {
				assert.Equal(t, "Kadıköy", req.Recipient.District)
				return orders.Order{UID: "order-2", OrderNumber: "FS-20230228-00002"}, nil
			})
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(redirect, nil)

		// when
		result, err := f.sut.Dispatch(c, s, hostname)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "order-2", result.Order.UID)
		assert.Equal(t, fingerprintOf(t, s), result.Session.OrderFingerprint)
	})

	t.Run("changed message creates a new order", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodCreditCard)
		s.OrderUID = "order-1"
		s.OrderFingerprint = fingerprintOf(t, s)
		s.Message.Text = "Happy birthday!"
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(orders.Order{UID: "order-2", OrderNumber: "FS-20230228-00002"}, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(redirect, nil)

		// when
		result, err := f.sut.Dispatch(c, s, hostname)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "order-2", result.Order.UID)
	})
}

func TestDispatchBankTransfer(t *testing.T) {
	c := context.TODO()

	t.Run("completes and keeps draft", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodBankTransfer)
		saved, err := f.persistence.Save(c, s)
		assert.NoError(t, err)
		assert.True(t, saved)

		order := createdOrder
		order.PaymentMethod = checkoutmodel.MethodBankTransfer
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(order, nil)
		f.orders.EXPECT().MarkAwaitingPayment(gomock.Any(), "order-1").Return(nil)

		// when
		result, err := f.sut.Dispatch(c, s, hostname)

		// then
		assert.NoError(t, err)
		assert.Nil(t, result.Redirect)
		assert.Equal(t, checkoutmodel.StepSuccess, result.Session.Step)
		assert.Equal(t, s.Cart, result.Session.Cart)
		assert.Equal(t, s.Recipient, result.Session.Recipient)
		assert.Equal(t, "awaiting_payment", result.Summary.Status)

		_, found, _ := f.persistence.Load(c, "sess-1")
		assert.True(t, found)
		_, found, _ = f.persistence.LoadMarker(c, "sess-1")
		assert.False(t, found)
		summary, found, _ := f.persistence.LoadOrderSummary(c, "sess-1")
		assert.True(t, found)
		assert.Equal(t, "FS-20230228-00001", summary.OrderNumber)
	})
}

func TestDispatchRefusals(t *testing.T) {
	c := context.TODO()

	t.Run("region closed meanwhile", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		settings := region.DefaultSettings()
		settings.DisabledDistricts = append(settings.DisabledDistricts, "Beşiktaş")
		f.config.EXPECT().Fetch(gomock.Any()).Return(storeconfig.Snapshot{RegionSettings: settings})

		// when
		_, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)

		// then
		assert.Equal(t, http.StatusUnprocessableEntity, myerrors.GetHTTPStatus(err))
		var stepErr *checkoutflow.StepError
		assert.True(t, errors.As(err, &stepErr))
		assert.Equal(t, recipient.FieldRegion, stepErr.FirstInvalid)
	})

	t.Run("delivery date became an off-day", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.config.EXPECT().Fetch(gomock.Any()).Return(storeconfig.Snapshot{
			OffDays:        []string{"2023-03-01"},
			RegionSettings: region.DefaultSettings(),
		})

		// when
		_, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)

		// then
		var stepErr *checkoutflow.StepError
		assert.True(t, errors.As(err, &stepErr))
		assert.Equal(t, recipient.FieldDeliveryDate, stepErr.FirstInvalid)
	})

	t.Run("guest with invalid email", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodCreditCard)
		s.Identity.Guest.Email = "a@b"

		// when
		_, err := f.sut.Dispatch(c, s, hostname)

		// then
		var stepErr *checkoutflow.StepError
		assert.True(t, errors.As(err, &stepErr))
		assert.Equal(t, checkoutflow.ReasonIdentity, stepErr.Reason)
		assert.Equal(t, identity.ReasonInvalidEmail, stepErr.Gate.Reason)
	})

	t.Run("terms not accepted", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		s := paymentSession(checkoutmodel.MethodCreditCard)
		s.TermsAccepted = false

		// when
		_, err := f.sut.Dispatch(c, s, hostname)

		// then
		var stepErr *checkoutflow.StepError
		assert.True(t, errors.As(err, &stepErr))
		assert.Equal(t, checkoutflow.ReasonTerms, stepErr.Reason)
	})

	t.Run("no payment method", func(t *testing.T) {
		// setup
		f := setup(t)

		// when
		_, err := f.sut.Dispatch(c, paymentSession(""), hostname)

		// then
		assert.ErrorIs(t, err, ErrNoPaymentMethod)
	})

	t.Run("order rejected", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(orders.Order{}, myerrors.NewUnprocessableError(orders.ErrOrderRejected))

		// when
		result, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)

		// then
		assert.ErrorIs(t, err, orders.ErrOrderRejected)
		assert.Equal(t, checkoutmodel.StepPayment, result.Session.Step)
		assert.Empty(t, result.Session.OrderUID)
		_, found, _ := f.persistence.LoadMarker(c, "sess-1")
		assert.False(t, found)
	})

	t.Run("second submission while the first is in flight", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		entered := make(chan struct{})
		proceed := make(chan struct{})
		f.config.EXPECT().Fetch(gomock.Any()).Return(defaultConfig())
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ orders.CreateRequest) (orders.Order, error) {
				close(entered)
				<-proceed
				return createdOrder, nil
			}).Times(1)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(redirect, nil)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)
			assert.NoError(t, err)
		}()
		<-entered

		// when
		_, err := f.sut.Dispatch(c, paymentSession(checkoutmodel.MethodCreditCard), hostname)
		close(proceed)
		wg.Wait()

		// then
		assert.Equal(t, http.StatusConflict, myerrors.GetHTTPStatus(err))
	})
}
