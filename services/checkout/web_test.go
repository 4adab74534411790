package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/flowershop/lib/mypublisher"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutevents"
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/draft"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/payment"
	"github.com/MarcGrol/flowershop/services/paymentapi"
	"github.com/MarcGrol/flowershop/services/recipient"
	"github.com/MarcGrol/flowershop/services/region"
	"github.com/MarcGrol/flowershop/services/storeconfig"
)

const sessionUID = "sess-1"

var (
	roses = checkoutmodel.CartItem{ProductUID: "roses", Name: "Red roses", Quantity: 1, UnitPriceInCents: 45000}
	cart  = checkoutmodel.Cart{Currency: "TRY", Items: []checkoutmodel.CartItem{roses}}

	validRecipient = recipient.Details{
		Name:           "Ayşe Yılmaz",
		Phone:          "5551234567",
		Province:       "İstanbul",
		District:       "Beşiktaş",
		Neighborhood:   "Levent",
		Street:         "Nispetiye Caddesi",
		BuildingNumber: "12",
		DeliveryDate:   "2023-03-01",
		DeliveryTime:   delivery.SlotEvening,
	}
	guest = identity.Identity{Kind: identity.KindGuest, Guest: identity.GuestContact{Email: "ayse@example.com", Phone: "5551234567"}}

	pendingOrder = orders.Order{
		UID:           "order-1",
		OrderNumber:   "FS-20230228-00001",
		Status:        orders.StatusPending,
		SessionUID:    sessionUID,
		Items:         cart.Items,
		TotalInCents:  45000,
		Currency:      "TRY",
		PaymentMethod: checkoutmodel.MethodCreditCard,
		CreatedAt:     mytime.ExampleTime,
	}
)

type fixture struct {
	router        *mux.Router
	sessions      mystore.Store[checkoutmodel.Session]
	persistence   *draft.Persistence
	dispatcher    *payment.Dispatcher
	orders        *orders.MockService
	initializer   *paymentapi.MockInitializer
	authenticator *identity.MockAuthenticator
	publisher     *mypublisher.MockPublisher
}

func setup(t *testing.T) fixture {
	c := context.TODO()
	ctrl := gomock.NewController(t)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	config := storeconfig.NewMockProvider(ctrl)
	config.EXPECT().Fetch(gomock.Any()).Return(storeconfig.Snapshot{OffDays: []string{}, RegionSettings: region.DefaultSettings()}).AnyTimes()

	sessions, _, _ := mystore.NewInMemoryStore[checkoutmodel.Session](c)
	records, _, _ := mystore.NewInMemoryStore[draft.Record](c)
	persistence := draft.New(draft.NewStoreKeyValue(records, nower), nower)

	f := fixture{
		router:        mux.NewRouter(),
		sessions:      sessions,
		persistence:   persistence,
		orders:        orders.NewMockService(ctrl),
		initializer:   paymentapi.NewMockInitializer(ctrl),
		authenticator: identity.NewMockAuthenticator(ctrl),
		publisher:     mypublisher.NewMockPublisher(ctrl),
	}
	f.dispatcher = payment.NewDispatcher(f.orders, f.initializer, config, persistence, nower)
	t.Cleanup(f.dispatcher.Close)

	// called by RegisterEndpoints()
	f.publisher.EXPECT().CreateTopic(c, checkoutevents.TopicName).Return(nil)

	sut := NewWebService(sessions, config, persistence, f.dispatcher, f.authenticator, f.publisher, nower, "https://shop.example.com")
	err := sut.RegisterEndpoints(c, f.router)
	assert.NoError(t, err)

	return f
}

func (f fixture) given(t *testing.T, session checkoutmodel.Session) {
	err := f.sessions.Put(context.TODO(), session.UID, session)
	assert.NoError(t, err)
}

func (f fixture) stored(t *testing.T) checkoutmodel.Session {
	session, found, err := f.sessions.Get(context.TODO(), sessionUID)
	assert.NoError(t, err)
	assert.True(t, found)
	return session
}

func (f fixture) do(t *testing.T, method string, path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var request *http.Request
	var err error
	if form != nil {
		request, err = http.NewRequest(method, path, strings.NewReader(form.Encode()))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		request, err = http.NewRequest(method, path, nil)
		assert.NoError(t, err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	request.Host = "localhost:8080"

	response := httptest.NewRecorder()
	f.router.ServeHTTP(response, request)
	return response
}

func decode[T any](t *testing.T, response *httptest.ResponseRecorder) T {
	var value T
	err := json.Unmarshal(response.Body.Bytes(), &value)
	assert.NoError(t, err)
	return value
}

func sessionAt(step checkoutmodel.Step) checkoutmodel.Session {
	s := checkoutmodel.Session{
		UID:           sessionUID,
		Step:          step,
		Cart:          cart,
		Recipient:     validRecipient,
		Identity:      guest,
		Payment:       checkoutmodel.PaymentSelection{Method: checkoutmodel.MethodCreditCard},
		TermsAccepted: true,
		CreatedAt:     mytime.ExampleTime,
	}
	if step == checkoutmodel.StepPayment {
		s.PaymentEntries = 1
	}
	return s
}

func cartForm() url.Values {
	return url.Values{
		"items[0].productUID":       {"roses"},
		"items[0].name":             {"Red roses"},
		"items[0].quantity":         {"1"},
		"items[0].unitPriceInCents": {"45000"},
	}
}

func TestStartCheckout(t *testing.T) {
	t.Run("anonymous customer starts at the cart", func(t *testing.T) {
		// setup
		f := setup(t)

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1", cartForm())

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[SessionView](t, response)
		assert.Equal(t, checkoutmodel.StepCart, view.Session.Step)
		assert.Equal(t, identity.KindUndecided, view.Session.Identity.Kind)
		assert.Equal(t, "TRY", view.Session.Cart.Currency)
		assert.Equal(t, DeliveryWindow{From: "2023-03-01", To: "2023-03-07"}, view.DeliveryWindow)
		assert.Contains(t, view.AllowedDates, "2023-03-01")
		assert.NotContains(t, view.AllowedDates, "2023-03-05")
		assert.False(t, view.Authenticated)
		assert.Nil(t, view.ResumeOffer)
	})

	t.Run("logged-in member skips the identity choice and gets the saved address", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.authenticator.EXPECT().LookupSession(gomock.Any(), "tok-1").Return(identity.AuthSession{
			CustomerUID:  "cust-1",
			Email:        "ayse@example.com",
			Token:        "tok-1",
			SavedAddress: &region.Address{Province: "İstanbul", District: "Kadıköy", Neighborhood: "Moda"},
		}, true, nil)

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1", cartForm(), "Authorization", "Bearer tok-1")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[SessionView](t, response)
		assert.True(t, view.Authenticated)
		assert.Equal(t, identity.KindMember, view.Session.Identity.Kind)
		assert.Equal(t, "Kadıköy", view.Session.Recipient.District)
		assert.True(t, view.Session.Recipient.FromSavedAddress)
	})

	t.Run("draft is restored when checkout starts again", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		_, err := f.persistence.Save(context.TODO(), sessionAt(checkoutmodel.StepMessage))
		assert.NoError(t, err)

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1", cartForm())

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[SessionView](t, response)
		assert.Equal(t, checkoutmodel.StepCart, view.Session.Step)
		assert.Equal(t, validRecipient.Street, view.Session.Recipient.Street)
		assert.Equal(t, identity.KindGuest, view.Session.Identity.Kind)
	})

	t.Run("invalid cart item", func(t *testing.T) {
		// setup
		f := setup(t)

		// when
		form := cartForm()
		form.Set("items[0].quantity", "-1")
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1", form)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})
}

func TestGetCheckout(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		// setup
		f := setup(t)

		// when
		response := f.do(t, http.MethodGet, "/api/checkout/unknown", nil)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("interrupted payment is offered and reported once", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepPayment))
		err := f.persistence.SaveMarker(context.TODO(), sessionUID, checkoutmodel.AbandonmentMarker{
			StartedAt: mytime.ExampleTime, OrderUID: "order-1", OrderNumber: "FS-20230228-00001", Method: checkoutmodel.MethodCreditCard,
		})
		assert.NoError(t, err)
		f.orders.EXPECT().ReportReminderAction(gomock.Any(), "order-1", orders.ReminderShown).Return(nil)

		// when
		first := f.do(t, http.MethodGet, "/api/checkout/sess-1", nil)
		second := f.do(t, http.MethodGet, "/api/checkout/sess-1", nil)
		f.dispatcher.Close()

		// then
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "order-1", decode[SessionView](t, first).ResumeOffer.OrderUID)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.NotNil(t, decode[SessionView](t, second).ResumeOffer)
	})
}

func TestRecipient(t *testing.T) {
	t.Run("invalid form is stored and reported without blocking", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepRecipient))

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1/recipient", url.Values{
			"name":         {"Ayşe Yılmaz"},
			"phone":        {"0555 123 45 67"},
			"district":     {"Beşiktaş"},
			"deliveryDate": {"2023-03-05"},
			"deliveryTime": {"17:00 - 22:00"},
		})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[RecipientView](t, response)
		assert.False(t, view.Validation.OK)
		assert.Equal(t, "5551234567", view.Session.Recipient.Phone)
		assert.Equal(t, delivery.SlotEvening, view.Session.Recipient.DeliveryTime)
		assert.Equal(t, "2023-03-06", view.Session.Recipient.DeliveryDate)
		assert.True(t, view.DateSelection.Advanced)
		assert.Equal(t, "2023-03-06", f.stored(t).Recipient.DeliveryDate)
	})

	t.Run("sunday moves to the next delivery day", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepRecipient))

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1/recipient/date", url.Values{"date": {"2023-03-05"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		selection := decode[DateSelection](t, response)
		assert.Equal(t, "2023-03-06", selection.Date)
		assert.True(t, selection.Advanced)
		assert.NotEmpty(t, selection.Notice)
	})

	t.Run("date beyond the window is clamped", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepRecipient))

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1/recipient/date", url.Values{"date": {"2023-04-01"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		selection := decode[DateSelection](t, response)
		assert.Equal(t, "2023-03-07", selection.Date)
		assert.True(t, selection.Clamped)
	})

	t.Run("missing date", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepRecipient))

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1/recipient/date", url.Values{"date": {""}})

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("suggestion starts at the current choice", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepRecipient)
		session.Recipient.DeliveryDate = "2023-03-05"
		f.given(t, session)

		// when
		response := f.do(t, http.MethodGet, "/api/checkout/sess-1/recipient/date/suggestion", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, DateSuggestion{Date: "2023-03-06", Available: true}, decode[DateSuggestion](t, response))
	})
}

func TestNext(t *testing.T) {
	t.Run("refused transition is a 422 with the first invalid field", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepRecipient)
		session.Recipient.Phone = "123"
		f.given(t, session)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/next", nil)

		// then
		assert.Equal(t, http.StatusUnprocessableEntity, response.Code)
		resp := decode[StepErrorResponse](t, response)
		assert.Equal(t, checkoutflow.ReasonInvalidRecipient, resp.Error.Reason)
		assert.Equal(t, recipient.FieldPhone, resp.Error.FirstInvalid)
		assert.Equal(t, checkoutmodel.StepRecipient, f.stored(t).Step)
	})

	t.Run("entering payment is published", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepMessage))
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			CheckoutUID:    sessionUID,
			PaymentEntries: 1,
			AmountInCents:  45000,
			Currency:       "TRY",
			IdentityKind:   "guest",
			Day:            "2023-02-28",
		}).Return(nil)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/next", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[SessionView](t, response)
		assert.Equal(t, checkoutmodel.StepPayment, view.Session.Step)
		assert.Equal(t, checkoutmodel.StepPayment, f.stored(t).Step)
	})

	t.Run("failed publish leaves the session untouched", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepMessage))
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(assert.AnError)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/next", nil)

		// then
		assert.Equal(t, http.StatusInternalServerError, response.Code)
		assert.Equal(t, checkoutmodel.StepMessage, f.stored(t).Step)
	})
}

func TestNavigation(t *testing.T) {
	t.Run("back gesture is intercepted", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepMessage))

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/navigate", url.Values{"intent": {"back"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[NavigationView](t, response)
		assert.True(t, view.Navigation.Intercepted)
		assert.Equal(t, checkoutmodel.StepRecipient, view.Session.Step)
	})

	t.Run("back gesture on the cart is left to the host", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepCart))

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/navigate", url.Values{"intent": {"back"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.False(t, decode[NavigationView](t, response).Navigation.Intercepted)
	})
}

func TestLogin(t *testing.T) {
	t.Run("login during checkout attaches the member", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepPayment)
		session.Identity = identity.Identity{Kind: identity.KindUndecided}
		f.given(t, session)
		f.authenticator.EXPECT().StartChallenge(gomock.Any(), identity.ChallengeRequest{Email: "ayse@example.com"}).
			Return(identity.Challenge{ChallengeUID: "ch-1", SentTo: "ayse@example.com"}, nil)
		f.authenticator.EXPECT().VerifyChallenge(gomock.Any(), "ch-1", "123456").
			Return(identity.AuthSession{CustomerUID: "cust-1", Email: "ayse@example.com", Token: "tok-1"}, nil)

		// when
		started := f.do(t, http.MethodPost, "/api/checkout/sess-1/login", url.Values{"email": {"ayse@example.com"}})
		verified := f.do(t, http.MethodPost, "/api/checkout/sess-1/login/verify", url.Values{"code": {"123456"}})

		// then
		assert.Equal(t, http.StatusOK, started.Code)
		assert.Equal(t, "ch-1", decode[ChallengeView](t, started).Challenge.ChallengeUID)
		assert.Equal(t, http.StatusOK, verified.Code)
		view := decode[SessionView](t, verified)
		assert.True(t, view.Authenticated)
		assert.Equal(t, identity.KindMember, view.Session.Identity.Kind)
	})

	t.Run("verify without challenge", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepPayment))

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/login/verify", url.Values{"code": {"123456"}})

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})
}

func TestPay(t *testing.T) {
	t.Run("credit card returns the redirect and publishes the attempt", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepPayment))
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pendingOrder, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req paymentapi.Request) (paymentapi.RedirectPayload, error) {
				assert.Equal(t, "http://localhost:8080/api/checkout/sess-1/payment/return/success", req.SuccessURL)
				return paymentapi.RedirectPayload{Provider: "stripe", PaymentID: "cs_1", RedirectURL: "https://checkout.stripe.com/cs_1"}, nil
			})
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.PaymentAttemptStarted{
			CheckoutUID:  sessionUID,
			OrderUID:     "order-1",
			OrderNumber:  "FS-20230228-00001",
			ProviderName: "stripe",
			PaymentID:    "cs_1",
			Day:          "2023-02-28",
		}).Return(nil)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/payment", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[PaymentView](t, response)
		assert.Equal(t, "https://checkout.stripe.com/cs_1", view.Redirect.RedirectURL)
		assert.Equal(t, "order-1", view.OrderUID)
		stored := f.stored(t)
		assert.True(t, stored.Payment.Processing)
		assert.Equal(t, "order-1", stored.OrderUID)
	})

	t.Run("failed initialization keeps the order for a retry", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepPayment))
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pendingOrder, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(paymentapi.RedirectPayload{}, paymentapi.AsRecoverable("stripe", assert.AnError))

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/payment", nil)

		// then
		assert.Equal(t, http.StatusBadGateway, response.Code)
		stored := f.stored(t)
		assert.Equal(t, "order-1", stored.OrderUID)
		assert.False(t, stored.Payment.Processing)
		assert.Equal(t, checkoutmodel.StepPayment, stored.Step)
	})

	t.Run("edits made while the payment is initialized are kept", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepPayment))
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pendingOrder, nil)
		f.initializer.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ paymentapi.Request) (paymentapi.RedirectPayload, error) {
				edited := f.stored(t)
				edited.Message = checkoutmodel.Message{Text: "Get well soon", SenderName: "Mehmet"}
				f.given(t, edited)
				return paymentapi.RedirectPayload{Provider: "stripe", PaymentID: "cs_1", RedirectURL: "https://checkout.stripe.com/cs_1"}, nil
			})
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/payment", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		stored := f.stored(t)
		assert.Equal(t, "Get well soon", stored.Message.Text)
		assert.Equal(t, "order-1", stored.OrderUID)
		assert.True(t, stored.Payment.Processing)
	})

	t.Run("bank transfer completes with a confirmation", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepPayment)
		session.Payment.Method = checkoutmodel.MethodBankTransfer
		f.given(t, session)
		order := pendingOrder
		order.PaymentMethod = checkoutmodel.MethodBankTransfer
		f.orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(order, nil)
		f.orders.EXPECT().MarkAwaitingPayment(gomock.Any(), "order-1").Return(nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID:    sessionUID,
			OrderUID:       "order-1",
			OrderNumber:    "FS-20230228-00001",
			PaymentMethod:  "bank_transfer",
			CheckoutStatus: checkoutevents.CheckoutStatusAwaitingPayment,
			Success:        true,
			Day:            "2023-02-28",
		}).Return(nil)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/payment", nil)
		confirmation := f.do(t, http.MethodGet, "/api/checkout/sess-1/confirmation", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		view := decode[PaymentView](t, response)
		assert.Equal(t, checkoutmodel.StepSuccess, view.Session.Step)
		assert.Nil(t, view.Redirect)
		assert.Equal(t, http.StatusOK, confirmation.Code)
		summary := decode[checkoutmodel.OrderSummary](t, confirmation)
		assert.Equal(t, "FS-20230228-00001", summary.OrderNumber)
		assert.Equal(t, string(orders.StatusAwaitingPayment), summary.Status)
	})

	t.Run("terms not accepted", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepPayment)
		session.TermsAccepted = false
		f.given(t, session)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/payment", nil)

		// then
		assert.Equal(t, http.StatusUnprocessableEntity, response.Code)
		assert.Equal(t, checkoutflow.ReasonTerms, decode[StepErrorResponse](t, response).Error.Reason)
	})
}

func (f fixture) interrupted(t *testing.T) {
	session := sessionAt(checkoutmodel.StepPayment)
	session.OrderUID = "order-1"
	session.Payment.Processing = true
	f.given(t, session)
	err := f.persistence.SaveMarker(context.TODO(), sessionUID, checkoutmodel.AbandonmentMarker{
		StartedAt: mytime.ExampleTime, OrderUID: "order-1", OrderNumber: "FS-20230228-00001", Method: checkoutmodel.MethodCreditCard, ShownReported: true,
	})
	assert.NoError(t, err)
}

func TestPaymentReturn(t *testing.T) {
	t.Run("success completes checkout and redirects", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.interrupted(t)
		paid := pendingOrder
		paid.Status = orders.StatusPaid
		f.orders.EXPECT().Get(gomock.Any(), "order-1").Return(paid, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID:    sessionUID,
			OrderUID:       "order-1",
			PaymentMethod:  "credit_card",
			CheckoutStatus: checkoutevents.CheckoutStatusSuccess,
			Success:        true,
			Day:            "2023-02-28",
		}).Return(nil)

		// when
		response := f.do(t, http.MethodGet, "/api/checkout/sess-1/payment/return/success", nil)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://shop.example.com/checkout/sess-1?step=success", response.Header().Get("Location"))
		assert.Equal(t, checkoutmodel.StepSuccess, f.stored(t).Step)
	})

	t.Run("success without order, terms or identity does not complete", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepPayment)
		session.OrderUID = ""
		session.TermsAccepted = false
		session.Identity = identity.Identity{}
		f.given(t, session)

		// when
		response := f.do(t, http.MethodGet, "/api/checkout/sess-1/payment/return/success", nil)

		// then
		assert.Equal(t, http.StatusConflict, response.Code)
		stored := f.stored(t)
		assert.Equal(t, checkoutmodel.StepPayment, stored.Step)
		assert.Empty(t, stored.OrderUID)
	})

	t.Run("success while the order is not paid stays on payment", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.interrupted(t)
		f.orders.EXPECT().Get(gomock.Any(), "order-1").Return(pendingOrder, nil)

		// when
		response := f.do(t, http.MethodGet, "/api/checkout/sess-1/payment/return/success", nil)
		reloaded := f.do(t, http.MethodGet, "/api/checkout/sess-1", nil)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://shop.example.com/checkout/sess-1?step=payment", response.Header().Get("Location"))
		assert.Equal(t, checkoutmodel.StepPayment, f.stored(t).Step)
		view := decode[SessionView](t, reloaded)
		assert.Equal(t, checkoutmodel.OutcomePending, view.LastOutcome.Status)
		assert.NotNil(t, view.ResumeOffer)
	})

	t.Run("cancel shows the outcome once", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.interrupted(t)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := f.do(t, http.MethodGet, "/api/checkout/sess-1/payment/return/cancel", nil)
		first := f.do(t, http.MethodGet, "/api/checkout/sess-1", nil)
		second := f.do(t, http.MethodGet, "/api/checkout/sess-1", nil)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://shop.example.com/checkout/sess-1?step=payment", response.Header().Get("Location"))
		assert.NotNil(t, decode[SessionView](t, first).LastOutcome)
		assert.Nil(t, decode[SessionView](t, second).LastOutcome)
		assert.False(t, f.stored(t).Payment.Processing)
	})
}

func TestReminder(t *testing.T) {
	t.Run("resume re-enters payment with the earlier order", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepCart))
		err := f.persistence.SaveMarker(context.TODO(), sessionUID, checkoutmodel.AbandonmentMarker{OrderUID: "order-1", ShownReported: true})
		assert.NoError(t, err)
		f.orders.EXPECT().ReportReminderAction(gomock.Any(), "order-1", orders.ReminderResume).Return(nil)
		f.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/reminder/resume", nil)
		f.dispatcher.Close()

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		stored := f.stored(t)
		assert.Equal(t, checkoutmodel.StepPayment, stored.Step)
		assert.Equal(t, "order-1", stored.OrderUID)
		_, found, _ := f.persistence.LoadMarker(context.TODO(), sessionUID)
		assert.False(t, found)
	})

	t.Run("dismiss without interrupted payment", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepCart))

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/reminder/dismiss", nil)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepCart))

		// when
		response := f.do(t, http.MethodPost, "/api/checkout/sess-1/reminder/later", nil)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})
}

func TestEmptyCart(t *testing.T) {
	t.Run("emptying the cart clears the draft", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		f.given(t, sessionAt(checkoutmodel.StepMessage))
		_, err := f.persistence.Save(context.TODO(), sessionAt(checkoutmodel.StepMessage))
		assert.NoError(t, err)

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1/cart", url.Values{"currency": {"TRY"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, checkoutmodel.StepCart, f.stored(t).Step)
		_, found, err := f.persistence.Load(context.TODO(), sessionUID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("refilled cart does not bring back the old form", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		session := sessionAt(checkoutmodel.StepMessage)
		session.Message = checkoutmodel.Message{Text: "Happy birthday!", SenderName: "Mehmet"}
		session.OrderUID = "order-1"
		f.given(t, session)

		// when
		cleared := f.do(t, http.MethodPut, "/api/checkout/sess-1/cart", url.Values{"currency": {"TRY"}})
		refilled := f.do(t, http.MethodPut, "/api/checkout/sess-1/cart", cartForm())

		// then
		assert.Equal(t, http.StatusOK, cleared.Code)
		assert.Equal(t, http.StatusOK, refilled.Code)
		stored := f.stored(t)
		assert.Equal(t, cart.Items, stored.Cart.Items)
		assert.Equal(t, recipient.Details{}, stored.Recipient)
		assert.Equal(t, checkoutmodel.Message{}, stored.Message)
		assert.Equal(t, identity.KindUndecided, stored.Identity.Kind)
		assert.Empty(t, stored.Identity.Guest.Email)
		assert.False(t, stored.TermsAccepted)
		assert.Empty(t, stored.OrderUID)
	})

	t.Run("starting with an empty cart does not restore the draft", func(t *testing.T) {
		// setup
		f := setup(t)

		// given
		_, err := f.persistence.Save(context.TODO(), sessionAt(checkoutmodel.StepMessage))
		assert.NoError(t, err)

		// when
		response := f.do(t, http.MethodPut, "/api/checkout/sess-1", url.Values{"currency": {"TRY"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		stored := f.stored(t)
		assert.Equal(t, recipient.Details{}, stored.Recipient)
		assert.Equal(t, identity.KindUndecided, stored.Identity.Kind)
		_, found, _ := f.persistence.Load(context.TODO(), sessionUID)
		assert.False(t, found)
	})
}
