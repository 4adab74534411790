package paymentadyen

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/adyen/adyen-go-api-library/v6/src/checkout"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/lib/myvault"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/paymentapi"
)

var request = paymentapi.Request{
	SessionUID:  "session-1",
	OrderUID:    "order-1",
	OrderNumber: "FS-20230228-00001",
	Cart: checkoutmodel.Cart{
		Currency: "TRY",
		Items: []checkoutmodel.CartItem{
			{ProductUID: "roses", Name: "Red roses", Quantity: 2, UnitPriceInCents: 45000},
		},
	},
	Customer:   orders.Customer{Email: "ayse@example.com", Phone: "5551234567", Guest: true},
	SuccessURL: "http://localhost/api/checkout/session-1/payment/return/success",
	FailureURL: "http://localhost/api/checkout/session-1/payment/return/failed",
}

func TestInitialize(t *testing.T) {
	t.Run("with api key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		sut, payer, vault := setup(ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), "currentToken_adyen").Return(myvault.Token{}, false, nil)
		payer.EXPECT().UseAPIKey("my_api_key")
		payer.EXPECT().Sessions(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req checkout.CreateCheckoutSessionRequest) (checkout.CreateCheckoutSessionResponse, error) {
				assert.Equal(t, int64(90000), req.Amount.Value)
				assert.Equal(t, "TRY", req.Amount.Currency)
				assert.Equal(t, "order-1", req.Reference)
				assert.Equal(t, "ayse@example.com", req.ShopperReference)
				assert.Len(t, *req.LineItems, 1)
				return checkout.CreateCheckoutSessionResponse{Id: "CS123", SessionData: "opaque"}, nil
			})

		// when
		payload, err := sut.Initialize(context.TODO(), request)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "adyen", payload.Provider)
		assert.Equal(t, "CS123", payload.PaymentID)
		assert.Empty(t, payload.RedirectURL)
		assert.Contains(t, payload.HTML, `id: "CS123"`)
		assert.Contains(t, payload.HTML, "checkoutshopper-test.adyen.com")
	})

	t.Run("with access token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		sut, payer, vault := setup(ctrl)

		// given
		expiresAt := mytime.ExampleTime.Add(time.Hour)
		vault.EXPECT().Get(gomock.Any(), "currentToken_adyen").Return(myvault.Token{
			ProviderName: "adyen",
			AccessToken:  "my_access_token",
			ExpiresAt:    &expiresAt,
		}, true, nil)
		payer.EXPECT().UseToken("my_access_token")
		payer.EXPECT().Sessions(gomock.Any(), gomock.Any()).Return(checkout.CreateCheckoutSessionResponse{Id: "CS456"}, nil)

		// when
		payload, err := sut.Initialize(context.TODO(), request)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "CS456", payload.PaymentID)
	})

	t.Run("provider failure is recoverable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		sut, payer, vault := setup(ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), "currentToken_adyen").Return(myvault.Token{}, false, nil)
		payer.EXPECT().UseAPIKey("my_api_key")
		payer.EXPECT().Sessions(gomock.Any(), gomock.Any()).Return(checkout.CreateCheckoutSessionResponse{}, errors.New("401 unauthorized"))

		// when
		_, err := sut.Initialize(context.TODO(), request)

		// then
		assert.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, myerrors.GetHTTPStatus(err))
	})
}

func setup(ctrl *gomock.Controller) (paymentapi.Initializer, *MockPayer, *myvault.MockVaultReader[myvault.Token]) {
	payer := NewMockPayer(ctrl)
	vault := myvault.NewMockVaultReader[myvault.Token](ctrl)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	sut := NewInitializer(Config{
		Environment:     "TEST",
		MerchantAccount: "FlowerShopTR",
		ClientKey:       "test_client_key",
		APIKey:          "my_api_key",
	}, payer, vault, nower)

	return sut, payer, vault
}
