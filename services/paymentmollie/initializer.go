package paymentmollie

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/lib/myvault"
	"github.com/MarcGrol/flowershop/services/paymentapi"
)

const (
	ProviderName  = "mollie"
	defaultLocale = "en_US"
)

var errMissingCheckoutLink = errors.New("mollie payment without checkout link")

type initializer struct {
	sync.Mutex
	apiKey string
	payer  Payer
	vault  myvault.VaultReader[myvault.Token]
	nower  mytime.Nower
	logger mylog.Logger
}

// NewInitializer creates a hosted mollie payment; the customer is redirected to its checkout url
func NewInitializer(apiKey string, payer Payer, vault myvault.VaultReader[myvault.Token], nower mytime.Nower) paymentapi.Initializer {
	return &initializer{
		apiKey: apiKey,
		payer:  payer,
		vault:  vault,
		nower:  nower,
		logger: mylog.New("paymentmollie"),
	}
}

func (i *initializer) Initialize(c context.Context, request paymentapi.Request) (paymentapi.RedirectPayload, error) {
	i.Lock()
	defer i.Unlock()

	i.setupAuthentication(c, request.SessionUID)

	payment, err := i.payer.CreatePayment(c, toPayment(request))
	if err != nil {
		i.logger.Log(c, request.SessionUID, mylog.SeverityWarn, "Error creating mollie payment for order %s: %s", request.OrderUID, err)
		return paymentapi.RedirectPayload{}, paymentapi.AsRecoverable(ProviderName, err)
	}

	if payment.Links.Checkout == nil || payment.Links.Checkout.Href == "" {
		return paymentapi.RedirectPayload{}, paymentapi.AsRecoverable(ProviderName, errMissingCheckoutLink)
	}

	i.logger.Log(c, request.SessionUID, mylog.SeverityInfo, "Mollie payment %s created for order %s", payment.ID, request.OrderUID)

	return paymentapi.RedirectPayload{
		Provider:    ProviderName,
		PaymentID:   payment.ID,
		RedirectURL: payment.Links.Checkout.Href,
	}, nil
}

func (i *initializer) setupAuthentication(c context.Context, sessionUID string) {
	token, exist, err := i.vault.Get(c, myvault.TokenUID(ProviderName))
	if err != nil || !exist || !token.IsUsable(i.nower.Now(), ProviderName) {
		i.logger.Log(c, sessionUID, mylog.SeverityInfo, "Using api key")
		i.payer.UseAPIKey(i.apiKey)
		return
	}

	i.logger.Log(c, sessionUID, mylog.SeverityInfo, "Using access token")
	i.payer.UseToken(token.AccessToken)
}

func toPayment(request paymentapi.Request) mollie.Payment {
	locale := request.Locale
	if locale == "" {
		locale = defaultLocale
	}

	return mollie.Payment{
		Amount: &mollie.Amount{
			Currency: request.Cart.Currency,
			Value:    fmt.Sprintf("%.2f", float64(request.Cart.TotalInCents())/100.0),
		},
		BillingEmail:      request.Customer.Email,
		CancelURL:         request.FailureURL,
		CustomerReference: request.Customer.CustomerUID,
		Description:       paymentapi.Description(request),
		Locale:            mollie.Locale(locale),
		Metadata: map[string]string{
			"sessionUID":  request.SessionUID,
			"orderUID":    request.OrderUID,
			"orderNumber": request.OrderNumber,
		},
		RedirectURL: request.SuccessURL,
	}
}
