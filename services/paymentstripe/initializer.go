package paymentstripe

import (
	"context"
	"strings"
	"sync"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/lib/myvault"
	"github.com/MarcGrol/flowershop/services/paymentapi"
)

const (
	ProviderName  = "stripe"
	defaultLocale = "tr"
)

type initializer struct {
	sync.Mutex
	apiKey string
	payer  Payer
	vault  myvault.VaultReader[myvault.Token]
	nower  mytime.Nower
	logger mylog.Logger
}

// NewInitializer creates a card-only stripe checkout session, 3-D Secure is enforced by stripe on that page
func NewInitializer(apiKey string, payer Payer, vault myvault.VaultReader[myvault.Token], nower mytime.Nower) paymentapi.Initializer {
	return &initializer{
		apiKey: apiKey,
		payer:  payer,
		vault:  vault,
		nower:  nower,
		logger: mylog.New("paymentstripe"),
	}
}

func (i *initializer) Initialize(c context.Context, request paymentapi.Request) (paymentapi.RedirectPayload, error) {
	i.Lock()
	defer i.Unlock()

	i.setupAuthentication(c, request.SessionUID)

	session, err := i.payer.CreateCheckoutSession(c, toSessionParams(request))
	if err != nil {
		i.logger.Log(c, request.SessionUID, mylog.SeverityWarn, "Error creating stripe session for order %s: %s", request.OrderUID, err)
		return paymentapi.RedirectPayload{}, paymentapi.AsRecoverable(ProviderName, err)
	}

	i.logger.Log(c, request.SessionUID, mylog.SeverityInfo, "Stripe session %s created for order %s", session.ID, request.OrderUID)

	return paymentapi.RedirectPayload{
		Provider:    ProviderName,
		PaymentID:   session.ID,
		RedirectURL: session.URL,
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

func toSessionParams(request paymentapi.Request) stripe.CheckoutSessionParams {
	currency := strings.ToLower(request.Cart.Currency)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(request.Cart.Items))
	for _, item := range request.Cart.Items {
		if item.Quantity <= 0 {
			continue
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitPriceInCents),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	locale := request.Locale
	if locale == "" {
		locale = defaultLocale
	}

	params := stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(request.SuccessURL),
		CancelURL:          stripe.String(request.FailureURL),
		ClientReferenceID:  stripe.String(request.OrderUID),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		Currency:           stripe.String(currency),
		CustomerEmail:      stripe.String(request.Customer.Email),
		Locale:             stripe.String(locale),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Description: stripe.String(paymentapi.Description(request)),
		},
	}
	params.AddMetadata("sessionUID", request.SessionUID)
	params.AddMetadata("orderNumber", request.OrderNumber)

	return params
}
