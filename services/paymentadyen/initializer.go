package paymentadyen

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/adyen/adyen-go-api-library/v6/src/checkout"

	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/lib/myvault"
	"github.com/MarcGrol/flowershop/services/paymentapi"
)

const (
	ProviderName       = "adyen"
	countryCode        = "TR"
	defaultLocale      = "tr-TR"
	sessionValidityHrs = 1
)

//go:embed templates
var templateFolder embed.FS

var dropinTemplate = template.Must(template.ParseFS(templateFolder, "templates/dropin.html"))

type Config struct {
	Environment     string
	MerchantAccount string
	ClientKey       string
	APIKey          string
}

type dropinPage struct {
	Environment string
	ClientKey   string
	Locale      string
	OrderNumber string
	SessionID   string
	SessionData string
	SuccessURL  string
	FailureURL  string
}

type initializer struct {
	sync.Mutex
	config Config
	payer  Payer
	vault  myvault.VaultReader[myvault.Token]
	nower  mytime.Nower
	logger mylog.Logger
}

// NewInitializer starts a drop-in session; the 3-D Secure challenge runs inside the rendered page
func NewInitializer(config Config, payer Payer, vault myvault.VaultReader[myvault.Token], nower mytime.Nower) paymentapi.Initializer {
	return &initializer{
		config: config,
		payer:  payer,
		vault:  vault,
		nower:  nower,
		logger: mylog.New("paymentadyen"),
	}
}

func (i *initializer) Initialize(c context.Context, request paymentapi.Request) (paymentapi.RedirectPayload, error) {
	i.Lock()
	defer i.Unlock()

	i.setupAuthentication(c, request.SessionUID)

	resp, err := i.payer.Sessions(c, i.toSessionRequest(request))
	if err != nil {
		i.logger.Log(c, request.SessionUID, mylog.SeverityWarn, "Error creating adyen session for order %s: %s", request.OrderUID, err)
		return paymentapi.RedirectPayload{}, paymentapi.AsRecoverable(ProviderName, err)
	}

	html, err := i.render(request, resp)
	if err != nil {
		return paymentapi.RedirectPayload{}, paymentapi.AsRecoverable(ProviderName, err)
	}

	i.logger.Log(c, request.SessionUID, mylog.SeverityInfo, "Adyen session %s created for order %s", resp.Id, request.OrderUID)

	return paymentapi.RedirectPayload{
		Provider:  ProviderName,
		PaymentID: resp.Id,
		HTML:      html,
	}, nil
}

func (i *initializer) setupAuthentication(c context.Context, sessionUID string) {
	token, exist, err := i.vault.Get(c, myvault.TokenUID(ProviderName))
	if err != nil || !exist || !token.IsUsable(i.nower.Now(), ProviderName) {
		i.logger.Log(c, sessionUID, mylog.SeverityInfo, "Using api key")
		i.payer.UseAPIKey(i.config.APIKey)
		return
	}

	i.logger.Log(c, sessionUID, mylog.SeverityInfo, "Using access token")
	i.payer.UseToken(token.AccessToken)
}

func (i *initializer) toSessionRequest(request paymentapi.Request) checkout.CreateCheckoutSessionRequest {
	expiresAt := i.nower.Now().Add(sessionValidityHrs * time.Hour)

	lineItems := make([]checkout.LineItem, 0, len(request.Cart.Items))
	for _, item := range request.Cart.Items {
		lineItems = append(lineItems, checkout.LineItem{
			Id:                 item.ProductUID,
			Description:        item.Name,
			AmountIncludingTax: item.UnitPriceInCents,
			Quantity:           int64(item.Quantity),
		})
	}

	return checkout.CreateCheckoutSessionRequest{
		AllowedPaymentMethods: []string{"scheme"},
		Amount: checkout.Amount{
			Currency: request.Cart.Currency,
			Value:    request.Cart.TotalInCents(),
		},
		Channel:                "Web",
		CountryCode:            countryCode,
		ExpiresAt:              &expiresAt,
		LineItems:              &lineItems,
		MerchantAccount:        i.config.MerchantAccount,
		MerchantOrderReference: request.OrderNumber,
		Reference:              request.OrderUID,
		ReturnUrl:              request.SuccessURL,
		ShopperEmail:           request.Customer.Email,
		ShopperLocale:          locale(request),
		ShopperReference:       shopperReference(request),
		TelephoneNumber:        request.Customer.Phone,
	}
}

func (i *initializer) render(request paymentapi.Request, resp checkout.CreateCheckoutSessionResponse) (string, error) {
	buf := new(bytes.Buffer)
	err := dropinTemplate.Execute(buf, dropinPage{
		Environment: strings.ToLower(i.config.Environment),
		ClientKey:   i.config.ClientKey,
		Locale:      locale(request),
		OrderNumber: request.OrderNumber,
		SessionID:   resp.Id,
		SessionData: resp.SessionData,
		SuccessURL:  request.SuccessURL,
		FailureURL:  request.FailureURL,
	})
	if err != nil {
		return "", fmt.Errorf("error rendering drop-in page: %w", err)
	}
	return buf.String(), nil
}

func locale(request paymentapi.Request) string {
	if request.Locale == "" {
		return defaultLocale
	}
	return request.Locale
}

func shopperReference(request paymentapi.Request) string {
	if request.Customer.CustomerUID != "" {
		return request.Customer.CustomerUID
	}
	return request.Customer.Email
}
