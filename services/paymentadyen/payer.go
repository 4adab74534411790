package paymentadyen

import (
	"context"
	"fmt"
	"strings"

	"github.com/adyen/adyen-go-api-library/v6/src/adyen"
	"github.com/adyen/adyen-go-api-library/v6/src/checkout"
	"github.com/adyen/adyen-go-api-library/v6/src/common"
)

//go:generate mockgen -source=payer.go -package paymentadyen -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	UseToken(accessToken string)
	Sessions(ctx context.Context, req checkout.CreateCheckoutSessionRequest) (checkout.CreateCheckoutSessionResponse, error)
}

type adyenPayer struct {
	client *adyen.APIClient
}

func NewPayer(environment string, apiKey string) Payer {
	return &adyenPayer{
		client: adyen.NewClient(&common.Config{
			ApiKey:      apiKey,
			Environment: common.Environment(strings.ToUpper(environment)),
			Debug:       false,
		}),
	}
}

func (p *adyenPayer) UseAPIKey(apiKey string) {
	delete(p.client.GetConfig().DefaultHeader, "Authorization")
	p.client.GetConfig().ApiKey = apiKey
}

func (p *adyenPayer) UseToken(accessToken string) {
	config := p.client.GetConfig()
	config.ApiKey = ""
	if config.DefaultHeader == nil {
		config.DefaultHeader = map[string]string{}
	}
	config.DefaultHeader["Authorization"] = fmt.Sprintf("Bearer %s", accessToken)
}

func (p *adyenPayer) Sessions(ctx context.Context, req checkout.CreateCheckoutSessionRequest) (checkout.CreateCheckoutSessionResponse, error) {
	resp, _, err := p.client.Checkout.Sessions(&req, ctx)
	if err != nil {
		return checkout.CreateCheckoutSessionResponse{}, fmt.Errorf("error creating adyen session: %w", err)
	}
	return resp, nil
}
