package paymentmollie

import (
	"context"
	"fmt"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"
)

//go:generate mockgen -source=payer.go -package paymentmollie -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	UseToken(accessToken string)
	CreatePayment(ctx context.Context, request mollie.Payment) (mollie.Payment, error)
}

type molliePayer struct {
	client *mollie.Client
}

func NewPayer(testMode bool) (Payer, error) {
	client, err := mollie.NewClient(nil, mollie.NewAPITestingConfig(testMode))
	if err != nil {
		return nil, fmt.Errorf("error creating mollie client: %w", err)
	}

	return &molliePayer{
		client: client,
	}, nil
}

func (p *molliePayer) UseAPIKey(apiKey string) {
	p.client.WithAuthenticationValue(apiKey)
}

func (p *molliePayer) UseToken(accessToken string) {
	p.client.WithAuthenticationValue(accessToken)
}

func (p *molliePayer) CreatePayment(ctx context.Context, request mollie.Payment) (mollie.Payment, error) {
	_, payment, err := p.client.Payments.Create(ctx, request, nil)
	if err != nil {
		return mollie.Payment{}, fmt.Errorf("error creating mollie payment: %w", err)
	}

	return *payment, nil
}
