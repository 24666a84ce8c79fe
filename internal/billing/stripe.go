package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/emsdesk/apiserver/config"
	"github.com/emsdesk/apiserver/types"
)

// StripeGateway creates Stripe payment intents for card payments.
type StripeGateway struct {
	client paymentintent.Client
}

// NewStripeGateway constructs a gateway from config.
func NewStripeGateway(cfg config.StripeConfig) (*StripeGateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	return &StripeGateway{
		client: paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
	}, nil
}

// CreateIntent creates a card payment intent for amount, in the currency's
// smallest unit.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (types.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := g.client.New(params)
	if err != nil {
		return types.PaymentIntent{}, err
	}
	return types.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}
