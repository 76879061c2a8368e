package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"eshop/internal/checkout"
	"eshop/internal/domain"
)

type StripeConfig struct {
	Key              string
	URL              string // optional API base, used to point at a fake in tests
	ShippingRate     string
	AllowedCountries []string
	Timeout          time.Duration
}

// StripeGateway creates hosted Stripe Checkout sessions.
type StripeGateway struct {
	client           session.Client
	shippingRate     string
	allowedCountries []string
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.URL != "" {
		bc.URL = stripe.String(cfg.URL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	return &StripeGateway{
		client:           session.Client{B: backend, Key: cfg.Key},
		shippingRate:     cfg.ShippingRate,
		allowedCountries: cfg.AllowedCountries,
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req checkout.Request) (checkout.Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(l.PriceRef),
			Quantity: stripe.Int64(int64(l.Quantity)),
		})
	}
	if len(g.allowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(g.allowedCountries),
		}
	}
	if g.shippingRate != "" {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			{ShippingRate: stripe.String(g.shippingRate)},
		}
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	s, err := g.client.New(params)
	if err != nil {
		return checkout.Session{}, err
	}
	return checkout.Session{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) Paid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.client.Get(sessionID, params)
	if missing(err) {
		return false, fmt.Errorf("checkout session %s: %w: %w", sessionID, domain.ErrNotFound, err)
	}
	if err != nil {
		return false, err
	}
	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired, nil
}

func missing(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && (se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound)
}

// ClientFault reports a request Stripe rejected as malformed (4xx). Those say
// nothing about provider health and must not trip the breaker.
func ClientFault(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500
}
