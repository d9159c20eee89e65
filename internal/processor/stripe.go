// Package processor wraps the payment processor API behind a small interface
// so services can be tested against a stub.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Stripe event types handled by the webhook processor
const (
	EventPaymentIntentSucceeded  = string(stripe.EventTypePaymentIntentSucceeded)
	EventPaymentIntentFailed     = string(stripe.EventTypePaymentIntentPaymentFailed)
	EventPaymentIntentProcessing = string(stripe.EventTypePaymentIntentProcessing)
	EventChargeRefunded          = string(stripe.EventTypeChargeRefunded)
	EventAccountUpdated          = string(stripe.EventTypeAccountUpdated)
	EventPayoutPaid              = string(stripe.EventTypePayoutPaid)
	EventPayoutFailed            = string(stripe.EventTypePayoutFailed)
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// PaymentIntentParams describes a destination charge
type PaymentIntentParams struct {
	Amount               int64
	Currency             string
	ApplicationFeeAmount int64
	DestinationAccount   string
	Metadata             map[string]string
}

// PaymentIntent is the subset of the processor's intent callers need
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// Account is the capability view of a connected account
type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// Event is a verified webhook event. Data holds the raw data.object JSON.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Client is the processor surface used by the services
type Client interface {
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error)
	CreateExpressAccount(ctx context.Context, email string) (*Account, error)
	RetrieveAccount(ctx context.Context, accountID string) (*Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

// StripeClient implements Client with stripe-go
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

// NewStripeClient creates a Stripe client for the given secret key
func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api, webhookSecret: webhookSecret}
}

// CreatePaymentIntent charges the full amount to the customer, keeps the
// application fee and transfers the rest to the destination account.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(p.Amount),
		Currency:             stripe.String(p.Currency),
		ApplicationFeeAmount: stripe.Int64(p.ApplicationFeeAmount),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(p.DestinationAccount),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreateExpressAccount creates a US individual Express account paid out daily
func (c *StripeClient) CreateExpressAccount(ctx context.Context, email string) (*Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String("US"),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: &stripe.AccountSettingsPayoutsScheduleParams{
					Interval:         stripe.String("daily"),
					DelayDaysMinimum: stripe.Bool(true),
				},
			},
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx

	acct, err := c.api.Accounts.New(params)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return toAccount(acct), nil
}

// RetrieveAccount fetches current capability flags of a connected account
func (c *StripeClient) RetrieveAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := c.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve account: %w", err)
	}
	return toAccount(acct), nil
}

// CreateAccountLink creates an onboarding link for a connected account
func (c *StripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

// ConstructEvent verifies the Stripe-Signature header over the raw payload
func (c *StripeClient) ConstructEvent(payload []byte, signature string) (*Event, error) {
	if c.webhookSecret == "" || signature == "" {
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var data json.RawMessage
	if event.Data != nil {
		data = event.Data.Raw
	}
	return &Event{ID: event.ID, Type: string(event.Type), Data: data}, nil
}

func toAccount(acct *stripe.Account) *Account {
	return &Account{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
}

// DecodePaymentIntent decodes a payment_intent.* event object
func DecodePaymentIntent(data json.RawMessage) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(data, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &pi, nil
}

// DecodeCharge decodes a charge.* event object
func DecodeCharge(data json.RawMessage) (*stripe.Charge, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("decode charge: %w", err)
	}
	return &ch, nil
}

// DecodeAccount decodes an account.* event object
func DecodeAccount(data json.RawMessage) (*Account, error) {
	var acct stripe.Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return toAccount(&acct), nil
}

// DecodePayout decodes a payout.* event object
func DecodePayout(data json.RawMessage) (*stripe.Payout, error) {
	var po stripe.Payout
	if err := json.Unmarshal(data, &po); err != nil {
		return nil, fmt.Errorf("decode payout: %w", err)
	}
	return &po, nil
}
