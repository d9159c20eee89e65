package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tunely/internal/auth"
	"tunely/internal/fees"
	"tunely/internal/models"
	"tunely/internal/processor"
	"tunely/internal/store"
	"tunely/internal/util"

	"go.uber.org/zap"
)

const defaultCurrency = "usd"

// Metadata keys attached to every tip intent. The webhook processor reads
// them back to link the payment to a session queue.
const (
	MetaArtistID        = "artist_id"
	MetaCustomerID      = "customer_id"
	MetaSongRequest     = "song_request"
	MetaCustomerName    = "customer_name"
	MetaCustomerMessage = "customer_message"
	MetaSessionID       = "artist_session_id"
)

// TipService issues tip payment intents
type TipService struct {
	registry  Registry
	processor processor.Client
	logger    *zap.Logger
}

// NewTipService creates a new tip service
func NewTipService(registry Registry, proc processor.Client) *TipService {
	return &TipService{
		registry:  registry,
		processor: proc,
		logger:    util.GetLogger(),
	}
}

// CreateTipRequest is the body of a tip request
type CreateTipRequest struct {
	ArtistID        string `json:"artistId" binding:"required"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	SongRequest     string `json:"songRequest" binding:"max=100"`
	CustomerName    string `json:"customerName" binding:"max=50"`
	CustomerMessage string `json:"customerMessage" binding:"max=200"`
	SessionCode     string `json:"sessionCode"`
}

// CreateTipResponse carries the client secret used to confirm the payment
type CreateTipResponse struct {
	ClientSecret    string         `json:"clientSecret"`
	PaymentIntentID string         `json:"paymentIntentId"`
	PaymentID       string         `json:"paymentId,omitempty"`
	Breakdown       fees.Breakdown `json:"breakdown"`
}

// CreatePaymentIntent validates the tip, creates a destination charge on the
// artist's connected account and records a pending payment.
func (s *TipService) CreatePaymentIntent(ctx context.Context, user *auth.User, req *CreateTipRequest) (*CreateTipResponse, error) {
	ctx, span := util.StartSpan(ctx, "TipService.CreatePaymentIntent", "artist_id", req.ArtistID)
	defer span.End()

	if user == nil {
		util.TipIntentsFailedTotal.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}

	if err := fees.ValidateAmount(req.Amount); err != nil {
		util.TipIntentsFailedTotal.WithLabelValues("out_of_range").Inc()
		return nil, err
	}

	profile, err := s.registry.GetProfile(ctx, req.ArtistID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && profile.Role != models.RoleArtist) {
		util.TipIntentsFailedTotal.WithLabelValues("artist_not_found").Inc()
		return nil, ErrArtistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artist profile: %w", err)
	}

	account, err := s.registry.GetArtistAccountByUserID(ctx, req.ArtistID)
	if errors.Is(err, store.ErrNotFound) {
		util.TipIntentsFailedTotal.WithLabelValues("not_onboarded").Inc()
		return nil, ErrArtistNotOnboarded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artist account: %w", err)
	}
	if !account.ChargesEnabled {
		util.TipIntentsFailedTotal.WithLabelValues("not_chargeable").Inc()
		return nil, ErrArtistNotChargeable
	}

	sessionID := s.resolveSession(ctx, req.SessionCode)

	breakdown := fees.Calculate(req.Amount)
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	start := time.Now()
	intent, err := s.processor.CreatePaymentIntent(ctx, processor.PaymentIntentParams{
		Amount:               req.Amount,
		Currency:             currency,
		ApplicationFeeAmount: breakdown.PlatformFee,
		DestinationAccount:   account.StripeAccountID,
		Metadata: map[string]string{
			MetaArtistID:        req.ArtistID,
			MetaCustomerID:      user.ID,
			MetaSongRequest:     req.SongRequest,
			MetaCustomerName:    req.CustomerName,
			MetaCustomerMessage: req.CustomerMessage,
			MetaSessionID:       sessionID,
		},
	})
	util.ProcessorRequestLatency.WithLabelValues("create_payment_intent").Observe(time.Since(start).Seconds())
	if err != nil {
		util.TipIntentsFailedTotal.WithLabelValues("processor_error").Inc()
		util.RecordError(ctx, err)
		return nil, err
	}

	payment := &models.Payment{
		ArtistID:              req.ArtistID,
		CustomerID:            user.ID,
		ArtistSessionID:       optional(sessionID),
		StripePaymentIntentID: intent.ID,
		AmountTotal:           breakdown.Total,
		AmountPlatformFee:     breakdown.PlatformFee,
		AmountStripeFee:       breakdown.StripeFee,
		AmountArtist:          breakdown.ArtistReceives,
		Currency:              currency,
		Status:                models.PaymentStatusPending,
		SongRequest:           optional(req.SongRequest),
		CustomerName:          optional(req.CustomerName),
		CustomerMessage:       optional(req.CustomerMessage),
	}

	// The intent already exists at the processor, so a failed insert must not
	// block the tipper. The ledger row is reconciled by hand.
	if err := s.registry.CreatePayment(ctx, payment); err != nil {
		util.TipPersistenceFailuresTotal.Inc()
		s.logger.Error("Failed to store payment record",
			zap.String("payment_intent_id", intent.ID),
			zap.String("artist_id", req.ArtistID),
			zap.Error(err))
		payment.ID = ""
	}

	util.TipIntentsCreatedTotal.Inc()
	util.TipAmountCents.Observe(float64(req.Amount))
	s.logger.Info("Tip payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("artist_id", req.ArtistID),
		zap.Int64("amount", req.Amount))

	return &CreateTipResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		PaymentID:       payment.ID,
		Breakdown:       breakdown,
	}, nil
}

// resolveSession returns the id of the active session with the given code,
// or "" when there is none.
func (s *TipService) resolveSession(ctx context.Context, code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}

	session, err := s.registry.GetActiveSessionByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Session lookup failed, continuing without session",
				zap.String("session_code", code),
				zap.Error(err))
		}
		return ""
	}
	return session.ID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
