package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tunely/internal/models"
	"tunely/internal/processor"
	"tunely/internal/store"
	"tunely/internal/util"

	"go.uber.org/zap"
)

// Outcome is the result of applying one webhook event
type Outcome int

const (
	// OutcomeApplied means the event mutated the registry
	OutcomeApplied Outcome = iota
	// OutcomeNotFound means the target row does not exist; the event is dropped
	OutcomeNotFound
	// OutcomeIgnored covers unhandled types and repeated deliveries
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "ignored"
	}
}

const defaultCustomerName = "Anonymous"

// WebhookProcessor applies processor events to the payment ledger
type WebhookProcessor struct {
	registry  Registry
	processor processor.Client
	cache     Cache
	events    Events
	claimTTL  time.Duration
	logger    *zap.Logger
}

// NewWebhookProcessor creates a new webhook processor. claimTTL bounds how long
// an in-flight delivery blocks redeliveries of the same event; completed events
// are deduplicated by the durable processed-events record.
func NewWebhookProcessor(registry Registry, proc processor.Client, cache Cache, events Events, claimTTL time.Duration) *WebhookProcessor {
	return &WebhookProcessor{
		registry:  registry,
		processor: proc,
		cache:     cache,
		events:    events,
		claimTTL:  claimTTL,
		logger:    util.GetLogger(),
	}
}

// HandleWebhook verifies the signature over the raw payload and processes the event
func (p *WebhookProcessor) HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := p.processor.ConstructEvent(payload, signature)
	if err != nil {
		util.WebhookSignatureFailuresTotal.Inc()
		p.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return OutcomeIgnored, err
	}
	return p.Process(ctx, event)
}

// Process applies a verified event once. Deliveries already handled are
// acknowledged without side effects. On error the claim is released so the
// processor's redelivery is applied.
func (p *WebhookProcessor) Process(ctx context.Context, event *processor.Event) (Outcome, error) {
	ctx, span := util.StartSpan(ctx, "WebhookProcessor.Process",
		"event_id", event.ID, "event_type", event.Type)
	defer span.End()

	start := time.Now()
	defer func() {
		util.WebhookProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	claimed, err := p.cache.ClaimEvent(ctx, event.ID, p.claimTTL)
	if err != nil {
		// fall back to the durable record
		p.logger.Warn("Failed to claim webhook event", zap.String("event_id", event.ID), zap.Error(err))
		claimed = true
	}
	if !claimed {
		util.WebhookDuplicatesTotal.Inc()
		p.logger.Info("Duplicate webhook delivery skipped", zap.String("event_id", event.ID))
		return OutcomeIgnored, nil
	}

	processed, err := p.registry.IsEventProcessed(ctx, event.ID)
	if err != nil {
		p.release(ctx, event.ID)
		return OutcomeIgnored, fmt.Errorf("failed to check processed events: %w", err)
	}
	if processed {
		util.WebhookDuplicatesTotal.Inc()
		return OutcomeIgnored, nil
	}

	outcome, err := p.dispatch(ctx, event)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		util.RecordError(ctx, err)
		p.release(ctx, event.ID)
		return outcome, err
	}
	util.WebhookEventsTotal.WithLabelValues(event.Type, outcome.String()).Inc()

	if outcome == OutcomeApplied {
		if err := p.registry.MarkEventProcessed(context.WithoutCancel(ctx), event.ID, event.Type); err != nil {
			p.logger.Error("Failed to record processed webhook event",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	return outcome, nil
}

// release drops the claim even when the delivery's request was cancelled
func (p *WebhookProcessor) release(ctx context.Context, eventID string) {
	if err := p.cache.ReleaseEvent(context.WithoutCancel(ctx), eventID); err != nil {
		p.logger.Warn("Failed to release webhook claim", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (p *WebhookProcessor) dispatch(ctx context.Context, event *processor.Event) (Outcome, error) {
	switch event.Type {
	case processor.EventPaymentIntentSucceeded:
		return p.handlePaymentSucceeded(ctx, event)
	case processor.EventPaymentIntentFailed:
		return p.handleIntentStatus(ctx, event, models.PaymentStatusFailed)
	case processor.EventPaymentIntentProcessing:
		return p.handleIntentStatus(ctx, event, models.PaymentStatusProcessing)
	case processor.EventChargeRefunded:
		return p.handleChargeRefunded(ctx, event)
	case processor.EventAccountUpdated:
		return p.handleAccountUpdated(ctx, event)
	case processor.EventPayoutPaid:
		return p.handlePayoutPaid(ctx, event)
	case processor.EventPayoutFailed:
		return p.handlePayoutFailed(ctx, event)
	default:
		p.logger.Info("Unhandled webhook event type", zap.String("event_type", event.Type))
		return OutcomeIgnored, nil
	}
}

func (p *WebhookProcessor) handlePaymentSucceeded(ctx context.Context, event *processor.Event) (Outcome, error) {
	pi, err := processor.DecodePaymentIntent(event.Data)
	if err != nil {
		return OutcomeIgnored, err
	}

	payment, err := p.registry.GetPaymentByIntentID(ctx, pi.ID)
	if errors.Is(err, store.ErrNotFound) {
		p.logger.Warn("Payment not found for succeeded intent", zap.String("payment_intent_id", pi.ID))
		return OutcomeNotFound, nil
	}
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to load payment: %w", err)
	}

	chargeID := ""
	if pi.LatestCharge != nil {
		chargeID = pi.LatestCharge.ID
	}
	found, err := p.registry.MarkPaymentSucceeded(ctx, pi.ID, chargeID)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	if !found {
		return OutcomeNotFound, nil
	}

	p.publish("TIP_SUCCEEDED", p.events.PublishTipSucceeded(ctx, &models.TipSucceededEvent{
		PaymentID:       payment.ID,
		PaymentIntentID: pi.ID,
		ArtistID:        payment.ArtistID,
		Amount:          pi.Amount,
		Currency:        payment.Currency,
	}))

	songRequest := pi.Metadata[MetaSongRequest]
	sessionID := pi.Metadata[MetaSessionID]
	if songRequest != "" && sessionID != "" {
		if err := p.enqueueSong(ctx, payment, pi.Amount, songRequest, sessionID, pi.Metadata[MetaCustomerName]); err != nil {
			return OutcomeIgnored, err
		}
	}

	p.logger.Info("Payment succeeded", zap.String("payment_intent_id", pi.ID))
	return OutcomeApplied, nil
}

func (p *WebhookProcessor) enqueueSong(ctx context.Context, payment *models.Payment, amount int64, songRequest, sessionID, customerName string) error {
	if customerName == "" {
		customerName = defaultCustomerName
	}

	entry := &models.SongQueueEntry{
		PaymentID:       payment.ID,
		ArtistSessionID: sessionID,
		SongRequest:     songRequest,
		CustomerName:    customerName,
		TipAmount:       amount,
		Status:          models.QueueStatusPending,
	}

	err := p.registry.AppendToQueue(ctx, entry)
	switch {
	case errors.Is(err, store.ErrConflict):
		p.logger.Info("Song request already queued", zap.String("payment_id", payment.ID))
		return nil
	case errors.Is(err, store.ErrNotFound):
		p.logger.Warn("Session for song request no longer exists",
			zap.String("payment_id", payment.ID),
			zap.String("session_id", sessionID))
		return nil
	case err != nil:
		return fmt.Errorf("failed to queue song request: %w", err)
	}

	util.SongsQueuedTotal.Inc()
	p.logger.Info("Song request queued",
		zap.String("session_id", sessionID),
		zap.Int("queue_position", entry.QueuePosition))

	err = p.events.PublishSongQueued(ctx, &models.SongQueuedEvent{
		QueueEntryID:  entry.ID,
		SessionID:     sessionID,
		PaymentID:     payment.ID,
		QueuePosition: entry.QueuePosition,
		SongRequest:   songRequest,
	})
	if err != nil {
		p.publish("SONG_QUEUED", err)
		// no worker refresh will follow
		if err := p.cache.InvalidateQueue(context.WithoutCancel(ctx), sessionID); err != nil {
			p.logger.Warn("Failed to drop cached queue", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

func (p *WebhookProcessor) handleIntentStatus(ctx context.Context, event *processor.Event, status string) (Outcome, error) {
	pi, err := processor.DecodePaymentIntent(event.Data)
	if err != nil {
		return OutcomeIgnored, err
	}

	found, err := p.registry.UpdatePaymentStatusByIntentID(ctx, pi.ID, status)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to update payment status: %w", err)
	}
	if !found {
		return OutcomeNotFound, nil
	}

	p.logger.Info("Payment status updated",
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", status))
	return OutcomeApplied, nil
}

func (p *WebhookProcessor) handleChargeRefunded(ctx context.Context, event *processor.Event) (Outcome, error) {
	ch, err := processor.DecodeCharge(event.Data)
	if err != nil {
		return OutcomeIgnored, err
	}

	found, err := p.registry.UpdatePaymentStatusByChargeID(ctx, ch.ID, models.PaymentStatusRefunded)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	if !found {
		return OutcomeNotFound, nil
	}

	p.logger.Info("Charge refunded", zap.String("charge_id", ch.ID))
	return OutcomeApplied, nil
}

func (p *WebhookProcessor) handleAccountUpdated(ctx context.Context, event *processor.Event) (Outcome, error) {
	acct, err := processor.DecodeAccount(event.Data)
	if err != nil {
		return OutcomeIgnored, err
	}

	caps := models.NewAccountCapabilities(acct.ChargesEnabled, acct.PayoutsEnabled, acct.DetailsSubmitted)
	found, err := p.registry.UpdateArtistAccountCapabilities(ctx, acct.ID, caps)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to update artist account: %w", err)
	}
	if !found {
		return OutcomeNotFound, nil
	}

	p.logger.Info("Artist account updated",
		zap.String("stripe_account_id", acct.ID),
		zap.String("status", caps.Status))
	return OutcomeApplied, nil
}

func (p *WebhookProcessor) handlePayoutPaid(ctx context.Context, event *processor.Event) (Outcome, error) {
	po, err := processor.DecodePayout(event.Data)
	if err != nil {
		return OutcomeIgnored, err
	}
	if po.Destination == nil || po.Destination.ID == "" {
		return OutcomeNotFound, nil
	}

	account, err := p.registry.GetArtistAccountByStripeID(ctx, po.Destination.ID)
	if errors.Is(err, store.ErrNotFound) {
		return OutcomeNotFound, nil
	}
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to load artist account: %w", err)
	}

	arrival := time.Unix(po.ArrivalDate, 0).UTC()
	payout := &models.Payout{
		ArtistID:       account.UserID,
		StripePayoutID: po.ID,
		Amount:         po.Amount,
		Currency:       string(po.Currency),
		Status:         models.PayoutStatusPaid,
		ArrivalDate:    &arrival,
	}
	if err := p.registry.UpsertPayout(ctx, payout); err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to store payout: %w", err)
	}
	if payout.Status != models.PayoutStatusPaid {
		p.logger.Warn("Paid delivery for a failed payout left unchanged", zap.String("payout_id", po.ID))
		return OutcomeApplied, nil
	}

	p.publish("PAYOUT_PAID", p.events.PublishPayoutPaid(ctx, &models.PayoutPaidEvent{
		StripePayoutID: po.ID,
		ArtistID:       account.UserID,
		Amount:         po.Amount,
		Currency:       payout.Currency,
	}))

	p.logger.Info("Payout paid", zap.String("payout_id", po.ID))
	return OutcomeApplied, nil
}

func (p *WebhookProcessor) handlePayoutFailed(ctx context.Context, event *processor.Event) (Outcome, error) {
	po, err := processor.DecodePayout(event.Data)
	if err != nil {
		return OutcomeIgnored, err
	}

	found, err := p.registry.UpdatePayoutStatus(ctx, po.ID, models.PayoutStatusFailed)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("failed to mark payout failed: %w", err)
	}
	if !found {
		return OutcomeNotFound, nil
	}

	p.logger.Info("Payout failed", zap.String("payout_id", po.ID))
	return OutcomeApplied, nil
}

// publish logs a failed publish; the webhook itself still succeeds
func (p *WebhookProcessor) publish(eventType string, err error) {
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
