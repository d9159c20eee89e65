package store

import (
	"context"
	"time"

	"tunely/internal/models"
)

const paymentColumns = `id, artist_id, customer_id, artist_session_id, stripe_payment_intent_id,
	stripe_charge_id, amount_total, amount_platform_fee, amount_stripe_fee, amount_artist,
	currency, status, song_request, customer_name, customer_message, created_at, updated_at`

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (artist_id, customer_id, artist_session_id, stripe_payment_intent_id,
			amount_total, amount_platform_fee, amount_stripe_fee, amount_artist, status, currency,
			song_request, customer_name, customer_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, payment, query,
		payment.ArtistID, payment.CustomerID, payment.ArtistSessionID, payment.StripePaymentIntentID,
		payment.AmountTotal, payment.AmountPlatformFee, payment.AmountStripeFee, payment.AmountArtist,
		payment.Status, payment.Currency, payment.SongRequest, payment.CustomerName, payment.CustomerMessage)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetPaymentByIntentID retrieves a payment by processor payment-intent ID
func (s *Store) GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT "+paymentColumns+" FROM payments WHERE stripe_payment_intent_id = $1", intentID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkPaymentSucceeded records success and the settling charge. Reports whether a row matched.
func (s *Store) MarkPaymentSucceeded(ctx context.Context, intentID, chargeID string) (bool, error) {
	return rowsMatched(s.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, stripe_charge_id = NULLIF($2, ''), updated_at = NOW()
		WHERE stripe_payment_intent_id = $3`,
		models.PaymentStatusSucceeded, chargeID, intentID))
}

// UpdatePaymentStatusByIntentID updates payment status. Reports whether a row matched.
func (s *Store) UpdatePaymentStatusByIntentID(ctx context.Context, intentID, status string) (bool, error) {
	return rowsMatched(s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, updated_at = NOW() WHERE stripe_payment_intent_id = $2",
		status, intentID))
}

// UpdatePaymentStatusByChargeID updates payment status. Reports whether a row matched.
func (s *Store) UpdatePaymentStatusByChargeID(ctx context.Context, chargeID, status string) (bool, error) {
	return rowsMatched(s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, updated_at = NOW() WHERE stripe_charge_id = $2",
		status, chargeID))
}

// ListPaymentsByArtist retrieves an artist's payments, newest first
func (s *Store) ListPaymentsByArtist(ctx context.Context, artistID string, limit int) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := s.db.SelectContext(ctx, &payments,
		"SELECT "+paymentColumns+" FROM payments WHERE artist_id = $1 ORDER BY created_at DESC LIMIT $2",
		artistID, limit)
	return payments, err
}

const queueColumns = `id, payment_id, artist_session_id, song_request, customer_name, tip_amount,
	queue_position, status, played_at, created_at`

// AppendToQueue assigns the next queue position of the session and inserts the entry.
// The session row is locked for the duration so concurrent appends serialize.
// Returns ErrNotFound if the session does not exist and ErrConflict if the payment
// is already queued.
func (s *Store) AppendToQueue(ctx context.Context, entry *models.SongQueueEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var sessionID string
	err = tx.GetContext(ctx, &sessionID,
		"SELECT id FROM artist_sessions WHERE id = $1 FOR UPDATE", entry.ArtistSessionID)
	if isNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var maxPosition int
	err = tx.GetContext(ctx, &maxPosition,
		"SELECT COALESCE(MAX(queue_position), 0) FROM song_queue WHERE artist_session_id = $1",
		entry.ArtistSessionID)
	if err != nil {
		return err
	}
	entry.QueuePosition = maxPosition + 1

	err = tx.GetContext(ctx, entry, `
		INSERT INTO song_queue (payment_id, artist_session_id, song_request, customer_name,
			tip_amount, queue_position, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		entry.PaymentID, entry.ArtistSessionID, entry.SongRequest, entry.CustomerName,
		entry.TipAmount, entry.QueuePosition, entry.Status)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListQueue retrieves a session's queue in play order
func (s *Store) ListQueue(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error) {
	entries := []models.SongQueueEntry{}
	err := s.db.SelectContext(ctx, &entries,
		"SELECT "+queueColumns+" FROM song_queue WHERE artist_session_id = $1 ORDER BY queue_position ASC",
		sessionID)
	return entries, err
}

// GetQueueEntry retrieves a queue entry by ID
func (s *Store) GetQueueEntry(ctx context.Context, id string) (*models.SongQueueEntry, error) {
	var entry models.SongQueueEntry
	err := s.db.GetContext(ctx, &entry,
		"SELECT "+queueColumns+" FROM song_queue WHERE id = $1", id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateQueueEntryStatus sets a queue entry's status; playedAt is kept when nil
func (s *Store) UpdateQueueEntryStatus(ctx context.Context, id, status string, playedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE song_queue SET status = $1, played_at = COALESCE($2, played_at) WHERE id = $3",
		status, playedAt, id)
	return err
}

// UpsertPayout records a payout. On redelivery the arrival date is refreshed,
// but a payout already marked failed keeps that status.
func (s *Store) UpsertPayout(ctx context.Context, payout *models.Payout) error {
	query := `
		INSERT INTO payouts (artist_id, stripe_payout_id, amount, currency, status, arrival_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stripe_payout_id) DO UPDATE
		SET status = CASE WHEN payouts.status = $7 THEN payouts.status ELSE EXCLUDED.status END,
			arrival_date = EXCLUDED.arrival_date, updated_at = NOW()
		RETURNING id, status, created_at, updated_at`

	return s.db.GetContext(ctx, payout, query,
		payout.ArtistID, payout.StripePayoutID, payout.Amount, payout.Currency,
		payout.Status, payout.ArrivalDate, models.PayoutStatusFailed)
}

// UpdatePayoutStatus updates payout status. Reports whether a row matched.
func (s *Store) UpdatePayoutStatus(ctx context.Context, stripePayoutID, status string) (bool, error) {
	return rowsMatched(s.db.ExecContext(ctx,
		"UPDATE payouts SET status = $1, updated_at = NOW() WHERE stripe_payout_id = $2",
		status, stripePayoutID))
}

// IsEventProcessed checks if a webhook event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_webhook_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks a webhook event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_webhook_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
