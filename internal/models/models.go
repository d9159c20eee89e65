package models

import "time"

// Profile is the application-side view of an authenticated user
type Profile struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	DisplayName *string   `db:"display_name" json:"display_name,omitempty"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ArtistAccount links an artist to their connected payment sub-account
type ArtistAccount struct {
	ID                  string    `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	StripeAccountID     string    `db:"stripe_account_id" json:"stripe_account_id"`
	StripeAccountStatus string    `db:"stripe_account_status" json:"stripe_account_status"`
	OnboardingCompleted bool      `db:"onboarding_completed" json:"onboarding_completed"`
	ChargesEnabled      bool      `db:"charges_enabled" json:"charges_enabled"`
	PayoutsEnabled      bool      `db:"payouts_enabled" json:"payouts_enabled"`
	DetailsSubmitted    bool      `db:"details_submitted" json:"details_submitted"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// AccountCapabilities is the set of fields refreshed whenever the processor
// reports a change on a connected account
type AccountCapabilities struct {
	Status              string
	OnboardingCompleted bool
	ChargesEnabled      bool
	PayoutsEnabled      bool
	DetailsSubmitted    bool
}

// NewAccountCapabilities derives the status string from the processor flags
func NewAccountCapabilities(chargesEnabled, payoutsEnabled, detailsSubmitted bool) AccountCapabilities {
	status := AccountStatusPending
	if chargesEnabled {
		status = AccountStatusActive
	}
	return AccountCapabilities{
		Status:              status,
		OnboardingCompleted: detailsSubmitted,
		ChargesEnabled:      chargesEnabled,
		PayoutsEnabled:      payoutsEnabled,
		DetailsSubmitted:    detailsSubmitted,
	}
}

// ArtistSession is one live performance
type ArtistSession struct {
	ID          string     `db:"id" json:"id"`
	ArtistID    string     `db:"artist_id" json:"artist_id"`
	SessionCode string     `db:"session_code" json:"session_code"`
	Location    *string    `db:"location" json:"location,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	EndedAt     *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Payment is a single tip in the ledger
type Payment struct {
	ID                    string    `db:"id" json:"id"`
	ArtistID              string    `db:"artist_id" json:"artist_id"`
	CustomerID            string    `db:"customer_id" json:"customer_id"`
	ArtistSessionID       *string   `db:"artist_session_id" json:"artist_session_id,omitempty"`
	StripePaymentIntentID string    `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	StripeChargeID        *string   `db:"stripe_charge_id" json:"stripe_charge_id,omitempty"`
	AmountTotal           int64     `db:"amount_total" json:"amount_total"`
	AmountPlatformFee     int64     `db:"amount_platform_fee" json:"amount_platform_fee"`
	AmountStripeFee       int64     `db:"amount_stripe_fee" json:"amount_stripe_fee"`
	AmountArtist          int64     `db:"amount_artist" json:"amount_artist"`
	Currency              string    `db:"currency" json:"currency"`
	Status                string    `db:"status" json:"status"`
	SongRequest           *string   `db:"song_request" json:"song_request,omitempty"`
	CustomerName          *string   `db:"customer_name" json:"customer_name,omitempty"`
	CustomerMessage       *string   `db:"customer_message" json:"customer_message,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// SongQueueEntry is a paid song request waiting in a session's queue
type SongQueueEntry struct {
	ID              string     `db:"id" json:"id"`
	PaymentID       string     `db:"payment_id" json:"payment_id"`
	ArtistSessionID string     `db:"artist_session_id" json:"artist_session_id"`
	SongRequest     string     `db:"song_request" json:"song_request"`
	CustomerName    string     `db:"customer_name" json:"customer_name"`
	TipAmount       int64      `db:"tip_amount" json:"tip_amount"`
	QueuePosition   int        `db:"queue_position" json:"queue_position"`
	Status          string     `db:"status" json:"status"`
	PlayedAt        *time.Time `db:"played_at" json:"played_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Payout is a transfer from a connected account to the artist's bank
type Payout struct {
	ID             string     `db:"id" json:"id"`
	ArtistID       string     `db:"artist_id" json:"artist_id"`
	StripePayoutID string     `db:"stripe_payout_id" json:"stripe_payout_id"`
	Amount         int64      `db:"amount" json:"amount"`
	Currency       string     `db:"currency" json:"currency"`
	Status         string     `db:"status" json:"status"`
	ArrivalDate    *time.Time `db:"arrival_date" json:"arrival_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile roles
const (
	RoleFan    = "fan"
	RoleArtist = "artist"
)

// Artist account statuses
const (
	AccountStatusPending = "pending"
	AccountStatusActive  = "active"
)

// Payment statuses
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Queue entry statuses
const (
	QueueStatusPending   = "pending"
	QueueStatusPlaying   = "playing"
	QueueStatusCompleted = "completed"
	QueueStatusSkipped   = "skipped"
)

// Payout statuses
const (
	PayoutStatusPending = "pending"
	PayoutStatusPaid    = "paid"
	PayoutStatusFailed  = "failed"
)

// ProcessedWebhookEvent records a webhook delivery whose side effects completed
type ProcessedWebhookEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
