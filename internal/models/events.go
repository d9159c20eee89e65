package models

import "time"

// Event types published on the tip events topic
const (
	EventTypeTipSucceeded      = "TIP_SUCCEEDED"
	EventTypeSongQueued        = "SONG_QUEUED"
	EventTypeQueueEntryUpdated = "QUEUE_ENTRY_UPDATED"
	EventTypePayoutPaid        = "PAYOUT_PAID"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TipSucceededEvent published when a tip payment settles
type TipSucceededEvent struct {
	BaseEvent
	PaymentID       string `json:"payment_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ArtistID        string `json:"artist_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// SongQueuedEvent published when a paid song request joins a session queue
type SongQueuedEvent struct {
	BaseEvent
	QueueEntryID  string `json:"queue_entry_id"`
	SessionID     string `json:"session_id"`
	PaymentID     string `json:"payment_id"`
	QueuePosition int    `json:"queue_position"`
	SongRequest   string `json:"song_request"`
}

// QueueEntryUpdatedEvent published when the artist moves a request along
type QueueEntryUpdatedEvent struct {
	BaseEvent
	QueueEntryID string `json:"queue_entry_id"`
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
}

// PayoutPaidEvent published when a payout lands in an artist's bank
type PayoutPaidEvent struct {
	BaseEvent
	StripePayoutID string `json:"stripe_payout_id"`
	ArtistID       string `json:"artist_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}
