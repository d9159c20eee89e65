package service

import (
	"context"
	"time"

	"tunely/internal/models"
)

// Registry is the relational store the services read and mutate.
// *store.Store implements it.
type Registry interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfileRole(ctx context.Context, id, role string) error

	GetArtistAccountByUserID(ctx context.Context, userID string) (*models.ArtistAccount, error)
	GetArtistAccountByStripeID(ctx context.Context, stripeAccountID string) (*models.ArtistAccount, error)
	CreateArtistAccount(ctx context.Context, account *models.ArtistAccount) error
	UpdateArtistAccountCapabilities(ctx context.Context, stripeAccountID string, caps models.AccountCapabilities) (bool, error)
	UpdateArtistAccountCapabilitiesByUserID(ctx context.Context, userID string, caps models.AccountCapabilities) error

	CreateSession(ctx context.Context, session *models.ArtistSession) error
	GetSession(ctx context.Context, id string) (*models.ArtistSession, error)
	GetActiveSessionByCode(ctx context.Context, code string) (*models.ArtistSession, error)
	GetActiveSessionByArtist(ctx context.Context, artistID string) (*models.ArtistSession, error)
	EndSession(ctx context.Context, id string, endedAt time.Time) (*models.ArtistSession, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	MarkPaymentSucceeded(ctx context.Context, intentID, chargeID string) (bool, error)
	UpdatePaymentStatusByIntentID(ctx context.Context, intentID, status string) (bool, error)
	UpdatePaymentStatusByChargeID(ctx context.Context, chargeID, status string) (bool, error)
	ListPaymentsByArtist(ctx context.Context, artistID string, limit int) ([]models.Payment, error)

	AppendToQueue(ctx context.Context, entry *models.SongQueueEntry) error
	ListQueue(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error)
	GetQueueEntry(ctx context.Context, id string) (*models.SongQueueEntry, error)
	UpdateQueueEntryStatus(ctx context.Context, id, status string, playedAt *time.Time) error

	UpsertPayout(ctx context.Context, payout *models.Payout) error
	UpdatePayoutStatus(ctx context.Context, stripePayoutID, status string) (bool, error)

	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Cache holds webhook claims, onboarding locks and cached session queues.
// *redisclient.Client implements it.
type Cache interface {
	ClaimEvent(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	SetQueue(ctx context.Context, sessionID string, entries []models.SongQueueEntry, ttl time.Duration) error
	GetQueue(ctx context.Context, sessionID string) ([]models.SongQueueEntry, bool, error)
	InvalidateQueue(ctx context.Context, sessionID string) error
}

// Events publishes tip domain events. *broker.EventPublisher implements it.
type Events interface {
	PublishTipSucceeded(ctx context.Context, event *models.TipSucceededEvent) error
	PublishSongQueued(ctx context.Context, event *models.SongQueuedEvent) error
	PublishQueueEntryUpdated(ctx context.Context, event *models.QueueEntryUpdatedEvent) error
	PublishPayoutPaid(ctx context.Context, event *models.PayoutPaidEvent) error
}
