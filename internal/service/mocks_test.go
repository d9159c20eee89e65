package service

import (
	"context"
	"testing"
	"time"

	"tunely/internal/models"
	"tunely/internal/processor"
	"tunely/internal/redisclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *mockRegistry) UpdateProfileRole(ctx context.Context, id, role string) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *mockRegistry) GetArtistAccountByUserID(ctx context.Context, userID string) (*models.ArtistAccount, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(*models.ArtistAccount)
	return a, args.Error(1)
}

func (m *mockRegistry) GetArtistAccountByStripeID(ctx context.Context, stripeAccountID string) (*models.ArtistAccount, error) {
	args := m.Called(ctx, stripeAccountID)
	a, _ := args.Get(0).(*models.ArtistAccount)
	return a, args.Error(1)
}

func (m *mockRegistry) CreateArtistAccount(ctx context.Context, account *models.ArtistAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockRegistry) UpdateArtistAccountCapabilities(ctx context.Context, stripeAccountID string, caps models.AccountCapabilities) (bool, error) {
	args := m.Called(ctx, stripeAccountID, caps)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) UpdateArtistAccountCapabilitiesByUserID(ctx context.Context, userID string, caps models.AccountCapabilities) error {
	return m.Called(ctx, userID, caps).Error(0)
}

func (m *mockRegistry) CreateSession(ctx context.Context, session *models.ArtistSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockRegistry) GetSession(ctx context.Context, id string) (*models.ArtistSession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.ArtistSession)
	return s, args.Error(1)
}

func (m *mockRegistry) GetActiveSessionByCode(ctx context.Context, code string) (*models.ArtistSession, error) {
	args := m.Called(ctx, code)
	s, _ := args.Get(0).(*models.ArtistSession)
	return s, args.Error(1)
}

func (m *mockRegistry) GetActiveSessionByArtist(ctx context.Context, artistID string) (*models.ArtistSession, error) {
	args := m.Called(ctx, artistID)
	s, _ := args.Get(0).(*models.ArtistSession)
	return s, args.Error(1)
}

func (m *mockRegistry) EndSession(ctx context.Context, id string, endedAt time.Time) (*models.ArtistSession, error) {
	args := m.Called(ctx, id, endedAt)
	s, _ := args.Get(0).(*models.ArtistSession)
	return s, args.Error(1)
}

func (m *mockRegistry) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockRegistry) GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	args := m.Called(ctx, intentID)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *mockRegistry) MarkPaymentSucceeded(ctx context.Context, intentID, chargeID string) (bool, error) {
	args := m.Called(ctx, intentID, chargeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) UpdatePaymentStatusByIntentID(ctx context.Context, intentID, status string) (bool, error) {
	args := m.Called(ctx, intentID, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) UpdatePaymentStatusByChargeID(ctx context.Context, chargeID, status string) (bool, error) {
	args := m.Called(ctx, chargeID, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) ListPaymentsByArtist(ctx context.Context, artistID string, limit int) ([]models.Payment, error) {
	args := m.Called(ctx, artistID, limit)
	p, _ := args.Get(0).([]models.Payment)
	return p, args.Error(1)
}

func (m *mockRegistry) AppendToQueue(ctx context.Context, entry *models.SongQueueEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockRegistry) ListQueue(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error) {
	args := m.Called(ctx, sessionID)
	e, _ := args.Get(0).([]models.SongQueueEntry)
	return e, args.Error(1)
}

func (m *mockRegistry) GetQueueEntry(ctx context.Context, id string) (*models.SongQueueEntry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*models.SongQueueEntry)
	return e, args.Error(1)
}

func (m *mockRegistry) UpdateQueueEntryStatus(ctx context.Context, id, status string, playedAt *time.Time) error {
	return m.Called(ctx, id, status, playedAt).Error(0)
}

func (m *mockRegistry) UpsertPayout(ctx context.Context, payout *models.Payout) error {
	return m.Called(ctx, payout).Error(0)
}

func (m *mockRegistry) UpdatePayoutStatus(ctx context.Context, stripePayoutID, status string) (bool, error) {
	args := m.Called(ctx, stripePayoutID, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	return m.Called(ctx, eventID, eventType).Error(0)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreatePaymentIntent(ctx context.Context, params processor.PaymentIntentParams) (*processor.PaymentIntent, error) {
	args := m.Called(ctx, params)
	pi, _ := args.Get(0).(*processor.PaymentIntent)
	return pi, args.Error(1)
}

func (m *mockProcessor) CreateExpressAccount(ctx context.Context, email string) (*processor.Account, error) {
	args := m.Called(ctx, email)
	a, _ := args.Get(0).(*processor.Account)
	return a, args.Error(1)
}

func (m *mockProcessor) RetrieveAccount(ctx context.Context, accountID string) (*processor.Account, error) {
	args := m.Called(ctx, accountID)
	a, _ := args.Get(0).(*processor.Account)
	return a, args.Error(1)
}

func (m *mockProcessor) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) ConstructEvent(payload []byte, signature string) (*processor.Event, error) {
	args := m.Called(payload, signature)
	e, _ := args.Get(0).(*processor.Event)
	return e, args.Error(1)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishTipSucceeded(ctx context.Context, event *models.TipSucceededEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishSongQueued(ctx context.Context, event *models.SongQueuedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishQueueEntryUpdated(ctx context.Context, event *models.QueueEntryUpdatedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishPayoutPaid(ctx context.Context, event *models.PayoutPaidEvent) error {
	return m.Called(ctx, event).Error(0)
}

func newTestCache(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return redisclient.Wrap(rdb), s
}

