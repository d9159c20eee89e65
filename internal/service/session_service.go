package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"tunely/internal/auth"
	"tunely/internal/models"
	"tunely/internal/store"
	"tunely/internal/util"

	"go.uber.org/zap"
)

const (
	sessionCodeLength   = 8
	sessionCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	sessionCodeAttempts = 5
)

// queueTransitions lists the statuses each queue status may move to
var queueTransitions = map[string][]string{
	models.QueueStatusPending: {models.QueueStatusPlaying, models.QueueStatusSkipped},
	models.QueueStatusPlaying: {models.QueueStatusCompleted, models.QueueStatusSkipped},
}

// SessionService manages live sessions and their song request queues
type SessionService struct {
	registry Registry
	cache    Cache
	events   Events
	queueTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(registry Registry, cache Cache, events Events, queueTTL time.Duration) *SessionService {
	return &SessionService{
		registry: registry,
		cache:    cache,
		events:   events,
		queueTTL: queueTTL,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// CreateSessionRequest is the body of a session start request
type CreateSessionRequest struct {
	Location string `json:"location" binding:"max=200"`
}

// CreateSession starts a live session with a fresh shareable code
func (s *SessionService) CreateSession(ctx context.Context, user *auth.User, req *CreateSessionRequest) (*models.ArtistSession, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.CreateSession")
	defer span.End()

	if err := s.requireArtist(ctx, user); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < sessionCodeAttempts; attempt++ {
		code, err := generateSessionCode()
		if err != nil {
			return nil, err
		}

		session := &models.ArtistSession{
			ArtistID:    user.ID,
			SessionCode: code,
			Location:    optional(req.Location),
		}
		err = s.registry.CreateSession(ctx, session)
		if errors.Is(err, store.ErrConflict) {
			s.logger.Debug("Session code collision, retrying", zap.String("session_code", code))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		s.logger.Info("Session started",
			zap.String("session_id", session.ID),
			zap.String("artist_id", user.ID))
		return session, nil
	}

	return nil, fmt.Errorf("failed to allocate a unique session code after %d attempts", sessionCodeAttempts)
}

// EndSession ends one of the caller's sessions
func (s *SessionService) EndSession(ctx context.Context, user *auth.User, sessionID string) (*models.ArtistSession, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := s.ownedSession(ctx, user, sessionID); err != nil {
		return nil, err
	}

	session, err := s.registry.EndSession(ctx, sessionID, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	if err := s.cache.InvalidateQueue(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to drop cached queue", zap.String("session_id", sessionID), zap.Error(err))
	}
	return session, nil
}

// GetActiveSession returns the caller's latest active session, or nil
func (s *SessionService) GetActiveSession(ctx context.Context, user *auth.User) (*models.ArtistSession, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.registry.GetActiveSessionByArtist(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return session, err
}

// GetQueue returns a session's queue ordered by position
func (s *SessionService) GetQueue(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error) {
	entries, hit, err := s.cache.GetQueue(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Queue cache read failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if hit {
		util.QueueCacheRequestsTotal.WithLabelValues("hit").Inc()
		return entries, nil
	}
	util.QueueCacheRequestsTotal.WithLabelValues("miss").Inc()

	if _, err := s.registry.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return s.RefreshQueueCache(ctx, sessionID)
}

// RefreshQueueCache reloads a session's queue from the registry into the cache
func (s *SessionService) RefreshQueueCache(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error) {
	entries, err := s.registry.ListQueue(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	if err := s.cache.SetQueue(ctx, sessionID, entries, s.queueTTL); err != nil {
		s.logger.Warn("Failed to cache queue", zap.String("session_id", sessionID), zap.Error(err))
	}
	return entries, nil
}

// UpdateQueueEntryRequest is the body of a queue status change
type UpdateQueueEntryRequest struct {
	Status string `json:"status" binding:"required,oneof=playing completed skipped"`
}

// UpdateQueueEntryStatus moves a queue entry along. Only the session owner may
// do so, and only along pending→playing|skipped or playing→completed|skipped.
func (s *SessionService) UpdateQueueEntryStatus(ctx context.Context, user *auth.User, entryID, status string) (*models.SongQueueEntry, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.UpdateQueueEntryStatus", "queue_entry_id", entryID)
	defer span.End()

	if user == nil {
		return nil, ErrUnauthenticated
	}

	entry, err := s.registry.GetQueueEntry(ctx, entryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrQueueEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedSession(ctx, user, entry.ArtistSessionID); err != nil {
		return nil, err
	}

	if !canTransition(entry.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidQueueTransition, entry.Status, status)
	}

	var playedAt *time.Time
	if status == models.QueueStatusCompleted {
		now := s.now().UTC()
		playedAt = &now
		entry.PlayedAt = playedAt
	}
	if err := s.registry.UpdateQueueEntryStatus(ctx, entryID, status, playedAt); err != nil {
		return nil, fmt.Errorf("failed to update queue entry: %w", err)
	}
	entry.Status = status

	if err := s.events.PublishQueueEntryUpdated(ctx, &models.QueueEntryUpdatedEvent{
		QueueEntryID: entry.ID,
		SessionID:    entry.ArtistSessionID,
		Status:       status,
	}); err != nil {
		s.logger.Error("Failed to publish QueueEntryUpdated event", zap.Error(err))
		// the worker will not refresh the cache, so drop it here
		if err := s.cache.InvalidateQueue(ctx, entry.ArtistSessionID); err != nil {
			s.logger.Warn("Failed to drop cached queue", zap.Error(err))
		}
	}

	return entry, nil
}

func (s *SessionService) requireArtist(ctx context.Context, user *auth.User) error {
	if user == nil {
		return ErrUnauthenticated
	}

	profile, err := s.registry.GetProfile(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotArtist
	}
	if err != nil {
		return err
	}
	if profile.Role != models.RoleArtist {
		return ErrNotArtist
	}
	return nil
}

func (s *SessionService) ownedSession(ctx context.Context, user *auth.User, sessionID string) (*models.ArtistSession, error) {
	session, err := s.registry.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.ArtistID != user.ID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

func canTransition(from, to string) bool {
	for _, allowed := range queueTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func generateSessionCode() (string, error) {
	code := make([]byte, sessionCodeLength)
	alphabetSize := big.NewInt(int64(len(sessionCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}
		code[i] = sessionCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
