package store

import (
	"context"
	"time"

	"tunely/internal/models"
)

const sessionColumns = `id, artist_id, session_code, location, is_active, started_at, ended_at, created_at`

// CreateSession starts a live session. Returns ErrConflict when the code is
// already used by another active session.
func (s *Store) CreateSession(ctx context.Context, session *models.ArtistSession) error {
	query := `
		INSERT INTO artist_sessions (artist_id, session_code, location, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, is_active, started_at, created_at`

	err := s.db.GetContext(ctx, session, query,
		session.ArtistID, session.SessionCode, session.Location)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, id string) (*models.ArtistSession, error) {
	var session models.ArtistSession
	err := s.db.GetContext(ctx, &session,
		"SELECT "+sessionColumns+" FROM artist_sessions WHERE id = $1", id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveSessionByCode resolves the unique active session with the given code
func (s *Store) GetActiveSessionByCode(ctx context.Context, code string) (*models.ArtistSession, error) {
	var session models.ArtistSession
	err := s.db.GetContext(ctx, &session,
		"SELECT "+sessionColumns+" FROM artist_sessions WHERE session_code = $1 AND is_active = TRUE", code)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveSessionByArtist returns the artist's most recent active session
func (s *Store) GetActiveSessionByArtist(ctx context.Context, artistID string) (*models.ArtistSession, error) {
	var session models.ArtistSession
	err := s.db.GetContext(ctx, &session, `
		SELECT `+sessionColumns+` FROM artist_sessions
		WHERE artist_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC LIMIT 1`, artistID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession deactivates a session
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) (*models.ArtistSession, error) {
	var session models.ArtistSession
	err := s.db.GetContext(ctx, &session, `
		UPDATE artist_sessions SET is_active = FALSE, ended_at = $1
		WHERE id = $2
		RETURNING `+sessionColumns, endedAt, id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
