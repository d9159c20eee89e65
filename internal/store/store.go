package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tunely/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when an exact-match lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a unique constraint
	ErrConflict = errors.New("conflict")
)

const (
	uniqueViolation      = "23505"
	invalidTextRepresent = "22P02"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isNotFound reports whether a lookup matched nothing. A malformed UUID key
// cannot match any row either.
func isNotFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresent
}

func rowsMatched(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const profileColumns = `id, email, display_name, role, created_at`

// GetProfile retrieves a profile by user ID
func (s *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.GetContext(ctx, &profile,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfileRole changes a user's role
func (s *Store) UpdateProfileRole(ctx context.Context, id, role string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE profiles SET role = $1 WHERE id = $2", role, id)
	return err
}

const accountColumns = `id, user_id, stripe_account_id, stripe_account_status, onboarding_completed,
	charges_enabled, payouts_enabled, details_submitted, created_at, updated_at`

// GetArtistAccountByUserID retrieves the connected account of an artist
func (s *Store) GetArtistAccountByUserID(ctx context.Context, userID string) (*models.ArtistAccount, error) {
	var account models.ArtistAccount
	err := s.db.GetContext(ctx, &account,
		"SELECT "+accountColumns+" FROM artist_accounts WHERE user_id = $1", userID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetArtistAccountByStripeID retrieves an artist account by processor sub-account ID
func (s *Store) GetArtistAccountByStripeID(ctx context.Context, stripeAccountID string) (*models.ArtistAccount, error) {
	var account models.ArtistAccount
	err := s.db.GetContext(ctx, &account,
		"SELECT "+accountColumns+" FROM artist_accounts WHERE stripe_account_id = $1", stripeAccountID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateArtistAccount stores a freshly created connected account
func (s *Store) CreateArtistAccount(ctx context.Context, account *models.ArtistAccount) error {
	query := `
		INSERT INTO artist_accounts (user_id, stripe_account_id, stripe_account_status,
			onboarding_completed, charges_enabled, payouts_enabled, details_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, account, query,
		account.UserID, account.StripeAccountID, account.StripeAccountStatus,
		account.OnboardingCompleted, account.ChargesEnabled, account.PayoutsEnabled,
		account.DetailsSubmitted)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// UpdateArtistAccountCapabilities refreshes capability flags by processor account ID.
// Reports whether a row matched.
func (s *Store) UpdateArtistAccountCapabilities(ctx context.Context, stripeAccountID string, caps models.AccountCapabilities) (bool, error) {
	return rowsMatched(s.db.ExecContext(ctx, `
		UPDATE artist_accounts
		SET stripe_account_status = $1, onboarding_completed = $2, charges_enabled = $3,
			payouts_enabled = $4, details_submitted = $5, updated_at = NOW()
		WHERE stripe_account_id = $6`,
		caps.Status, caps.OnboardingCompleted, caps.ChargesEnabled,
		caps.PayoutsEnabled, caps.DetailsSubmitted, stripeAccountID))
}

// UpdateArtistAccountCapabilitiesByUserID refreshes capability flags by artist
func (s *Store) UpdateArtistAccountCapabilitiesByUserID(ctx context.Context, userID string, caps models.AccountCapabilities) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE artist_accounts
		SET stripe_account_status = $1, onboarding_completed = $2, charges_enabled = $3,
			payouts_enabled = $4, details_submitted = $5, updated_at = NOW()
		WHERE user_id = $6`,
		caps.Status, caps.OnboardingCompleted, caps.ChargesEnabled,
		caps.PayoutsEnabled, caps.DetailsSubmitted, userID)
	return err
}
