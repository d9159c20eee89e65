package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tunely/internal/auth"
	"tunely/internal/models"
	"tunely/internal/processor"
	"tunely/internal/store"
	"tunely/internal/util"

	"go.uber.org/zap"
)

const (
	onboardingLockTTL = 30 * time.Second

	defaultPaymentsLimit = 50
	maxPaymentsLimit     = 100
)

// ArtistService onboards artists to connected accounts and serves their ledger
type ArtistService struct {
	registry  Registry
	processor processor.Client
	cache     Cache
	logger    *zap.Logger
}

// NewArtistService creates a new artist service
func NewArtistService(registry Registry, proc processor.Client, cache Cache) *ArtistService {
	return &ArtistService{
		registry:  registry,
		processor: proc,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

// ConnectAccountRequest optionally overrides the onboarding redirect URLs
type ConnectAccountRequest struct {
	ReturnURL  string `json:"returnUrl"`
	RefreshURL string `json:"refreshUrl"`
}

// ConnectAccountResponse points the artist at the hosted onboarding flow
type ConnectAccountResponse struct {
	URL          string `json:"url"`
	AccountID    string `json:"accountId"`
	IsNewAccount bool   `json:"isNewAccount"`
}

// CreateConnectAccount creates the caller's connected account on first use,
// refreshes its capability flags otherwise, and returns an onboarding link.
func (s *ArtistService) CreateConnectAccount(ctx context.Context, user *auth.User, req *ConnectAccountRequest, origin string) (*ConnectAccountResponse, error) {
	ctx, span := util.StartSpan(ctx, "ArtistService.CreateConnectAccount")
	defer span.End()

	if user == nil {
		return nil, ErrUnauthenticated
	}

	lockKey := "connect-account:" + user.ID
	token, ok, err := s.cache.AcquireLock(ctx, lockKey, onboardingLockTTL)
	if err != nil {
		s.logger.Warn("Failed to acquire onboarding lock, continuing", zap.String("user_id", user.ID), zap.Error(err))
	} else if !ok {
		return nil, ErrOnboardingInProgress
	} else {
		defer func() {
			if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.logger.Warn("Failed to release onboarding lock", zap.String("user_id", user.ID), zap.Error(err))
			}
		}()
	}

	accountID, isNew, err := s.ensureAccount(ctx, user)
	if err != nil {
		util.RecordError(ctx, err)
		return nil, err
	}

	origin = strings.TrimRight(origin, "/")
	refreshURL := req.RefreshURL
	if refreshURL == "" {
		refreshURL = origin + "/dashboard/artist/onboarding"
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = origin + "/dashboard/artist/onboarding/complete"
	}

	url, err := s.processor.CreateAccountLink(ctx, accountID, refreshURL, returnURL)
	if err != nil {
		return nil, err
	}

	return &ConnectAccountResponse{URL: url, AccountID: accountID, IsNewAccount: isNew}, nil
}

func (s *ArtistService) ensureAccount(ctx context.Context, user *auth.User) (string, bool, error) {
	existing, err := s.registry.GetArtistAccountByUserID(ctx, user.ID)
	if err == nil {
		acct, err := s.processor.RetrieveAccount(ctx, existing.StripeAccountID)
		if err != nil {
			return "", false, err
		}
		caps := models.NewAccountCapabilities(acct.ChargesEnabled, acct.PayoutsEnabled, acct.DetailsSubmitted)
		if err := s.registry.UpdateArtistAccountCapabilitiesByUserID(ctx, user.ID, caps); err != nil {
			return "", false, fmt.Errorf("failed to update artist account: %w", err)
		}
		return existing.StripeAccountID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, fmt.Errorf("failed to load artist account: %w", err)
	}

	acct, err := s.processor.CreateExpressAccount(ctx, user.Email)
	if err != nil {
		return "", false, err
	}

	account := &models.ArtistAccount{
		UserID:              user.ID,
		StripeAccountID:     acct.ID,
		StripeAccountStatus: models.AccountStatusPending,
	}
	if err := s.registry.CreateArtistAccount(ctx, account); err != nil {
		s.logger.Error("Failed to store artist account",
			zap.String("user_id", user.ID),
			zap.String("stripe_account_id", acct.ID),
			zap.Error(err))
		return "", false, fmt.Errorf("failed to store artist account: %w", err)
	}

	if err := s.registry.UpdateProfileRole(ctx, user.ID, models.RoleArtist); err != nil {
		s.logger.Warn("Failed to promote profile to artist", zap.String("user_id", user.ID), zap.Error(err))
	}

	util.ConnectAccountsCreatedTotal.Inc()
	s.logger.Info("Connected account created",
		zap.String("user_id", user.ID),
		zap.String("stripe_account_id", acct.ID))
	return acct.ID, true, nil
}

// GetAccountStatus returns the caller's artist account, or nil before onboarding
func (s *ArtistService) GetAccountStatus(ctx context.Context, user *auth.User) (*models.ArtistAccount, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	account, err := s.registry.GetArtistAccountByUserID(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return account, err
}

// ListPayments returns the caller's most recent payments, newest first
func (s *ArtistService) ListPayments(ctx context.Context, user *auth.User, limit int) ([]models.Payment, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	if limit <= 0 {
		limit = defaultPaymentsLimit
	}
	if limit > maxPaymentsLimit {
		limit = maxPaymentsLimit
	}

	return s.registry.ListPaymentsByArtist(ctx, user.ID, limit)
}
