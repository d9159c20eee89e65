package service

import (
	"context"
	"testing"
	"time"

	"tunely/internal/auth"
	"tunely/internal/models"
	"tunely/internal/processor"
	"tunely/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var artistUser = &auth.User{ID: "artist-1", Email: "artist@example.com"}

func TestCreateConnectAccountNewAccount(t *testing.T) {
	reg := new(mockRegistry)
	proc := new(mockProcessor)
	cache, mr := newTestCache(t)
	svc := NewArtistService(reg, proc, cache)

	reg.On("GetArtistAccountByUserID", mock.Anything, "artist-1").Return(nil, store.ErrNotFound)
	proc.On("CreateExpressAccount", mock.Anything, "artist@example.com").
		Return(&processor.Account{ID: "acct_new"}, nil)
	reg.On("CreateArtistAccount", mock.Anything, mock.MatchedBy(func(a *models.ArtistAccount) bool {
		return a.UserID == "artist-1" &&
			a.StripeAccountID == "acct_new" &&
			a.StripeAccountStatus == models.AccountStatusPending &&
			!a.ChargesEnabled && !a.PayoutsEnabled && !a.DetailsSubmitted
	})).Return(nil)
	reg.On("UpdateProfileRole", mock.Anything, "artist-1", models.RoleArtist).Return(nil)
	proc.On("CreateAccountLink", mock.Anything, "acct_new",
		"https://tunely.app/dashboard/artist/onboarding",
		"https://tunely.app/dashboard/artist/onboarding/complete").
		Return("https://connect.stripe.com/setup/abc", nil)

	resp, err := svc.CreateConnectAccount(context.Background(), artistUser, &ConnectAccountRequest{}, "https://tunely.app/")

	require.NoError(t, err)
	assert.Equal(t, &ConnectAccountResponse{
		URL:          "https://connect.stripe.com/setup/abc",
		AccountID:    "acct_new",
		IsNewAccount: true,
	}, resp)
	assert.False(t, mr.Exists("lock:connect-account:artist-1"), "lock must be released")
	reg.AssertExpectations(t)
	proc.AssertExpectations(t)
}

func TestCreateConnectAccountExistingRefreshesFlags(t *testing.T) {
	reg := new(mockRegistry)
	proc := new(mockProcessor)
	cache, _ := newTestCache(t)
	svc := NewArtistService(reg, proc, cache)

	reg.On("GetArtistAccountByUserID", mock.Anything, "artist-1").
		Return(&models.ArtistAccount{UserID: "artist-1", StripeAccountID: "acct_1"}, nil)
	proc.On("RetrieveAccount", mock.Anything, "acct_1").
		Return(&processor.Account{ID: "acct_1", ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, nil)
	reg.On("UpdateArtistAccountCapabilitiesByUserID", mock.Anything, "artist-1",
		models.NewAccountCapabilities(true, true, true)).Return(nil)
	proc.On("CreateAccountLink", mock.Anything, "acct_1", "https://x/refresh", "https://x/return").
		Return("https://connect.stripe.com/setup/def", nil)

	resp, err := svc.CreateConnectAccount(context.Background(), artistUser, &ConnectAccountRequest{
		ReturnURL:  "https://x/return",
		RefreshURL: "https://x/refresh",
	}, "https://tunely.app")

	require.NoError(t, err)
	assert.False(t, resp.IsNewAccount)
	assert.Equal(t, "acct_1", resp.AccountID)
	proc.AssertNotCalled(t, "CreateExpressAccount", mock.Anything, mock.Anything)
	reg.AssertNotCalled(t, "UpdateProfileRole", mock.Anything, mock.Anything, mock.Anything)
	reg.AssertExpectations(t)
}

func TestCreateConnectAccountStoreFailureIsFatal(t *testing.T) {
	reg := new(mockRegistry)
	proc := new(mockProcessor)
	cache, _ := newTestCache(t)
	svc := NewArtistService(reg, proc, cache)

	reg.On("GetArtistAccountByUserID", mock.Anything, "artist-1").Return(nil, store.ErrNotFound)
	proc.On("CreateExpressAccount", mock.Anything, mock.Anything).Return(&processor.Account{ID: "acct_new"}, nil)
	reg.On("CreateArtistAccount", mock.Anything, mock.Anything).Return(store.ErrConflict)

	_, err := svc.CreateConnectAccount(context.Background(), artistUser, &ConnectAccountRequest{}, "https://tunely.app")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store artist account")
	proc.AssertNotCalled(t, "CreateAccountLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateConnectAccountConcurrentAttempt(t *testing.T) {
	reg := new(mockRegistry)
	proc := new(mockProcessor)
	cache, _ := newTestCache(t)
	svc := NewArtistService(reg, proc, cache)

	_, ok, err := cache.AcquireLock(context.Background(), "connect-account:artist-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.CreateConnectAccount(context.Background(), artistUser, &ConnectAccountRequest{}, "https://tunely.app")

	assert.ErrorIs(t, err, ErrOnboardingInProgress)
	reg.AssertNotCalled(t, "GetArtistAccountByUserID", mock.Anything, mock.Anything)
}

func TestGetAccountStatusBeforeOnboarding(t *testing.T) {
	reg := new(mockRegistry)
	cache, _ := newTestCache(t)
	svc := NewArtistService(reg, new(mockProcessor), cache)

	reg.On("GetArtistAccountByUserID", mock.Anything, "artist-1").Return(nil, store.ErrNotFound)

	account, err := svc.GetAccountStatus(context.Background(), artistUser)
	require.NoError(t, err)
	assert.Nil(t, account)

	_, err = svc.GetAccountStatus(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListPaymentsClampsLimit(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{0, 50},
		{-1, 50},
		{20, 20},
		{500, 100},
	}

	for _, tt := range tests {
		reg := new(mockRegistry)
		cache, _ := newTestCache(t)
		svc := NewArtistService(reg, new(mockProcessor), cache)
		reg.On("ListPaymentsByArtist", mock.Anything, "artist-1", tt.want).Return([]models.Payment{}, nil)

		_, err := svc.ListPayments(context.Background(), artistUser, tt.requested)

		require.NoError(t, err)
		reg.AssertExpectations(t)
	}
}
