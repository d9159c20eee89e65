package service

import (
	"errors"

	"tunely/internal/fees"
	"tunely/internal/processor"
)

var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrOutOfRangeAmount       = fees.ErrOutOfRangeAmount
	ErrArtistNotFound         = errors.New("Artist not found")
	ErrArtistNotOnboarded     = errors.New("Artist has not completed payment setup")
	ErrArtistNotChargeable    = errors.New("Artist cannot accept payments yet")
	ErrSignatureInvalid       = processor.ErrInvalidSignature
	ErrNotArtist              = errors.New("only artists can perform this action")
	ErrSessionNotFound        = errors.New("session not found")
	ErrNotSessionOwner        = errors.New("session belongs to another artist")
	ErrQueueEntryNotFound     = errors.New("queue entry not found")
	ErrInvalidQueueTransition = errors.New("invalid queue status transition")
	ErrOnboardingInProgress   = errors.New("onboarding already in progress")
)
