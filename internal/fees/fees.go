// Package fees converts a gross tip amount (in minor currency units) into the
// platform fee, the estimated processor fee and the artist's net payout.
package fees

import (
	"errors"
	"fmt"
	"math"
)

const (
	// PlatformFeeRate is the share of every tip kept by the platform.
	PlatformFeeRate = 0.01

	// ProcessorFeeRate and ProcessorFeeFixed estimate the card processor's cut.
	ProcessorFeeRate  = 0.029
	ProcessorFeeFixed = 30

	MinTipAmount int64 = 1000
	MaxTipAmount int64 = 50000
)

// ErrOutOfRangeAmount matches every AmountError via errors.Is.
var ErrOutOfRangeAmount = errors.New("tip amount out of range")

// AmountError reports a tip amount outside [MinTipAmount, MaxTipAmount].
// Its message is user-facing.
type AmountError struct {
	Amount int64
	Limit  int64
	Below  bool
}

func (e *AmountError) Error() string {
	if e.Below {
		return fmt.Sprintf("Minimum tip amount is $%d", e.Limit/100)
	}
	return fmt.Sprintf("Maximum tip amount is $%d", e.Limit/100)
}

func (e *AmountError) Is(target error) bool {
	return target == ErrOutOfRangeAmount
}

// Breakdown is the fee split reported back to the tipper.
type Breakdown struct {
	Total          int64 `json:"total"`
	PlatformFee    int64 `json:"platformFee"`
	StripeFee      int64 `json:"stripeFee"`
	ArtistReceives int64 `json:"artistReceives"`
}

// PlatformFee rounds half away from zero.
func PlatformFee(amount int64) int64 {
	return int64(math.Round(float64(amount) * PlatformFeeRate))
}

func EstimatedProcessorFee(amount int64) int64 {
	return int64(math.Round(float64(amount)*ProcessorFeeRate + ProcessorFeeFixed))
}

// ArtistNetAmount is whatever the two fees leave, so the three parts always
// sum back to amount.
func ArtistNetAmount(amount int64) int64 {
	return amount - PlatformFee(amount) - EstimatedProcessorFee(amount)
}

func ValidateAmount(amount int64) error {
	if amount < MinTipAmount {
		return &AmountError{Amount: amount, Limit: MinTipAmount, Below: true}
	}
	if amount > MaxTipAmount {
		return &AmountError{Amount: amount, Limit: MaxTipAmount}
	}
	return nil
}

func Calculate(amount int64) Breakdown {
	return Breakdown{
		Total:          amount,
		PlatformFee:    PlatformFee(amount),
		StripeFee:      EstimatedProcessorFee(amount),
		ArtistReceives: ArtistNetAmount(amount),
	}
}
