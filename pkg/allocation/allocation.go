// Package allocation computes how much each participant of a pot contributes.
//
// Allocate is a pure function: it never mutates its input, keeps no state
// between calls and is safe to call from any number of goroutines. When the
// participants' combined maximum pledges exceed the target, the target is
// shared out by max-min fair water-filling: participants whose cap is below
// the current equal share are locked in at their cap and the remainder is
// split equally among everyone else.
package allocation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/types"
)

// CurrencyPlaces is the number of decimal places of the smallest currency unit
const CurrencyPlaces int32 = 2

// Sentinel errors for invalid allocation input, checked with errors.Is
var (
	// ErrNegativePledge indicates a participant declared a negative maximum pledge
	ErrNegativePledge = errors.New("max pledge must not be negative")

	// ErrDuplicateParticipant indicates the same participant id appears twice
	ErrDuplicateParticipant = errors.New("duplicate participant id")

	// ErrNonFiniteAmount indicates a NaN or infinite monetary amount
	ErrNonFiniteAmount = errors.New("amount must be a finite number")
)

// ValidationError identifies the participant record that failed validation
type ValidationError struct {
	Index         int
	ParticipantID string
	Field         string
	Err           error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("participant %d (%q) %s: %v", e.Index, e.ParticipantID, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Allocate returns a copy of participants, in input order, with
// CalculatedContribution set. The whole call fails on the first invalid
// record; there is no partial result.
func Allocate(participants []types.Participant, target decimal.Decimal) ([]types.Participant, error) {
	if err := Validate(participants); err != nil {
		return nil, err
	}

	result := make([]types.Participant, len(participants))
	copy(result, participants)

	if len(result) == 0 {
		return result, nil
	}

	if !target.IsPositive() {
		for i := range result {
			result[i].CalculatedContribution = decimal.Zero
		}
		return result, nil
	}

	if TotalMaxPledge(result).LessThanOrEqual(target) {
		for i := range result {
			result[i].CalculatedContribution = roundWithin(result[i].MaxPledge, result[i].MaxPledge)
		}
		return result, nil
	}

	waterFill(result, target)
	return result, nil
}

// waterFill assigns contributions in place for the constrained case where
// the caps sum to more than target.
func waterFill(participants []types.Participant, target decimal.Decimal) {
	order := make([]int, len(participants))
	for i := range order {
		order[i] = i
	}
	// Stable so equal caps keep input order.
	sort.SliceStable(order, func(a, b int) bool {
		return participants[order[a]].MaxPledge.LessThan(participants[order[b]].MaxPledge)
	})

	remaining := target
	for pos, idx := range order {
		k := decimal.NewFromInt(int64(len(order) - pos))
		share := remaining.Div(k)

		capAmount := participants[idx].MaxPledge
		if capAmount.LessThanOrEqual(share) {
			participants[idx].CalculatedContribution = roundWithin(capAmount, capAmount)
			remaining = remaining.Sub(capAmount)
			continue
		}

		// Every share is below its holder's cap, so only the sum of the
		// shares can overshoot what is left.
		equal := roundWithin(share, share)
		for _, rest := range order[pos:] {
			participants[rest].CalculatedContribution = equal
		}
		return
	}
}

// roundWithin rounds half-up to the currency unit unless the rounded amount
// would exceed limit, in which case it rounds down.
func roundWithin(amount, limit decimal.Decimal) decimal.Decimal {
	rounded := RoundAmount(amount)
	if rounded.GreaterThan(limit) {
		return amount.RoundFloor(CurrencyPlaces)
	}
	return rounded
}

// Validate checks the preconditions of Allocate without computing anything
func Validate(participants []types.Participant) error {
	seen := make(map[string]int, len(participants))
	for i, p := range participants {
		if p.MaxPledge.IsNegative() {
			return &ValidationError{Index: i, ParticipantID: p.ID, Field: "max_pledge", Err: ErrNegativePledge}
		}
		if first, ok := seen[p.ID]; ok {
			return &ValidationError{
				Index:         i,
				ParticipantID: p.ID,
				Field:         "id",
				Err:           fmt.Errorf("%w (first seen at %d)", ErrDuplicateParticipant, first),
			}
		}
		seen[p.ID] = i
	}
	return nil
}

// TotalMaxPledge sums every participant's maximum pledge
func TotalMaxPledge(participants []types.Participant) decimal.Decimal {
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.MaxPledge)
	}
	return total
}

// TotalContribution sums every participant's calculated contribution
func TotalContribution(participants []types.Participant) decimal.Decimal {
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.CalculatedContribution)
	}
	return total
}

// RoundAmount rounds to the smallest currency unit, half away from zero
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// AmountFromFloat converts a binary float into a rounded decimal amount.
// NaN and infinities are rejected.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNonFiniteAmount, f)
	}
	return RoundAmount(decimal.NewFromFloat(f)), nil
}

// Summarize runs Allocate and folds the totals into a Distribution.
// Shortfall is the part of the target the caps cannot cover; rounding
// residue below one cent per participant does not count.
func Summarize(potID string, participants []types.Participant, target decimal.Decimal) (*types.Distribution, error) {
	allocated, err := Allocate(participants, target)
	if err != nil {
		return nil, err
	}

	pledged := TotalMaxPledge(allocated)
	shortfall := decimal.Zero
	if target.GreaterThan(pledged) {
		shortfall = target.Sub(pledged)
	}

	return &types.Distribution{
		PotID:             potID,
		TargetAmount:      target,
		TotalPledged:      pledged,
		TotalContribution: TotalContribution(allocated),
		Shortfall:         shortfall,
		Participants:      allocated,
	}, nil
}
