package validation

import (
	"fmt"
	"sync"
	"time"

	"github.com/quanterra/bandbot/pkg/types"
)

// Validator performs pre-trade checks on a sized signal. Its only state is
// the identity of the last recorded execution, used to debounce repeat
// signals from the same confirmed candle.
//
// Validate never mutates state: callers must call RecordExecution explicitly
// after a confirmed successful submission.
type Validator struct {
	mu            sync.Mutex
	lastCandle    time.Time
	lastDirection types.SignalDirection
	hasLast       bool
}

// NewValidator creates a validator with empty dedup memory
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all checks and accumulates every error and warning; it never
// short-circuits. Errors block execution, warnings do not.
func (v *Validator) Validate(signal types.TradingSignal, position types.Position, sizeResult types.SizeResult, rules types.SymbolTradingRules) types.ValidationOutcome {
	outcome := types.ValidationOutcome{
		Errors:   []string{},
		Warnings: []string{},
	}

	v.mu.Lock()
	duplicate := v.hasLast && signal.CandleTime.Equal(v.lastCandle) && signal.Direction == v.lastDirection
	v.mu.Unlock()

	if duplicate {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("Duplicate signal: %s already executed for candle %s",
				signal.Direction, signal.CandleTime.UTC().Format(time.RFC3339)))
	}

	if !sizeResult.Valid {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("position sizing rejected: %s", sizeResult.Reason))
	}

	// An opposite-side position does not block: the entry order nets or
	// flips the position under the exchange's one-way mode semantics.
	if !position.IsFlat() && opposes(position.Side, signal.Direction) {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("existing %s position of %v will be reduced or flipped by this %s entry",
				position.Side, position.Size, signal.Direction))
	}

	// Re-check exchange minimums against the rules at hand; the size result
	// may have been computed against stale rules.
	if sizeResult.Valid {
		if sizeResult.Quantity < rules.MinQty {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("quantity %v is below exchange minimum %v", sizeResult.Quantity, rules.MinQty))
		}
		if sizeResult.NotionalValue < rules.MinNotional {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("notional %v is below exchange minimum notional %v", sizeResult.NotionalValue, rules.MinNotional))
		}
	}

	outcome.Valid = len(outcome.Errors) == 0
	return outcome
}

// RecordExecution stores the signal identity after a confirmed successful
// submission. Subsequent signals with the same candle time and direction are
// rejected as duplicates.
func (v *Validator) RecordExecution(signal types.TradingSignal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastCandle = signal.CandleTime
	v.lastDirection = signal.Direction
	v.hasLast = true
}

// Reset clears the dedup memory, used after manual intervention
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastCandle = time.Time{}
	v.lastDirection = ""
	v.hasLast = false
}

func opposes(side types.PositionSide, direction types.SignalDirection) bool {
	return (side == types.PositionSideLong && direction == types.DirectionShort) ||
		(side == types.PositionSideShort && direction == types.DirectionLong)
}
