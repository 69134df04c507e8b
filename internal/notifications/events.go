package notifications

import (
	"fmt"
	"time"

	"github.com/quanterra/bandbot/pkg/types"
)

// Event is a typed outbound notification. Event names are stable contracts
// consumed by the notification and dashboard collaborators.
type Event interface {
	// Name returns the stable event identifier
	Name() string
	// Summary returns a human-readable one-line description
	Summary() string
}

// ExecutionSuccess reports a fully executed signal
type ExecutionSuccess struct {
	Outcome types.ExecutionOutcome
}

func (e ExecutionSuccess) Name() string { return "execution-success" }

func (e ExecutionSuccess) Summary() string {
	s := e.Outcome.Signal
	msg := fmt.Sprintf("%s %s entry filled, order %s, qty %v",
		s.Direction, s.Symbol, e.Outcome.EntryOrder.OrderID, e.Outcome.EntryOrder.FilledQty)
	if e.Outcome.TakeProfitOrder == nil || e.Outcome.StopLossOrder == nil {
		msg += " (exit orders incomplete)"
	}
	return msg
}

// ExecutionFailure reports a signal that produced no position
type ExecutionFailure struct {
	Signal types.TradingSignal
	Reason string
}

func (e ExecutionFailure) Name() string { return "execution-failure" }

func (e ExecutionFailure) Summary() string {
	return fmt.Sprintf("%s %s signal rejected: %s", e.Signal.Direction, e.Signal.Symbol, e.Reason)
}

// LeverageConfigured reports successful leverage setup during initialization
type LeverageConfigured struct {
	Symbol   string
	Leverage float64
}

func (e LeverageConfigured) Name() string { return "leverage-configured" }

func (e LeverageConfigured) Summary() string {
	return fmt.Sprintf("leverage set to %vx for %s", e.Leverage, e.Symbol)
}

// PositionUnprotected reports an open position that has no working exit
// orders: either both exit submissions failed after a filled entry, or an
// emergency liquidation could not flatten it. Manual intervention territory.
type PositionUnprotected struct {
	Symbol    string
	Direction types.SignalDirection
	Quantity  float64
	FillPrice float64
	Reason    string
}

func (e PositionUnprotected) Name() string { return "position-unprotected" }

func (e PositionUnprotected) Summary() string {
	if e.Quantity > 0 {
		return fmt.Sprintf("UNPROTECTED %s %s position of %v at %v: %s",
			e.Direction, e.Symbol, e.Quantity, e.FillPrice, e.Reason)
	}
	return fmt.Sprintf("UNPROTECTED position on %s: %s", e.Symbol, e.Reason)
}

// RiskBreach reports a violated risk limit
type RiskBreach struct {
	Breach types.RiskBreachEvent
}

func (e RiskBreach) Name() string { return "risk-breach" }

func (e RiskBreach) Summary() string {
	return fmt.Sprintf("%s limit breached: %.4f against threshold %.4f (auto-close: %t)",
		e.Breach.Kind, e.Breach.CurrentValue, e.Breach.Threshold, e.Breach.AutoCloseTriggered)
}

// TradingBlocked reports the risk gate closing
type TradingBlocked struct {
	Reason    string
	Timestamp time.Time
}

func (e TradingBlocked) Name() string { return "trading-blocked" }

func (e TradingBlocked) Summary() string {
	return "trading blocked: " + e.Reason
}

// TradingResumed reports the risk gate reopening
type TradingResumed struct {
	Timestamp time.Time
}

func (e TradingResumed) Name() string { return "trading-resumed" }

func (e TradingResumed) Summary() string {
	return "trading resumed"
}

// RiskSnapshotChanged reports a materially changed risk snapshot
type RiskSnapshotChanged struct {
	Snapshot types.RiskSnapshot
}

func (e RiskSnapshotChanged) Name() string { return "risk-snapshot-changed" }

func (e RiskSnapshotChanged) Summary() string {
	s := e.Snapshot
	return fmt.Sprintf("daily PnL %.2f (%.2f remaining), drawdown %.2f%%, trading allowed: %t",
		s.DailyPnl, s.DailyLossRemaining, s.CurrentDrawdown*100, s.TradingAllowed)
}
