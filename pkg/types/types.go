package types

import "time"

// SignalDirection is the direction of a trading signal
type SignalDirection string

const (
	DirectionLong  SignalDirection = "LONG"
	DirectionShort SignalDirection = "SHORT"
)

// TradingSignal represents a confirmed directional signal produced by the
// market-data pipeline. CandleTime plus Direction form the natural
// deduplication key: one decision per confirmed candle.
type TradingSignal struct {
	Direction  SignalDirection `json:"direction"`
	Symbol     string          `json:"symbol"`
	Price      float64         `json:"price"`       // trigger price
	BandValue  float64         `json:"band_value"`  // band edge that was crossed
	Midline    float64         `json:"midline"`     // band midline at trigger
	Bandwidth  float64         `json:"bandwidth"`   // band width at trigger
	CandleTime time.Time       `json:"candle_time"` // open time of the confirming candle
}

// AccountBalance is a point-in-time balance snapshot for a single asset
type AccountBalance struct {
	Asset     string  `json:"asset"`
	Available float64 `json:"available"`
	Total     float64 `json:"total"`
}

// PositionSide represents the side of an open position
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
	PositionSideNone  PositionSide = "NONE"
)

// Position represents the current position for a symbol. A flat position is
// reported as Side NONE with Size 0; callers must treat the two as equivalent.
type Position struct {
	Symbol        string       `json:"symbol"`
	Side          PositionSide `json:"side"`
	Size          float64      `json:"size"`
	EntryPrice    float64      `json:"entry_price"`
	UnrealizedPnl float64      `json:"unrealized_pnl"`
	Leverage      float64      `json:"leverage"`
}

// IsFlat reports whether the position is effectively empty
func (p Position) IsFlat() bool {
	return p.Side == PositionSideNone || p.Size == 0
}

// SymbolTradingRules holds the exchange-mandated precision and lot size
// constraints for a symbol. Rules change rarely and may be cached for the
// process lifetime.
type SymbolTradingRules struct {
	Symbol            string  `json:"symbol"`
	TickSize          float64 `json:"tick_size"`
	PricePrecision    int     `json:"price_precision"`
	QuantityPrecision int     `json:"quantity_precision"`
	MinQty            float64 `json:"min_qty"`
	MaxQty            float64 `json:"max_qty"`
	StepSize          float64 `json:"step_size"`
	MinNotional       float64 `json:"min_notional"`
}

// SizeResult is the outcome of position sizing. When Valid is false,
// Quantity is always zero and Reason carries a human-readable explanation.
type SizeResult struct {
	Valid         bool    `json:"valid"`
	Quantity      float64 `json:"quantity"`
	NotionalValue float64 `json:"notional_value"`
	RiskAmount    float64 `json:"risk_amount"`
	Reason        string  `json:"reason,omitempty"`
}

// ValidationOutcome is the result of pre-trade validation. Errors block
// execution, warnings do not.
type ValidationOutcome struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OrderResult is the normalized response of an order submission
type OrderResult struct {
	Success   bool    `json:"success"`
	OrderID   string  `json:"order_id,omitempty"`
	FilledQty float64 `json:"filled_qty,omitempty"`
	AvgPrice  float64 `json:"avg_price,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// ExecutionOutcome reports a fully processed signal. Exit orders are
// best-effort: a nil TakeProfitOrder or StopLossOrder means the submission
// failed after the entry had already filled.
type ExecutionOutcome struct {
	Signal          TradingSignal `json:"signal"`
	EntryOrder      *OrderResult  `json:"entry_order"`
	TakeProfitOrder *OrderResult  `json:"take_profit_order,omitempty"`
	StopLossOrder   *OrderResult  `json:"stop_loss_order,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// DailyStats tracks realized trading results for one UTC day
type DailyStats struct {
	StartBalance float64   `json:"start_balance"`
	DayStart     time.Time `json:"day_start"` // UTC midnight
	RealizedPnl  float64   `json:"realized_pnl"`
	TradeCount   int       `json:"trade_count"`
}

// RiskSnapshot is a full recomputation of the account risk state. Snapshots
// are replaced wholesale on every check, never partially mutated.
type RiskSnapshot struct {
	DailyPnl           float64   `json:"daily_pnl"`
	DailyLossRemaining float64   `json:"daily_loss_remaining"`
	PeakBalance        float64   `json:"peak_balance"`
	CurrentBalance     float64   `json:"current_balance"`
	CurrentDrawdown    float64   `json:"current_drawdown"`
	DailyLimitBreached bool      `json:"daily_limit_breached"`
	DrawdownBreached   bool      `json:"drawdown_breached"`
	TradingAllowed     bool      `json:"trading_allowed"`
	LastCheckTime      time.Time `json:"last_check_time"`
}

// RiskBreachKind identifies which risk limit was violated
type RiskBreachKind string

const (
	BreachDailyLoss   RiskBreachKind = "DAILY_LOSS"
	BreachMaxDrawdown RiskBreachKind = "MAX_DRAWDOWN"
)

// RiskBreachEvent describes a risk limit violation
type RiskBreachEvent struct {
	Kind               RiskBreachKind `json:"kind"`
	CurrentValue       float64        `json:"current_value"`
	Threshold          float64        `json:"threshold"`
	AutoCloseTriggered bool           `json:"auto_close_triggered"`
	Timestamp          time.Time      `json:"timestamp"`
}
