package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quanterra/bandbot/pkg/types"
)

// Config holds the sizing parameters. Percent values are fractions
// (0.1 = 10%).
type Config struct {
	PositionSizePercent float64
	Leverage            float64
	MaxPositionSizeUsdt float64
	MinPositionSizeUsdt float64
	TakeProfitPercent   float64
	StopLossPercent     float64
}

// Calculator turns an account balance and market price into a concrete,
// exchange-acceptable order quantity. All methods are pure: identical inputs
// always produce identical outputs.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator with the given sizing parameters
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Size computes the order quantity for a trade.
//
// The risk amount is a fixed fraction of the available balance; the target
// notional is that amount leveraged, capped at the configured maximum. The
// raw quantity is floored to the nearest step-size multiple and truncated to
// the quantity precision. Flooring, never rounding up, keeps the actual
// exposure at or below the requested one.
func (c *Calculator) Size(balance types.AccountBalance, markPrice float64, rules types.SymbolTradingRules) types.SizeResult {
	if markPrice <= 0 {
		return rejected(0, "mark price must be positive")
	}

	riskAmount := balance.Available * c.cfg.PositionSizePercent
	notional := riskAmount * c.cfg.Leverage
	if c.cfg.MaxPositionSizeUsdt > 0 && notional > c.cfg.MaxPositionSizeUsdt {
		notional = c.cfg.MaxPositionSizeUsdt
	}
	if notional < c.cfg.MinPositionSizeUsdt {
		return rejected(riskAmount, fmt.Sprintf("notional %.2f USDT is below minimum position size %.2f USDT",
			notional, c.cfg.MinPositionSizeUsdt))
	}

	qty := decimal.NewFromFloat(notional).Div(decimal.NewFromFloat(markPrice))
	if rules.StepSize > 0 {
		step := decimal.NewFromFloat(rules.StepSize)
		qty = qty.Div(step).Floor().Mul(step)
	}
	qty = qty.Truncate(int32(rules.QuantityPrecision))
	quantity, _ := qty.Float64()

	if quantity < rules.MinQty {
		return rejected(riskAmount, fmt.Sprintf("quantity %s is below minimum order quantity %v", qty, rules.MinQty))
	}
	if rules.MaxQty > 0 && quantity > rules.MaxQty {
		return rejected(riskAmount, fmt.Sprintf("quantity %s exceeds maximum order quantity %v", qty, rules.MaxQty))
	}

	actualNotional, _ := qty.Mul(decimal.NewFromFloat(markPrice)).Float64()
	if actualNotional < rules.MinNotional {
		return rejected(riskAmount, fmt.Sprintf("notional %.4f USDT is below minimum notional %v", actualNotional, rules.MinNotional))
	}

	return types.SizeResult{
		Valid:         true,
		Quantity:      quantity,
		NotionalValue: actualNotional,
		RiskAmount:    riskAmount,
	}
}

// TakeProfitPrice returns the profit target for an entry price: above the
// entry for longs, below for shorts.
func (c *Calculator) TakeProfitPrice(entry float64, direction types.SignalDirection) float64 {
	if direction == types.DirectionLong {
		return entry * (1 + c.cfg.TakeProfitPercent)
	}
	return entry * (1 - c.cfg.TakeProfitPercent)
}

// StopLossPrice returns the loss threshold for an entry price: below the
// entry for longs, above for shorts.
func (c *Calculator) StopLossPrice(entry float64, direction types.SignalDirection) float64 {
	if direction == types.DirectionLong {
		return entry * (1 - c.cfg.StopLossPercent)
	}
	return entry * (1 + c.cfg.StopLossPercent)
}

// RoundPrice snaps a price onto the symbol's tick grid. Decimal-place
// rounding alone is wrong for non-power-of-ten ticks (a 0.25 tick has one
// valid price per quarter, not per 0.1), so the tick size wins when known.
func RoundPrice(price float64, rules types.SymbolTradingRules) float64 {
	if rules.TickSize > 0 {
		tick := decimal.NewFromFloat(rules.TickSize)
		snapped, _ := decimal.NewFromFloat(price).Div(tick).Round(0).Mul(tick).Float64()
		return snapped
	}
	rounded, _ := decimal.NewFromFloat(price).Round(int32(rules.PricePrecision)).Float64()
	return rounded
}

func rejected(riskAmount float64, reason string) types.SizeResult {
	return types.SizeResult{
		Valid:      false,
		RiskAmount: riskAmount,
		Reason:     reason,
	}
}
