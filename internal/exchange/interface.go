package exchange

import (
	"context"

	"github.com/quanterra/bandbot/pkg/types"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// MarketOrderParams holds parameters for submitting a market order
type MarketOrderParams struct {
	Symbol   string
	Side     OrderSide
	Quantity float64
}

// StopOrderParams holds parameters for submitting a conditional exit order.
// CloseEntirePosition makes the order close whatever position size exists
// when the stop price is crossed, regardless of the submitted quantity.
type StopOrderParams struct {
	Symbol              string
	Side                OrderSide
	StopPrice           float64
	CloseEntirePosition bool
}

// Gateway is the capability interface the execution pipeline consumes.
// Implementations own transport, authentication and response parsing; the
// pipeline never sees raw exchange payloads.
type Gateway interface {
	// GetBalance returns the balance snapshot for an asset, failing if the
	// asset is not found in the account.
	GetBalance(ctx context.Context, asset string) (types.AccountBalance, error)

	// GetPosition returns the current position for a symbol. When no
	// position exists it returns a NONE-side, zero-size position rather
	// than an error.
	GetPosition(ctx context.Context, symbol string) (types.Position, error)

	// GetSymbolRules returns the trading rules for a symbol. Callers may
	// cache the result for the process lifetime.
	GetSymbolRules(ctx context.Context, symbol string) (types.SymbolTradingRules, error)

	// GetMarkPrice returns the current mark price for a symbol.
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)

	// SubmitMarketOrder submits a market order and reports the fill.
	SubmitMarketOrder(ctx context.Context, params MarketOrderParams) (*types.OrderResult, error)

	// SubmitTakeProfitOrder submits a take-profit exit order.
	SubmitTakeProfitOrder(ctx context.Context, params StopOrderParams) (*types.OrderResult, error)

	// SubmitStopLossOrder submits a stop-loss exit order.
	SubmitStopLossOrder(ctx context.Context, params StopOrderParams) (*types.OrderResult, error)

	// CancelAllOrders cancels all open orders for a symbol.
	CancelAllOrders(ctx context.Context, symbol string) error

	// SetLeverage configures leverage for a symbol. A "leverage already at
	// this value" response is success, not failure.
	SetLeverage(ctx context.Context, symbol string, leverage float64) error

	// VerifyConnectivity checks that the exchange is reachable and the
	// credentials are accepted.
	VerifyConnectivity(ctx context.Context) error
}

// Opposite returns the opposite order side, used for exit orders and
// emergency position closes.
func Opposite(side OrderSide) OrderSide {
	if side == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// SideForDirection maps a signal direction to the entry order side
func SideForDirection(direction types.SignalDirection) OrderSide {
	if direction == types.DirectionLong {
		return OrderSideBuy
	}
	return OrderSideSell
}

// SideForPosition maps a position side to the order side that opened it
func SideForPosition(side types.PositionSide) OrderSide {
	if side == types.PositionSideLong {
		return OrderSideBuy
	}
	return OrderSideSell
}
