package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/pkg/types"
)

// SubmitMarketOrder submits a market order on the linear contract and
// reports the resulting fill. Bybit's create-order response only carries the
// order id; fill quantity and average price are read back from the realtime
// order endpoint when available.
func (c *Client) SubmitMarketOrder(ctx context.Context, params exchange.MarketOrderParams) (*types.OrderResult, error) {
	apiParams := map[string]interface{}{
		"category":  category,
		"symbol":    params.Symbol,
		"side":      string(params.Side),
		"orderType": "Market",
		"qty":       formatQty(params.Quantity),
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, exchange.WrapTransport("submitMarketOrder", err)
	}

	resultBytes, err := checkResponse("submitMarketOrder", result)
	if err != nil {
		return nil, err
	}

	var orderResult struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(resultBytes, &orderResult); err != nil {
		return nil, exchange.WrapUnknown("submitMarketOrder", fmt.Errorf("unmarshal order result: %w", err))
	}

	filledQty, avgPrice := c.lookupFill(ctx, params.Symbol, orderResult.OrderID)
	if filledQty == 0 {
		filledQty = params.Quantity
	}

	return &types.OrderResult{
		Success:   true,
		OrderID:   orderResult.OrderID,
		FilledQty: filledQty,
		AvgPrice:  avgPrice,
	}, nil
}

// SubmitTakeProfitOrder submits a reduce-only conditional order that closes
// the position once price crosses the target.
func (c *Client) SubmitTakeProfitOrder(ctx context.Context, params exchange.StopOrderParams) (*types.OrderResult, error) {
	return c.submitTradingStop(ctx, "submitTakeProfitOrder", params, "TakeProfit")
}

// SubmitStopLossOrder submits a reduce-only conditional order that closes
// the position once price crosses the adverse threshold.
func (c *Client) SubmitStopLossOrder(ctx context.Context, params exchange.StopOrderParams) (*types.OrderResult, error) {
	return c.submitTradingStop(ctx, "submitStopLossOrder", params, "StopLoss")
}

func (c *Client) submitTradingStop(ctx context.Context, op string, params exchange.StopOrderParams, stopType string) (*types.OrderResult, error) {
	apiParams := map[string]interface{}{
		"category":    category,
		"symbol":      params.Symbol,
		"positionIdx": 0,
	}
	price := strconv.FormatFloat(params.StopPrice, 'f', -1, 64)
	if stopType == "TakeProfit" {
		apiParams["takeProfit"] = price
	} else {
		apiParams["stopLoss"] = price
	}
	if params.CloseEntirePosition {
		apiParams["tpslMode"] = "Full"
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).SetPositionTradingStop(ctx)
	if err != nil {
		return nil, exchange.WrapTransport(op, err)
	}
	if _, err := checkResponse(op, result); err != nil {
		return nil, err
	}

	return &types.OrderResult{Success: true}, nil
}

// CancelAllOrders cancels every open order for a symbol
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelAllOrders(ctx)
	if err != nil {
		return exchange.WrapTransport("cancelAllOrders", err)
	}
	if _, err := checkResponse("cancelAllOrders", result); err != nil {
		return err
	}
	return nil
}

// lookupFill reads back the executed quantity and average price of an order.
// Fill details are best-effort: a failed lookup leaves the caller with the
// requested quantity and a zero price, which the executor substitutes with
// the mark price.
func (c *Client) lookupFill(ctx context.Context, symbol, orderID string) (float64, float64) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		c.logger.Debug("fill lookup failed", zap.String("orderId", orderID), zap.Error(err))
		return 0, 0
	}

	resultBytes, err := checkResponse("lookupFill", result)
	if err != nil {
		c.logger.Debug("fill lookup rejected", zap.String("orderId", orderID), zap.Error(err))
		return 0, 0
	}

	var orderListResult struct {
		List []struct {
			OrderID    string `json:"orderId"`
			CumExecQty string `json:"cumExecQty"`
			AvgPrice   string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &orderListResult); err != nil {
		return 0, 0
	}

	for _, order := range orderListResult.List {
		if order.OrderID == orderID {
			return parseFloat(order.CumExecQty), parseFloat(order.AvgPrice)
		}
	}
	return 0, 0
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
