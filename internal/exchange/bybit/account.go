package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/pkg/types"
)

// GetBalance returns the unified account balance snapshot for a single
// asset. The asset must exist in the account; a missing asset is an error so
// callers never size positions against a silently-zero balance.
func (c *Client) GetBalance(ctx context.Context, asset string) (types.AccountBalance, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
		"coin":        asset,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return types.AccountBalance{}, exchange.WrapTransport("getBalance", err)
	}

	resultBytes, err := checkResponse("getBalance", result)
	if err != nil {
		return types.AccountBalance{}, err
	}

	var walletResult struct {
		List []struct {
			Coin []struct {
				Coin             string `json:"coin"`
				WalletBalance    string `json:"walletBalance"`
				AvailableToTrade string `json:"availableToTrade"`
				Equity           string `json:"equity"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return types.AccountBalance{}, exchange.WrapUnknown("getBalance", fmt.Errorf("unmarshal wallet result: %w", err))
	}

	for _, account := range walletResult.List {
		for _, coin := range account.Coin {
			if coin.Coin == asset {
				available := parseFloat(coin.AvailableToTrade)
				total := parseFloat(coin.WalletBalance)
				if total == 0 {
					total = parseFloat(coin.Equity)
				}
				return types.AccountBalance{
					Asset:     asset,
					Available: available,
					Total:     total,
				}, nil
			}
		}
	}

	return types.AccountBalance{}, exchange.NewError(exchange.ErrorKindNonRetryable,
		"getBalance", 0, fmt.Sprintf("asset %s not found in account", asset))
}

// GetPosition returns the current linear position for a symbol. A symbol
// with no open position is reported as a flat NONE-side position, not an
// error.
func (c *Client) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	flat := types.Position{Symbol: symbol, Side: types.PositionSideNone}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return flat, exchange.WrapTransport("getPosition", err)
	}

	resultBytes, err := checkResponse("getPosition", result)
	if err != nil {
		return flat, err
	}

	var positionResult struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			Leverage      string `json:"leverage"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &positionResult); err != nil {
		return flat, exchange.WrapUnknown("getPosition", fmt.Errorf("unmarshal position result: %w", err))
	}

	for _, pos := range positionResult.List {
		if pos.Symbol != symbol {
			continue
		}
		size := parseFloat(pos.Size)
		side := types.PositionSideNone
		switch pos.Side {
		case "Buy":
			side = types.PositionSideLong
		case "Sell":
			side = types.PositionSideShort
		}
		if size == 0 {
			side = types.PositionSideNone
		}
		return types.Position{
			Symbol:        symbol,
			Side:          side,
			Size:          size,
			EntryPrice:    parseFloat(pos.AvgPrice),
			UnrealizedPnl: parseFloat(pos.UnrealisedPnl),
			Leverage:      parseFloat(pos.Leverage),
		}, nil
	}

	return flat, nil
}
