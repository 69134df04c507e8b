package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quanterra/bandbot/internal/exchange"
)

// GetMarkPrice returns the current mark price for a linear symbol
func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, exchange.WrapTransport("getMarkPrice", err)
	}

	resultBytes, err := checkResponse("getMarkPrice", result)
	if err != nil {
		return 0, err
	}

	var tickerResult struct {
		List []struct {
			Symbol    string `json:"symbol"`
			MarkPrice string `json:"markPrice"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, exchange.WrapUnknown("getMarkPrice", fmt.Errorf("unmarshal ticker result: %w", err))
	}

	for _, ticker := range tickerResult.List {
		if ticker.Symbol != symbol {
			continue
		}
		price := parseFloat(ticker.MarkPrice)
		if price == 0 {
			price = parseFloat(ticker.LastPrice)
		}
		if price == 0 {
			return 0, exchange.WrapUnknown("getMarkPrice", fmt.Errorf("ticker for %s carries no price", symbol))
		}
		return price, nil
	}

	return 0, exchange.NewError(exchange.ErrorKindNonRetryable,
		"getMarkPrice", 0, fmt.Sprintf("no ticker for symbol %s", symbol))
}
