package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/pkg/types"
)

// rulesCache caches instrument trading rules for the process lifetime.
// Exchange precision and lot-size filters change rarely; invalidation is a
// restart.
type rulesCache struct {
	mu    sync.RWMutex
	rules map[string]types.SymbolTradingRules
}

func newRulesCache() *rulesCache {
	return &rulesCache{rules: make(map[string]types.SymbolTradingRules)}
}

func (rc *rulesCache) get(symbol string) (types.SymbolTradingRules, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	r, ok := rc.rules[symbol]
	return r, ok
}

func (rc *rulesCache) put(symbol string, r types.SymbolTradingRules) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.rules[symbol] = r
}

// GetSymbolRules returns the precision and lot-size constraints for a
// symbol, fetching from the instrument-info endpoint on first use and
// serving from cache afterwards.
func (c *Client) GetSymbolRules(ctx context.Context, symbol string) (types.SymbolTradingRules, error) {
	if rules, ok := c.rules.get(symbol); ok {
		return rules, nil
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return types.SymbolTradingRules{}, exchange.WrapTransport("getSymbolRules", err)
	}

	resultBytes, err := checkResponse("getSymbolRules", result)
	if err != nil {
		return types.SymbolTradingRules{}, err
	}

	var instrumentResult struct {
		List []struct {
			Symbol      string `json:"symbol"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				MinNotionalValue string `json:"minNotionalValue"`
				MaxOrderQty      string `json:"maxOrderQty"`
				MinOrderQty      string `json:"minOrderQty"`
				QtyStep          string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &instrumentResult); err != nil {
		return types.SymbolTradingRules{}, exchange.WrapUnknown("getSymbolRules", fmt.Errorf("unmarshal instrument result: %w", err))
	}

	for _, item := range instrumentResult.List {
		if item.Symbol != symbol {
			continue
		}
		stepSize := parseFloat(item.LotSizeFilter.QtyStep)
		tickSize := parseFloat(item.PriceFilter.TickSize)
		rules := types.SymbolTradingRules{
			Symbol:            symbol,
			TickSize:          tickSize,
			PricePrecision:    decimalsOf(tickSize),
			QuantityPrecision: decimalsOf(stepSize),
			MinQty:            parseFloat(item.LotSizeFilter.MinOrderQty),
			MaxQty:            parseFloat(item.LotSizeFilter.MaxOrderQty),
			StepSize:          stepSize,
			MinNotional:       parseFloat(item.LotSizeFilter.MinNotionalValue),
		}
		c.rules.put(symbol, rules)
		return rules, nil
	}

	return types.SymbolTradingRules{}, exchange.NewError(exchange.ErrorKindNonRetryable,
		"getSymbolRules", 0, fmt.Sprintf("instrument %s not found", symbol))
}

// decimalsOf derives the number of decimal places from a step or tick size,
// e.g. 0.001 -> 3. A zero or >=1 increment means whole units.
func decimalsOf(increment float64) int {
	if increment <= 0 || increment >= 1 {
		return 0
	}
	return int(math.Round(-math.Log10(increment)))
}
