package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/internal/monitoring"
	"github.com/quanterra/bandbot/pkg/types"
)

// submitEntryWithRetry submits the entry order, retrying transient exchange
// failures with a linearly increasing delay between attempts. Deterministic
// rejections (insufficient balance, invalid symbol) and explicit order
// rejections are surfaced immediately.
func (e *Executor) submitEntryWithRetry(ctx context.Context, params exchange.MarketOrderParams) (*types.OrderResult, error) {
	attempts := e.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := e.gateway.SubmitMarketOrder(ctx, params)
		if err == nil {
			if result.Success {
				return result, nil
			}
			return nil, fmt.Errorf("order rejected: %s", result.Error)
		}

		lastErr = err
		if !exchange.IsRetryable(err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		delay := e.cfg.RetryDelay * time.Duration(attempt)
		e.logger.Warn("entry order attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		monitoring.RecordRetry(params.Symbol)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}
