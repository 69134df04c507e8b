package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/internal/monitoring"
	"github.com/quanterra/bandbot/internal/notifications"
	"github.com/quanterra/bandbot/internal/sizing"
	"github.com/quanterra/bandbot/internal/validation"
	"github.com/quanterra/bandbot/pkg/types"
)

var (
	// ErrDisabled is returned when the kill switch is off
	ErrDisabled = errors.New("trading is disabled")
	// ErrNotReady is returned before a successful Initialize
	ErrNotReady = errors.New("executor is not initialized")
)

// Gate is the risk authority's view consumed by the executor
type Gate interface {
	TradingAllowed() bool
}

// Config holds the executor's trading parameters
type Config struct {
	Enabled       bool
	Symbol        string
	Asset         string
	Leverage      float64
	RetryAttempts int
	RetryDelay    time.Duration
}

// Executor turns trading signals into sized, validated, exchange-submitted
// positions with attached exit orders.
//
// Signals are processed one at a time: procMu is held from the duplicate
// check through order submission and RecordExecution, so two deliveries of
// the same candle can never both pass validation and both submit an entry.
//
// The risk gate is read once, before processing begins. A breach detected
// while an order is in flight does not abort the submission; this is an
// accepted consistency gap, not a bug.
type Executor struct {
	logger    *zap.Logger
	gateway   exchange.Gateway
	calc      *sizing.Calculator
	validator *validation.Validator
	gate      Gate
	publisher notifications.Publisher
	cfg       Config

	mu          sync.Mutex
	initialized bool

	procMu sync.Mutex
}

// New creates an executor. It accepts no signals until Initialize succeeds.
func New(gateway exchange.Gateway, calc *sizing.Calculator, validator *validation.Validator,
	gate Gate, publisher notifications.Publisher, cfg Config, logger *zap.Logger) *Executor {
	return &Executor{
		logger:    logger,
		gateway:   gateway,
		calc:      calc,
		validator: validator,
		gate:      gate,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Initialize verifies exchange connectivity and configures leverage for the
// trading symbol. Idempotent: a second call after success is a no-op. On
// failure the executor stays not-ready until the process restarts.
func (e *Executor) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}

	if err := e.gateway.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("exchange connectivity check failed: %w", err)
	}
	if err := e.gateway.SetLeverage(ctx, e.cfg.Symbol, e.cfg.Leverage); err != nil {
		return fmt.Errorf("leverage setup failed: %w", err)
	}

	e.initialized = true
	e.logger.Info("executor initialized",
		zap.String("symbol", e.cfg.Symbol),
		zap.Float64("leverage", e.cfg.Leverage))
	e.publisher.Publish(notifications.LeverageConfigured{
		Symbol:   e.cfg.Symbol,
		Leverage: e.cfg.Leverage,
	})
	return nil
}

// ProcessSignal executes one trading signal end to end: gather market state,
// size, validate, submit the entry order with retry, then attach exit
// orders computed from the actual fill price.
//
// Every failed signal produces exactly one execution-failure notification;
// exit-order failures after a filled entry do not roll the entry back.
func (e *Executor) ProcessSignal(ctx context.Context, signal types.TradingSignal) (*types.ExecutionOutcome, error) {
	e.mu.Lock()
	ready := e.initialized
	e.mu.Unlock()

	if !e.cfg.Enabled {
		e.logger.Debug("signal ignored, trading disabled")
		return nil, ErrDisabled
	}
	if !ready {
		e.logger.Warn("signal ignored, executor not initialized")
		return nil, ErrNotReady
	}
	if !e.gate.TradingAllowed() {
		return nil, e.fail(signal, "trading blocked by risk limits")
	}

	// one signal at a time: webhook deliveries are at-least-once and may
	// arrive concurrently
	e.procMu.Lock()
	defer e.procMu.Unlock()

	e.logger.Info("processing signal",
		zap.String("direction", string(signal.Direction)),
		zap.String("symbol", signal.Symbol),
		zap.Float64("price", signal.Price),
		zap.Time("candle", signal.CandleTime))

	var (
		balance   types.AccountBalance
		position  types.Position
		rules     types.SymbolTradingRules
		markPrice float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = e.gateway.GetBalance(gctx, e.cfg.Asset)
		return err
	})
	g.Go(func() (err error) {
		position, err = e.gateway.GetPosition(gctx, signal.Symbol)
		return err
	})
	g.Go(func() (err error) {
		rules, err = e.gateway.GetSymbolRules(gctx, signal.Symbol)
		return err
	})
	g.Go(func() (err error) {
		markPrice, err = e.gateway.GetMarkPrice(gctx, signal.Symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, e.fail(signal, fmt.Sprintf("market state fetch failed: %v", err))
	}

	sizeResult := e.calc.Size(balance, markPrice, rules)
	outcome := e.validator.Validate(signal, position, sizeResult, rules)
	for _, warning := range outcome.Warnings {
		e.logger.Warn("validation warning", zap.String("warning", warning))
	}
	if !outcome.Valid {
		return nil, e.fail(signal, strings.Join(outcome.Errors, "; "))
	}

	side := exchange.SideForDirection(signal.Direction)
	entry, err := e.submitEntryWithRetry(ctx, exchange.MarketOrderParams{
		Symbol:   signal.Symbol,
		Side:     side,
		Quantity: sizeResult.Quantity,
	})
	if err != nil {
		return nil, e.fail(signal, fmt.Sprintf("entry order failed: %v", err))
	}
	monitoring.RecordOrder(signal.Symbol, "entry")

	fillPrice := entry.AvgPrice
	if fillPrice == 0 {
		// fill price not reported, fall back to the mark price snapshot
		fillPrice = markPrice
	}

	takeProfitOrder, stopLossOrder := e.submitExitOrders(ctx, signal, entry.FilledQty, fillPrice, rules)

	e.validator.RecordExecution(signal)

	result := &types.ExecutionOutcome{
		Signal:          signal,
		EntryOrder:      entry,
		TakeProfitOrder: takeProfitOrder,
		StopLossOrder:   stopLossOrder,
		Timestamp:       time.Now().UTC(),
	}
	e.publisher.Publish(notifications.ExecutionSuccess{Outcome: *result})
	monitoring.RecordSignal(signal.Symbol, "success")

	e.logger.Info("signal executed",
		zap.String("orderId", entry.OrderID),
		zap.Float64("filledQty", entry.FilledQty),
		zap.Float64("fillPrice", fillPrice))
	return result, nil
}

// submitExitOrders computes the TP/SL prices from the actual fill price and
// submits both exit orders concurrently. Exit submissions are best-effort:
// failures are reported but the entry stays open. When both fail the
// position is left with no exits at all, which gets its own notification.
func (e *Executor) submitExitOrders(ctx context.Context, signal types.TradingSignal,
	quantity, fillPrice float64, rules types.SymbolTradingRules) (*types.OrderResult, *types.OrderResult) {

	tpPrice := sizing.RoundPrice(e.calc.TakeProfitPrice(fillPrice, signal.Direction), rules)
	slPrice := sizing.RoundPrice(e.calc.StopLossPrice(fillPrice, signal.Direction), rules)
	exitSide := exchange.Opposite(exchange.SideForDirection(signal.Direction))

	var (
		wg       sync.WaitGroup
		tpResult *types.OrderResult
		slResult *types.OrderResult
		tpErr    error
		slErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tpResult, tpErr = e.gateway.SubmitTakeProfitOrder(ctx, exchange.StopOrderParams{
			Symbol:              signal.Symbol,
			Side:                exitSide,
			StopPrice:           tpPrice,
			CloseEntirePosition: true,
		})
	}()
	go func() {
		defer wg.Done()
		slResult, slErr = e.gateway.SubmitStopLossOrder(ctx, exchange.StopOrderParams{
			Symbol:              signal.Symbol,
			Side:                exitSide,
			StopPrice:           slPrice,
			CloseEntirePosition: true,
		})
	}()
	wg.Wait()

	if tpErr != nil {
		tpResult = nil
		e.logger.Error("take-profit order failed", zap.Float64("price", tpPrice), zap.Error(tpErr))
		monitoring.RecordError("take_profit_order")
	} else {
		monitoring.RecordOrder(signal.Symbol, "take_profit")
	}
	if slErr != nil {
		slResult = nil
		e.logger.Error("stop-loss order failed", zap.Float64("price", slPrice), zap.Error(slErr))
		monitoring.RecordError("stop_loss_order")
	} else {
		monitoring.RecordOrder(signal.Symbol, "stop_loss")
	}
	if tpErr != nil && slErr != nil {
		e.logger.Error("position is unprotected: both exit orders failed",
			zap.String("symbol", signal.Symbol),
			zap.Float64("fillPrice", fillPrice))
		e.publisher.Publish(notifications.PositionUnprotected{
			Symbol:    signal.Symbol,
			Direction: signal.Direction,
			Quantity:  quantity,
			FillPrice: fillPrice,
			Reason:    "both exit order submissions failed",
		})
	}

	return tpResult, slResult
}

// fail reports a failed execution. Exactly one failure notification per
// signal, never a partial success report.
func (e *Executor) fail(signal types.TradingSignal, reason string) error {
	e.logger.Warn("execution failed",
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.String("reason", reason))
	e.publisher.Publish(notifications.ExecutionFailure{Signal: signal, Reason: reason})
	monitoring.RecordSignal(signal.Symbol, "failure")
	return errors.New(reason)
}
