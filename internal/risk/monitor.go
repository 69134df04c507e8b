package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/internal/notifications"
	"github.com/quanterra/bandbot/pkg/types"
)

// Publication thresholds. A snapshot is only published when a flag flips or
// a value moves beyond these, so balance-query jitter does not produce
// notification storms.
const (
	pnlEpsilon      = 0.01  // USDT
	drawdownEpsilon = 0.001 // fraction
)

// Config holds the risk limits and polling settings
type Config struct {
	Asset              string
	Symbol             string
	DailyLossLimitUsdt float64
	MaxDrawdownPercent float64 // fraction, 0.1 = 10%
	AutoCloseOnBreach  bool
	CheckInterval      time.Duration
}

// Monitor polls account state and maintains the trading gate. Two
// independent breach conditions feed one gate: trading is allowed only while
// neither the daily-loss limit nor the drawdown limit is breached.
//
// The daily-loss block is sticky for the rest of the UTC day and clears at
// midnight rollover; the drawdown block clears only when the balance
// recovers relative to its peak.
type Monitor struct {
	logger    *zap.Logger
	gateway   exchange.Gateway
	publisher notifications.Publisher
	cfg       Config

	mu               sync.Mutex
	daily            types.DailyStats
	peakBalance      float64
	dailyBreached    bool
	drawdownBreached bool
	snapshot         types.RiskSnapshot
	published        types.RiskSnapshot
	hasPublished     bool

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	now func() time.Time
}

// NewMonitor creates a risk monitor. It performs no I/O until Start or
// CheckNow is called.
func NewMonitor(gateway exchange.Gateway, publisher notifications.Publisher, cfg Config, logger *zap.Logger) *Monitor {
	return &Monitor{
		logger:    logger,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start launches the periodic check loop. Stop cancels it.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if _, err := m.CheckNow(ctx); err != nil {
			m.logger.Error("initial risk check failed", zap.Error(err))
		}

		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.CheckNow(ctx); err != nil {
					m.logger.Error("risk check failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop cancels the check loop and waits for it to finish
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
	})
}

// TradingAllowed reports the current gate state. This is a plain in-memory
// read; there is no transactional guarantee that the gate stays open for the
// duration of a subsequent order submission.
func (m *Monitor) TradingAllowed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.dailyBreached && !m.drawdownBreached
}

// Snapshot returns the most recently computed risk snapshot
func (m *Monitor) Snapshot() types.RiskSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// RecordTrade accumulates realized PnL from a closed position and forces an
// out-of-cycle check, so a loss-making close tightens the gate faster than
// the poll interval alone.
func (m *Monitor) RecordTrade(ctx context.Context, realizedPnl float64) error {
	m.mu.Lock()
	m.daily.RealizedPnl += realizedPnl
	m.daily.TradeCount++
	m.mu.Unlock()

	m.logger.Info("trade recorded",
		zap.Float64("realizedPnl", realizedPnl))

	_, err := m.CheckNow(ctx)
	return err
}

// ResetPeak manually resets the peak-balance ratchet to the given value.
// The only way the peak moves down within a process lifetime.
func (m *Monitor) ResetPeak(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peakBalance = balance
}

// CheckNow queries the balance and recomputes the full risk snapshot. On a
// balance-query failure the previous gate state is left untouched and the
// error is surfaced: the gate never defaults to allowed or blocked on a
// transient query problem.
func (m *Monitor) CheckNow(ctx context.Context) (types.RiskSnapshot, error) {
	balance, err := m.gateway.GetBalance(ctx, m.cfg.Asset)
	if err != nil {
		return types.RiskSnapshot{}, fmt.Errorf("risk check balance query: %w", err)
	}

	snapshot, toPublish, breaches := m.evaluate(balance.Total)

	for _, breach := range breaches {
		m.publisher.Publish(notifications.RiskBreach{Breach: breach})
		if breach.AutoCloseTriggered {
			m.emergencyClose(ctx)
		}
	}
	for _, event := range toPublish {
		m.publisher.Publish(event)
	}

	return snapshot, nil
}

// evaluate recomputes the snapshot under the lock and returns the events to
// publish once the lock is released.
func (m *Monitor) evaluate(currentBalance float64) (types.RiskSnapshot, []notifications.Event, []types.RiskBreachEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	m.ensureDay(now, currentBalance)

	if currentBalance > m.peakBalance {
		m.peakBalance = currentBalance
	}

	dailyPnl := currentBalance - m.daily.StartBalance + m.daily.RealizedPnl
	drawdown := 0.0
	if m.peakBalance > 0 {
		drawdown = (m.peakBalance - currentBalance) / m.peakBalance
	}

	prevDaily := m.dailyBreached
	prevDrawdown := m.drawdownBreached
	prevAllowed := !prevDaily && !prevDrawdown

	// The daily block is sticky: an intraday balance recovery does not
	// reopen the gate, only the midnight rollover does.
	m.dailyBreached = m.dailyBreached || dailyPnl < -m.cfg.DailyLossLimitUsdt
	m.drawdownBreached = drawdown > m.cfg.MaxDrawdownPercent
	allowed := !m.dailyBreached && !m.drawdownBreached

	remaining := m.cfg.DailyLossLimitUsdt + math.Min(dailyPnl, 0)
	if remaining < 0 {
		remaining = 0
	}

	snapshot := types.RiskSnapshot{
		DailyPnl:           dailyPnl,
		DailyLossRemaining: remaining,
		PeakBalance:        m.peakBalance,
		CurrentBalance:     currentBalance,
		CurrentDrawdown:    drawdown,
		DailyLimitBreached: m.dailyBreached,
		DrawdownBreached:   m.drawdownBreached,
		TradingAllowed:     allowed,
		LastCheckTime:      now,
	}
	m.snapshot = snapshot

	var breaches []types.RiskBreachEvent
	if m.dailyBreached && !prevDaily {
		breaches = append(breaches, types.RiskBreachEvent{
			Kind:               types.BreachDailyLoss,
			CurrentValue:       dailyPnl,
			Threshold:          m.cfg.DailyLossLimitUsdt,
			AutoCloseTriggered: m.cfg.AutoCloseOnBreach,
			Timestamp:          now,
		})
		m.logger.Error("daily loss limit breached",
			zap.Float64("dailyPnl", dailyPnl),
			zap.Float64("limit", m.cfg.DailyLossLimitUsdt))
	}
	if m.drawdownBreached && !prevDrawdown {
		breaches = append(breaches, types.RiskBreachEvent{
			Kind:               types.BreachMaxDrawdown,
			CurrentValue:       drawdown,
			Threshold:          m.cfg.MaxDrawdownPercent,
			AutoCloseTriggered: m.cfg.AutoCloseOnBreach,
			Timestamp:          now,
		})
		m.logger.Error("max drawdown breached",
			zap.Float64("drawdown", drawdown),
			zap.Float64("limit", m.cfg.MaxDrawdownPercent))
	}

	var events []notifications.Event
	if prevAllowed && !allowed {
		events = append(events, notifications.TradingBlocked{
			Reason:    blockReason(m.dailyBreached, m.drawdownBreached),
			Timestamp: now,
		})
	}
	if !prevAllowed && allowed {
		events = append(events, notifications.TradingResumed{Timestamp: now})
	}

	if m.snapshotChanged(snapshot) {
		m.published = snapshot
		m.hasPublished = true
		events = append(events, notifications.RiskSnapshotChanged{Snapshot: snapshot})
	}

	return snapshot, events, breaches
}

// ensureDay initializes daily stats on the first check and rolls them over
// at UTC midnight, using the current balance as the new day's baseline. The
// rollover clears a daily-loss block; a drawdown block is untouched.
func (m *Monitor) ensureDay(now time.Time, balance float64) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if m.daily.DayStart.IsZero() {
		m.daily = types.DailyStats{StartBalance: balance, DayStart: dayStart}
		if m.peakBalance == 0 {
			m.peakBalance = balance
		}
		return
	}

	if dayStart.After(m.daily.DayStart) {
		m.logger.Info("daily stats rollover",
			zap.Time("newDayStart", dayStart),
			zap.Float64("newBaseline", balance),
			zap.Float64("previousRealizedPnl", m.daily.RealizedPnl),
			zap.Int("previousTradeCount", m.daily.TradeCount))
		m.daily = types.DailyStats{StartBalance: balance, DayStart: dayStart}
		m.dailyBreached = false
	}
}

func (m *Monitor) snapshotChanged(s types.RiskSnapshot) bool {
	if !m.hasPublished {
		return true
	}
	p := m.published
	if s.DailyLimitBreached != p.DailyLimitBreached ||
		s.DrawdownBreached != p.DrawdownBreached ||
		s.TradingAllowed != p.TradingAllowed {
		return true
	}
	return math.Abs(s.DailyPnl-p.DailyPnl) > pnlEpsilon ||
		math.Abs(s.CurrentDrawdown-p.CurrentDrawdown) > drawdownEpsilon
}

// emergencyClose cancels all open orders and market-closes any open
// position. A failure here is reported as an unprotected position but never
// reverts the blocked state: staying blocked with a position is preferred to
// trading on.
func (m *Monitor) emergencyClose(ctx context.Context) {
	m.logger.Warn("emergency liquidation triggered", zap.String("symbol", m.cfg.Symbol))

	if err := m.gateway.CancelAllOrders(ctx, m.cfg.Symbol); err != nil {
		m.logger.Error("emergency cancel-all failed", zap.Error(err))
	}

	position, err := m.gateway.GetPosition(ctx, m.cfg.Symbol)
	if err != nil {
		m.logger.Error("emergency position query failed", zap.Error(err))
		m.publisher.Publish(notifications.PositionUnprotected{
			Symbol: m.cfg.Symbol,
			Reason: fmt.Sprintf("emergency close failed, position state unknown: %v", err),
		})
		return
	}
	if position.IsFlat() {
		return
	}

	result, err := m.gateway.SubmitMarketOrder(ctx, exchange.MarketOrderParams{
		Symbol:   m.cfg.Symbol,
		Side:     exchange.Opposite(exchange.SideForPosition(position.Side)),
		Quantity: position.Size,
	})
	if err != nil {
		m.logger.Error("emergency close order failed", zap.Error(err))
		m.publisher.Publish(notifications.PositionUnprotected{
			Symbol:   m.cfg.Symbol,
			Quantity: position.Size,
			Reason:   fmt.Sprintf("emergency close order failed: %v", err),
		})
		return
	}
	m.logger.Warn("emergency close order submitted",
		zap.String("orderId", result.OrderID),
		zap.Float64("quantity", position.Size))
}

func blockReason(daily, drawdown bool) string {
	switch {
	case daily && drawdown:
		return "daily loss limit and max drawdown breached"
	case daily:
		return "daily loss limit breached"
	default:
		return "max drawdown breached"
	}
}
