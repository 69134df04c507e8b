package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/internal/exchange/exchangetest"
	"github.com/quanterra/bandbot/internal/notifications"
	"github.com/quanterra/bandbot/pkg/types"
)

// capturePublisher records published events for assertions
type capturePublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (c *capturePublisher) Publish(event notifications.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturePublisher) named(name string) []notifications.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notifications.Event
	for _, e := range c.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

func balance(total float64) types.AccountBalance {
	return types.AccountBalance{Asset: "USDT", Available: total, Total: total}
}

func testConfig() Config {
	return Config{
		Asset:              "USDT",
		Symbol:             "BTCUSDT",
		DailyLossLimitUsdt: 100,
		MaxDrawdownPercent: 0.1,
		CheckInterval:      time.Minute,
	}
}

func newTestMonitor(t *testing.T, cfg Config) (*Monitor, *exchangetest.MockGateway, *capturePublisher) {
	t.Helper()
	gateway := &exchangetest.MockGateway{}
	publisher := &capturePublisher{}
	monitor := NewMonitor(gateway, publisher, cfg, zap.NewNop())
	return monitor, gateway, publisher
}

// TestCheckNow_DailyLossBreach tests the reference daily-loss scenario:
// day start 1000, realized -50, balance 940, limit 100
func TestCheckNow_DailyLossBreach(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDrawdownPercent = 0.5 // keep the drawdown condition out of the way
	monitor, gateway, publisher := newTestMonitor(t, cfg)

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(940), nil).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, monitor.TradingAllowed())

	err = monitor.RecordTrade(context.Background(), -50)
	require.NoError(t, err)

	snapshot := monitor.Snapshot()
	assert.InDelta(t, -110.0, snapshot.DailyPnl, 1e-9)
	assert.True(t, snapshot.DailyLimitBreached)
	assert.False(t, snapshot.TradingAllowed)
	assert.False(t, monitor.TradingAllowed())
	assert.Equal(t, 0.0, snapshot.DailyLossRemaining)

	require.Len(t, publisher.named("risk-breach"), 1)
	require.Len(t, publisher.named("trading-blocked"), 1)
}

// TestCheckNow_DrawdownBreach tests the reference drawdown scenario:
// peak 1000, balance 880, max drawdown 10%
func TestCheckNow_DrawdownBreach(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLossLimitUsdt = 1000 // keep the daily condition out of the way
	monitor, gateway, publisher := newTestMonitor(t, cfg)

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(880), nil).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)

	snapshot, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.12, snapshot.CurrentDrawdown, 1e-9)
	assert.True(t, snapshot.DrawdownBreached)
	assert.False(t, snapshot.TradingAllowed)
	assert.Equal(t, 1000.0, snapshot.PeakBalance)
	require.Len(t, publisher.named("risk-breach"), 1)
}

// TestCheckNow_PeakRatchetsUpward tests that the peak balance only moves up
func TestCheckNow_PeakRatchetsUpward(t *testing.T) {
	monitor, gateway, _ := newTestMonitor(t, testConfig())

	for _, b := range []float64{1000, 1100, 1050} {
		gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(b), nil).Once()
		_, err := monitor.CheckNow(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1100.0, monitor.Snapshot().PeakBalance)
}

// TestCheckNow_DailyBlockStickyIntraday tests that an intraday balance
// recovery does not clear a daily-loss block
func TestCheckNow_DailyBlockStickyIntraday(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDrawdownPercent = 0.5
	monitor, gateway, _ := newTestMonitor(t, cfg)

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(880), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(990), nil).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	_, err = monitor.CheckNow(context.Background())
	require.NoError(t, err)
	assert.False(t, monitor.TradingAllowed())

	snapshot, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.DailyLimitBreached)
	assert.False(t, monitor.TradingAllowed())
}

// TestCheckNow_MidnightRollover tests that the UTC rollover rebases the
// daily stats on the current balance and clears a daily-loss block
func TestCheckNow_MidnightRollover(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDrawdownPercent = 0.5
	monitor, gateway, publisher := newTestMonitor(t, cfg)

	current := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	monitor.now = func() time.Time { return current }

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(850), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(850), nil).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	_, err = monitor.CheckNow(context.Background())
	require.NoError(t, err)
	assert.False(t, monitor.TradingAllowed())

	current = time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	snapshot, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.0, snapshot.DailyPnl, 1e-9)
	assert.False(t, snapshot.DailyLimitBreached)
	assert.True(t, snapshot.TradingAllowed)
	assert.True(t, monitor.TradingAllowed())
	require.Len(t, publisher.named("trading-resumed"), 1)
}

// TestCheckNow_RolloverKeepsDrawdownBlock tests that the midnight rollover
// does not clear a drawdown block
func TestCheckNow_RolloverKeepsDrawdownBlock(t *testing.T) {
	monitor, gateway, _ := newTestMonitor(t, testConfig())

	current := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	monitor.now = func() time.Time { return current }

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(850), nil).Twice()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	_, err = monitor.CheckNow(context.Background())
	require.NoError(t, err)

	current = time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	snapshot, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)

	assert.False(t, snapshot.DailyLimitBreached)
	assert.True(t, snapshot.DrawdownBreached)
	assert.False(t, snapshot.TradingAllowed)
}

// TestCheckNow_BalanceQueryFailureKeepsGate tests that a failed balance
// query neither opens nor closes the gate
func TestCheckNow_BalanceQueryFailureKeepsGate(t *testing.T) {
	monitor, gateway, _ := newTestMonitor(t, testConfig())

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").
		Return(types.AccountBalance{}, errors.New("connection reset")).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	require.True(t, monitor.TradingAllowed())

	_, err = monitor.CheckNow(context.Background())
	assert.Error(t, err)
	assert.True(t, monitor.TradingAllowed())
}

// TestCheckNow_AutoCloseOnBreach tests that entering a blocked state with
// auto-close configured cancels orders and flattens the open position
func TestCheckNow_AutoCloseOnBreach(t *testing.T) {
	cfg := testConfig()
	cfg.AutoCloseOnBreach = true
	cfg.MaxDrawdownPercent = 0.5
	monitor, gateway, publisher := newTestMonitor(t, cfg)

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(880), nil).Once()
	gateway.On("CancelAllOrders", mock.Anything, "BTCUSDT").Return(nil).Once()
	gateway.On("GetPosition", mock.Anything, "BTCUSDT").Return(types.Position{
		Symbol: "BTCUSDT",
		Side:   types.PositionSideLong,
		Size:   0.02,
	}, nil).Once()
	gateway.On("SubmitMarketOrder", mock.Anything, exchange.MarketOrderParams{
		Symbol:   "BTCUSDT",
		Side:     exchange.OrderSideSell,
		Quantity: 0.02,
	}).Return(&types.OrderResult{Success: true, OrderID: "close-1"}, nil).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	_, err = monitor.CheckNow(context.Background())
	require.NoError(t, err)

	gateway.AssertExpectations(t)
	breaches := publisher.named("risk-breach")
	require.Len(t, breaches, 1)
	assert.True(t, breaches[0].(notifications.RiskBreach).Breach.AutoCloseTriggered)
}

// TestCheckNow_EmergencyCloseFailureStaysBlocked tests that a failed
// liquidation leaves the gate blocked and raises an unprotected-position
// alert, since the position state is unknown
func TestCheckNow_EmergencyCloseFailureStaysBlocked(t *testing.T) {
	cfg := testConfig()
	cfg.AutoCloseOnBreach = true
	cfg.MaxDrawdownPercent = 0.5
	monitor, gateway, publisher := newTestMonitor(t, cfg)

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(880), nil).Once()
	gateway.On("CancelAllOrders", mock.Anything, "BTCUSDT").Return(errors.New("rate limited")).Once()
	gateway.On("GetPosition", mock.Anything, "BTCUSDT").
		Return(types.Position{}, errors.New("rate limited")).Once()

	_, err := monitor.CheckNow(context.Background())
	require.NoError(t, err)
	_, err = monitor.CheckNow(context.Background())
	require.NoError(t, err)

	assert.False(t, monitor.TradingAllowed())

	unprotected := publisher.named("position-unprotected")
	require.Len(t, unprotected, 1)
	event := unprotected[0].(notifications.PositionUnprotected)
	assert.Equal(t, "BTCUSDT", event.Symbol)
	assert.Contains(t, event.Reason, "position state unknown")
}

// TestCheckNow_SnapshotJitterSuppressed tests that sub-epsilon balance moves
// do not publish new snapshots
func TestCheckNow_SnapshotJitterSuppressed(t *testing.T) {
	monitor, gateway, publisher := newTestMonitor(t, testConfig())

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000.005), nil).Once()
	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(995), nil).Once()

	for i := 0; i < 3; i++ {
		_, err := monitor.CheckNow(context.Background())
		require.NoError(t, err)
	}

	// first check publishes, the 0.005 move is jitter, the 5 USDT move is not
	assert.Len(t, publisher.named("risk-snapshot-changed"), 2)
}

// TestRecordTrade_CountsTrades tests the trade counter
func TestRecordTrade_CountsTrades(t *testing.T) {
	monitor, gateway, _ := newTestMonitor(t, testConfig())

	gateway.On("GetBalance", mock.Anything, "USDT").Return(balance(1000), nil)

	require.NoError(t, monitor.RecordTrade(context.Background(), 12.5))
	require.NoError(t, monitor.RecordTrade(context.Background(), -4.5))

	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	assert.Equal(t, 2, monitor.daily.TradeCount)
	assert.InDelta(t, 8.0, monitor.daily.RealizedPnl, 1e-9)
}
