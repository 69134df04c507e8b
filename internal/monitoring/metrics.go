package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quanterra/bandbot/pkg/types"
)

var (
	// Signal pipeline metrics
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandbot_signals_total",
			Help: "Total number of trading signals processed",
		},
		[]string{"symbol", "result"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandbot_orders_total",
			Help: "Total number of orders submitted to the exchange",
		},
		[]string{"symbol", "type"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandbot_order_retries_total",
			Help: "Total number of entry order retry attempts",
		},
		[]string{"symbol"},
	)

	// Risk metrics
	tradingAllowed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandbot_trading_allowed",
			Help: "Whether the risk gate currently allows trading (1 = allowed)",
		},
	)

	dailyPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandbot_daily_pnl_usdt",
			Help: "Daily profit and loss in USDT",
		},
	)

	currentDrawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandbot_current_drawdown",
			Help: "Current drawdown from peak balance as a fraction",
		},
	)

	accountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandbot_account_balance_usdt",
			Help: "Last observed total account balance in USDT",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandbot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(retriesTotal)
	prometheus.MustRegister(tradingAllowed)
	prometheus.MustRegister(dailyPnl)
	prometheus.MustRegister(currentDrawdown)
	prometheus.MustRegister(accountBalance)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordSignal records the outcome of a processed signal
func RecordSignal(symbol, result string) {
	signalsTotal.WithLabelValues(symbol, result).Inc()
}

// RecordOrder records a submitted order by type
func RecordOrder(symbol, orderType string) {
	ordersTotal.WithLabelValues(symbol, orderType).Inc()
}

// RecordRetry records an entry order retry attempt
func RecordRetry(symbol string) {
	retriesTotal.WithLabelValues(symbol).Inc()
}

// UpdateRiskState updates the risk gauges from a risk snapshot
func UpdateRiskState(snapshot types.RiskSnapshot) {
	if snapshot.TradingAllowed {
		tradingAllowed.Set(1)
	} else {
		tradingAllowed.Set(0)
	}
	dailyPnl.Set(snapshot.DailyPnl)
	currentDrawdown.Set(snapshot.CurrentDrawdown)
	accountBalance.Set(snapshot.CurrentBalance)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
