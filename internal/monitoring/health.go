package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks liveness facts fed by the rest of the bot and serves
// them as a JSON health endpoint.
type HealthChecker struct {
	mu             sync.RWMutex
	lastSignal     time.Time
	lastRiskCheck  time.Time
	isConnected    bool
	tradingAllowed bool
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastSignal     time.Time `json:"last_signal"`
	LastRiskCheck  time.Time `json:"last_risk_check"`
	IsConnected    bool      `json:"is_connected"`
	TradingAllowed bool      `json:"trading_allowed"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// SetConnected marks the exchange connection state
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordSignal marks the time of the last processed signal
func (h *HealthChecker) RecordSignal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSignal = time.Now()
}

// RecordRiskCheck marks the time of the last risk check and the gate state
func (h *HealthChecker) RecordRiskCheck(tradingAllowed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRiskCheck = time.Now()
	h.tradingAllowed = tradingAllowed
}

// AddError appends a persistent error to the health report
func (h *HealthChecker) AddError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastSignal:     h.lastSignal,
		LastRiskCheck:  h.lastRiskCheck,
		IsConnected:    h.isConnected,
		TradingAllowed: h.tradingAllowed,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
