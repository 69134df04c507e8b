package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/executor"
	"github.com/quanterra/bandbot/internal/monitoring"
	"github.com/quanterra/bandbot/pkg/types"
)

// newServer builds the HTTP surface: the signal webhook, prometheus metrics
// and the health endpoint.
func newServer(addr string, exec *executor.Executor, health *monitoring.HealthChecker, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/healthz", health)
	mux.Handle("/signal", &signalHandler{exec: exec, logger: logger})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// signalHandler accepts trading signals as JSON over POST
type signalHandler struct {
	exec   *executor.Executor
	logger *zap.Logger
}

type signalResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *signalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var signal types.TradingSignal
	if err := json.NewDecoder(r.Body).Decode(&signal); err != nil {
		writeJSON(w, http.StatusBadRequest, signalResponse{Status: "rejected", Error: "invalid signal payload"})
		return
	}
	if signal.Direction != types.DirectionLong && signal.Direction != types.DirectionShort {
		writeJSON(w, http.StatusBadRequest, signalResponse{Status: "rejected", Error: "direction must be LONG or SHORT"})
		return
	}
	if signal.Symbol == "" || signal.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, signalResponse{Status: "rejected", Error: "symbol and a positive price are required"})
		return
	}
	if signal.CandleTime.IsZero() {
		signal.CandleTime = time.Now().UTC().Truncate(time.Minute)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	outcome, err := h.exec.ProcessSignal(ctx, signal)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, executor.ErrDisabled) || errors.Is(err, executor.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, signalResponse{Status: "rejected", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, signalResponse{Status: "executed", OrderID: outcome.EntryOrder.OrderID})
}

func writeJSON(w http.ResponseWriter, status int, body signalResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
