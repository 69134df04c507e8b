package monitoring

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterra/bandbot/internal/notifications"
	"github.com/quanterra/bandbot/pkg/types"
)

// TestMetricsNotifier_UnprotectedPositionTurnsHealthUnhealthy tests that an
// unprotected-position event is recorded as a persistent health error, so
// the health endpoint reports unhealthy until the process restarts.
func TestMetricsNotifier_UnprotectedPositionTurnsHealthUnhealthy(t *testing.T) {
	health := NewHealthChecker()
	health.SetConnected(true)
	notifier := NewMetricsNotifier(health)

	require.NoError(t, notifier.Notify(notifications.PositionUnprotected{
		Symbol:    "BTCUSDT",
		Direction: types.DirectionLong,
		Quantity:  0.02,
		FillPrice: 50000,
		Reason:    "both exit order submissions failed",
	}))

	recorder := httptest.NewRecorder()
	health.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, 500, recorder.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	require.Len(t, status.Errors, 1)
	assert.Contains(t, status.Errors[0], "BTCUSDT")
}

// TestMetricsNotifier_RiskCheckFeedsHealth tests that snapshot events update
// the health checker's gate view.
func TestMetricsNotifier_RiskCheckFeedsHealth(t *testing.T) {
	health := NewHealthChecker()
	health.SetConnected(true)
	notifier := NewMetricsNotifier(health)

	require.NoError(t, notifier.Notify(notifications.RiskSnapshotChanged{
		Snapshot: types.RiskSnapshot{TradingAllowed: true},
	}))

	recorder := httptest.NewRecorder()
	health.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, 200, recorder.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.TradingAllowed)
	assert.False(t, status.LastRiskCheck.IsZero())
}
