package monitoring

import (
	"github.com/quanterra/bandbot/internal/notifications"
)

// MetricsNotifier feeds notification events into the prometheus gauges and
// the health checker, so risk state is observable without polling the
// monitor directly.
type MetricsNotifier struct {
	health *HealthChecker
}

func NewMetricsNotifier(health *HealthChecker) *MetricsNotifier {
	return &MetricsNotifier{health: health}
}

func (n *MetricsNotifier) Notify(event notifications.Event) error {
	switch e := event.(type) {
	case notifications.RiskSnapshotChanged:
		UpdateRiskState(e.Snapshot)
		if n.health != nil {
			n.health.RecordRiskCheck(e.Snapshot.TradingAllowed)
		}
	case notifications.ExecutionSuccess:
		if n.health != nil {
			n.health.RecordSignal()
		}
	case notifications.ExecutionFailure:
		if n.health != nil {
			n.health.RecordSignal()
		}
	case notifications.PositionUnprotected:
		// an unprotected position is a persistent operator problem, not a
		// transient one; the health endpoint stays unhealthy until restart
		RecordError("position_unprotected")
		if n.health != nil {
			n.health.AddError(e.Summary())
		}
	}
	return nil
}
