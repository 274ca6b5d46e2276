package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records reconciliation-engine outcomes.
type ReconcileMetrics struct {
	webhookEvents  *prometheus.CounterVec
	guardedWrites  *prometheus.CounterVec
	refundLegs     *prometheus.CounterVec
	refundRequests *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_events_total",
		Help: "Gateway webhook events consumed, by event type and outcome.",
	}, []string{"event", "outcome"})
	guardedWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_guard_rejections_total",
		Help: "Status writes rejected by the forward-only guard.",
	}, []string{"source"})
	refundLegs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_legs_total",
		Help: "Per-payment refund legs attempted, by outcome.",
	}, []string{"outcome"})
	refundRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_requests_total",
		Help: "Owner-initiated refund requests, by result.",
	}, []string{"result"})
	reg.MustRegister(webhookEvents, guardedWrites, refundLegs, refundRequests)
	return &ReconcileMetrics{
		webhookEvents:  webhookEvents,
		guardedWrites:  guardedWrites,
		refundLegs:     refundLegs,
		refundRequests: refundRequests,
	}
}

// IncWebhookEvent counts one consumed webhook event.
func (m *ReconcileMetrics) IncWebhookEvent(event, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// IncGuardRejection counts one status write stopped by the forward-only guard.
func (m *ReconcileMetrics) IncGuardRejection(source string) {
	if m == nil || m.guardedWrites == nil {
		return
	}
	m.guardedWrites.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncRefundLeg counts one per-payment refund attempt.
func (m *ReconcileMetrics) IncRefundLeg(outcome string) {
	if m == nil || m.refundLegs == nil {
		return
	}
	m.refundLegs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRefundRequest counts one owner refund request.
func (m *ReconcileMetrics) IncRefundRequest(result string) {
	if m == nil || m.refundRequests == nil {
		return
	}
	m.refundRequests.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
