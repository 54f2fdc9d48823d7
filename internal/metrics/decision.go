// SPDX-License-Identifier: MIT

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentrygate_decision_total",
		Help: "Total number of gate decisions by outcome and reason",
	}, []string{"outcome", "reason"})
)

// RecordDecision records one decision-engine outcome.
func RecordDecision(outcome, reason string) {
	decisionTotal.WithLabelValues(
		normalizeDecisionOutcomeLabel(outcome),
		normalizeDecisionReasonLabel(reason),
	).Inc()
}

func normalizeDecisionOutcomeLabel(outcome string) string {
	switch strings.ToUpper(strings.TrimSpace(outcome)) {
	case "PASS", "ALARM":
		return strings.ToUpper(strings.TrimSpace(outcome))
	default:
		return "unknown"
	}
}

func normalizeDecisionReasonLabel(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "debounced", "paid", "in_cart_allowed", "in_cart_not_allowed", "alarm_cooldown", "qr_not_found":
		return strings.ToLower(strings.TrimSpace(reason))
	default:
		return "unknown"
	}
}
