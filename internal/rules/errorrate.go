package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

// ErrorRatePack evaluates service error-rate events. Thresholds are
// fractions (0.01 = 1%); minQPS damps the signal at very low traffic.
type ErrorRatePack struct {
	Warn   float64
	Crit   float64
	MinQPS float64
}

func NewErrorRatePack() ErrorRatePack {
	return ErrorRatePack{Warn: 0.01, Crit: 0.05, MinQPS: 5}
}

func (ErrorRatePack) Types() []string { return []string{"service.error_rate", "api.error_rate"} }

func (p ErrorRatePack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	errRate, ok := event.MetricValue(metrics, "error_rate")
	if !ok {
		return []string{"Error rate metric missing: error_rate."}
	}
	qps, okQPS := event.MetricValue(metrics, "qps")

	pct := errRate * 100.0
	if okQPS && qps < p.MinQPS && pct < p.Warn*100 {
		return []string{"Low traffic and low error rate; signal is weak."}
	}

	var recos []string
	switch {
	case pct >= p.Crit*100:
		recos = append(recos, fmt.Sprintf("Error rate critical (%.2f%%). Consider rollback, incident bridge, and SLO review.", pct))
	case pct >= p.Warn*100:
		recos = append(recos, fmt.Sprintf("Error rate elevated (%.2f%%). Investigate recent deploys, upstreams, and dependency health.", pct))
	default:
		recos = append(recos, fmt.Sprintf("Error rate healthy (%.2f%%).", pct))
	}
	if okQPS && qps > 0 && pct >= p.Warn*100 {
		recos = append(recos, fmt.Sprintf("Affected load ~%.0f rps; prioritize hot paths and top failing endpoints.", qps))
	}
	return recos
}
