package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	paymentP95WarnMs  = 500.0
	paymentP95CritMs  = 1000.0
	paymentErrWarnPct = 1.0
	paymentErrCritPct = 5.0
)

// PaymentAPIPack evaluates payment and checkout API events: p95_ms
// latency and error_rate as a fraction.
type PaymentAPIPack struct{}

func (PaymentAPIPack) Types() []string { return []string{"api.payment", "api.checkout"} }

func (PaymentAPIPack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	p95, okP95 := event.MetricValue(metrics, "p95_ms")
	errRate, okErr := event.MetricValue(metrics, "error_rate")
	if !okP95 && !okErr {
		return []string{"Payment metrics missing (p95_ms or error_rate)."}
	}

	var recos []string
	if okP95 {
		switch {
		case p95 > paymentP95CritMs:
			recos = append(recos, fmt.Sprintf("High p95 latency (%.0f ms). Check DB, upstreams, cold starts.", p95))
		case p95 > paymentP95WarnMs:
			recos = append(recos, fmt.Sprintf("Elevated p95 latency (%.0f ms). Watch capacity, cache hit rate.", p95))
		}
	}
	if okErr {
		pct := errRate * 100.0
		switch {
		case pct > paymentErrCritPct:
			recos = append(recos, fmt.Sprintf("Error rate critical (%.2f%%). Rollback or open incident.", pct))
		case pct > paymentErrWarnPct:
			recos = append(recos, fmt.Sprintf("Error rate elevated (%.2f%%). Investigate recent deploys.", pct))
		}
	}
	if len(recos) == 0 {
		recos = append(recos, "Payment API within thresholds.")
	}
	return recos
}
