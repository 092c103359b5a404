package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	httpP95WarnMs  = 500.0
	httpP95CritMs  = 1000.0
	http5xxWarnPct = 1.0
	http5xxCritPct = 5.0
)

// NetworkHTTPPack evaluates HTTP edge metrics (net.http, gateway.http):
// p95_ms latency, 5xx_rate as a fraction, optional throughput_rps.
type NetworkHTTPPack struct{}

func (NetworkHTTPPack) Types() []string { return []string{"net.http", "gateway.http"} }

func (NetworkHTTPPack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	p95, okP95 := event.MetricValue(metrics, "p95_ms")
	r5x, ok5xx := event.MetricValue(metrics, "5xx_rate")
	rps, okRps := event.MetricValue(metrics, "throughput_rps")
	if !okP95 && !ok5xx {
		return []string{"Network HTTP metrics missing: p95_ms, 5xx_rate."}
	}

	var recos []string
	if okP95 {
		switch {
		case p95 >= httpP95CritMs:
			recos = append(recos, fmt.Sprintf("p95 latency critical (%.0f ms). Check upstreams, DB latency, and saturation.", p95))
		case p95 >= httpP95WarnMs:
			recos = append(recos, fmt.Sprintf("p95 latency elevated (%.0f ms). Consider caching, connection pooling, autoscaling.", p95))
		}
	}
	if ok5xx {
		pct := r5x * 100.0
		switch {
		case pct >= http5xxCritPct:
			recos = append(recos, fmt.Sprintf("5xx rate critical (%.2f%%). Potential outage; roll back and enable circuit breakers.", pct))
		case pct >= http5xxWarnPct:
			recos = append(recos, fmt.Sprintf("5xx rate elevated (%.2f%%). Investigate error spikes and dependency health.", pct))
		}
	}
	if len(recos) == 0 {
		recos = append(recos, "Network HTTP within thresholds based on provided metrics.")
	}
	if okRps && rps > 0 && okP95 && p95 >= httpP95WarnMs {
		recos = append(recos, fmt.Sprintf("Throughput ~%.0f rps under elevated latency; consider capacity increase and CDN/cache tuning.", rps))
	}
	return recos
}
