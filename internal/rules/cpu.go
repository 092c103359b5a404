package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	cpuHighPct     = 85.0
	cpuCriticalPct = 95.0
	cpuIdlePct     = 5.0
)

// CPUPack evaluates host CPU utilization events. Expects usage_pct
// (legacy used_pct is normalized upstream).
type CPUPack struct{}

func (CPUPack) Types() []string { return []string{"system.cpu", "host.cpu"} }

func (CPUPack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	usage, ok := event.MetricValue(metrics, "usage_pct")
	if !ok {
		usage, ok = event.MetricValue(metrics, "used_pct")
	}
	if !ok {
		return []string{"CPU metric missing: usage_pct/used_pct."}
	}
	var recos []string
	switch {
	case usage > cpuHighPct:
		recos = append(recos, fmt.Sprintf("High CPU (%.1f%%). Scale up or tune hot paths.", usage))
		if usage > cpuCriticalPct {
			recos = append(recos, fmt.Sprintf("Critical CPU saturation (%.1f%%). Shed load or scale out immediately.", usage))
		}
	case usage < cpuIdlePct:
		recos = append(recos, fmt.Sprintf("Very low CPU (%.1f%%). Consider downscaling in off-peak.", usage))
	default:
		recos = append(recos, fmt.Sprintf("CPU normal (%.1f%%).", usage))
	}
	return recos
}
