package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	memHighUsedPct = 85.0
	memLowUsedPct  = 20.0
)

// MemoryPack evaluates system.memory events carrying total_gb/free_gb.
type MemoryPack struct{}

func (MemoryPack) Types() []string { return []string{"system.memory"} }

func (MemoryPack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	totalGB, okTotal := event.MetricValue(metrics, "total_gb")
	freeGB, okFree := event.MetricValue(metrics, "free_gb")
	if !okTotal || !okFree {
		return []string{"Memory metrics missing: need total_gb and free_gb."}
	}
	if totalGB <= 0 {
		return []string{"Invalid memory size: total_gb must be > 0."}
	}
	usedPct := (totalGB - freeGB) / totalGB * 100.0
	freePct := 100.0 - usedPct
	switch {
	case usedPct > memHighUsedPct:
		return []string{fmt.Sprintf("High memory usage (%.1f%%). Check for leaks, restart runaway services, reduce cache sizes, or add RAM.", usedPct)}
	case usedPct < memLowUsedPct:
		return []string{fmt.Sprintf("Low memory usage (%.1f%%). Consider right-sizing if consistently under-utilized.", usedPct)}
	default:
		return []string{fmt.Sprintf("Memory usage normal (%.1f%%, %.1f%% free).", usedPct, freePct)}
	}
}
