package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	diskCriticalFreePct = 10.0
	diskLowFreePct      = 25.0
)

// DiskPack evaluates system.disk events. The volume label identifies the
// drive; metrics carry total_gb/free_gb.
type DiskPack struct{}

func (DiskPack) Types() []string { return []string{"system.disk"} }

func (DiskPack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	volume := labels["volume"]
	if volume == "" {
		volume = "unknown"
	}
	totalGB, okTotal := event.MetricValue(metrics, "total_gb")
	freeGB, okFree := event.MetricValue(metrics, "free_gb")
	if !okTotal || !okFree {
		return []string{fmt.Sprintf("Disk metric missing for %s: both total_gb and free_gb required.", volume)}
	}
	if totalGB <= 0 {
		return []string{fmt.Sprintf("Invalid disk size for %s: total_gb must be > 0.", volume)}
	}
	freePct := freeGB / totalGB * 100.0
	switch {
	case freePct < diskCriticalFreePct:
		return []string{fmt.Sprintf("Critical: %s has only %.1f%% free space. Immediate cleanup or storage expansion required.", volume, freePct)}
	case freePct < diskLowFreePct:
		return []string{fmt.Sprintf("Low free space on %s (%.1f%% free). Plan cleanup or add capacity soon.", volume, freePct)}
	default:
		return []string{fmt.Sprintf("Disk space healthy on %s (%.1f%% free).", volume, freePct)}
	}
}
