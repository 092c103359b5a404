package rules

import (
	"fmt"

	"aimas-backend/services/recommendation-service/internal/event"
)

// Tune to NIC capacity; 80 Mbps is sized for a 100 Mbps link.
const nicHighMbps = 80.0

// SystemNetPack evaluates host NIC metrics (system.net): rx/tx throughput
// plus error and drop rates in packets per second.
type SystemNetPack struct{}

func (SystemNetPack) Types() []string { return []string{"system.net"} }

func (SystemNetPack) Evaluate(metrics map[string]any, labels map[string]string) []string {
	nic := labels["nic"]
	if nic == "" {
		nic = "unknown"
	}
	rx, okRx := event.MetricValue(metrics, "rx_mbps")
	tx, okTx := event.MetricValue(metrics, "tx_mbps")
	if !okRx && !okTx {
		return []string{fmt.Sprintf("NIC %s: no throughput data.", nic)}
	}

	var recos []string
	if rx > nicHighMbps || tx > nicHighMbps {
		recos = append(recos, fmt.Sprintf("NIC %s: high throughput (rx %.1f Mbps, tx %.1f Mbps). Check link capacity/QoS, consider scaling or traffic split.", nic, rx, tx))
	}
	rxErr, _ := event.MetricValue(metrics, "rx_err_rate")
	txErr, _ := event.MetricValue(metrics, "tx_err_rate")
	if rxErr > 0 || txErr > 0 {
		recos = append(recos, fmt.Sprintf("NIC %s: packet errors detected (rx %.4f/s, tx %.4f/s). Suspect physical link, NIC/driver, or duplex mismatch.", nic, rxErr, txErr))
	}
	rxDrop, _ := event.MetricValue(metrics, "rx_drop_rate")
	txDrop, _ := event.MetricValue(metrics, "tx_drop_rate")
	if rxDrop > 0 || txDrop > 0 {
		recos = append(recos, fmt.Sprintf("NIC %s: packet drops observed (rx %.4f/s, tx %.4f/s). Check buffers, QoS, and upstream congestion.", nic, rxDrop, txDrop))
	}
	if len(recos) == 0 {
		recos = append(recos, fmt.Sprintf("NIC %s: network healthy (rx %.2f Mbps, tx %.2f Mbps).", nic, rx, tx))
	}
	return recos
}
