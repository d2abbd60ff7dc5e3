package measure

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gnkz/lz-ssr-oracle/bridge"
)

// DeliveryLatencyMetric stores the transport timing of one delivered frame
type DeliveryLatencyMetric struct {
	GUID       string
	SrcChainID uint64
	DstChainID uint64
	Nonce      uint64
	Kind       string
	LatencyMs  int64
	Outcome    string
}

// TestModule_DeliveryLatency measures per-message transit latency across the
// bridge, one row per decoded frame.
type TestModule_DeliveryLatency struct {
	metrics []*DeliveryLatencyMetric
}

func NewTestModule_DeliveryLatency() *TestModule_DeliveryLatency {
	return &TestModule_DeliveryLatency{
		metrics: make([]*DeliveryLatencyMetric, 0),
	}
}

func (tmdl *TestModule_DeliveryLatency) OutputMetricName() string {
	return "Delivery_Latency"
}

func (tmdl *TestModule_DeliveryLatency) UpdateDeliveryRecord(rec bridge.DeliveryRecord) {
	// Frames that failed attestation or decoding never got a GUID or a
	// send timestamp, so no latency can be reported for them.
	if rec.GUID == (common.Hash{}) {
		return
	}

	metric := &DeliveryLatencyMetric{
		GUID:       rec.GUID.Hex(),
		SrcChainID: rec.SrcChainID,
		DstChainID: rec.DstChainID,
		Nonce:      rec.Nonce,
		Kind:       string(rec.Kind),
		LatencyMs:  rec.Latency.Milliseconds(),
		Outcome:    classifyOutcome(rec),
	}
	tmdl.metrics = append(tmdl.metrics, metric)
}

func (tmdl *TestModule_DeliveryLatency) UpdateFreshnessSample(FreshnessSample) {}

func (tmdl *TestModule_DeliveryLatency) OutputRecord() ([]float64, float64) {
	tmdl.writeToCSV()

	totalMs := int64(0)
	for _, metric := range tmdl.metrics {
		totalMs += metric.LatencyMs
	}
	avgMs := 0.0
	if len(tmdl.metrics) > 0 {
		avgMs = float64(totalMs) / float64(len(tmdl.metrics))
	}
	return []float64{}, avgMs
}

func (tmdl *TestModule_DeliveryLatency) writeToCSV() {
	fileName := tmdl.OutputMetricName()
	measureName := []string{
		"GUID",
		"SrcChainID",
		"DstChainID",
		"Nonce",
		"Kind",
		"Latency (ms)",
		"Outcome",
	}

	measureVals := make([][]string, 0)
	for _, metric := range tmdl.metrics {
		csvLine := []string{
			metric.GUID,
			strconv.FormatUint(metric.SrcChainID, 10),
			strconv.FormatUint(metric.DstChainID, 10),
			strconv.FormatUint(metric.Nonce, 10),
			metric.Kind,
			strconv.FormatInt(metric.LatencyMs, 10),
			metric.Outcome,
		}
		measureVals = append(measureVals, csvLine)
	}

	WriteMetricsToCSV(fileName, measureName, measureVals)
}
