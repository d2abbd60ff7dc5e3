package measure

import (
	"errors"
	"strconv"
	"time"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/params"
	"github.com/gnkz/lz-ssr-oracle/pot"
)

// TestModule_SyncOutcomes measures how pot data pushes fare on the wire.
// Delivery attempts are bucketed into epochs of one forward interval each,
// and every attempt is counted under the outcome the destination gave it.
type TestModule_SyncOutcomes struct {
	epochID  int
	epochLen time.Duration
	start    time.Time

	attemptCount      []int   // delivery attempts per epoch
	appliedCount      []int   // accepted and stored per epoch
	staleCount        []int   // rejected by the ordering rule
	outOfRangeCount   []int   // rejected by the width bounds
	duplicateCount    []int   // suppressed by the nonce window
	unauthorizedCount []int   // origin not the registered peer
	malformedCount    []int   // payload failed to decode
	badSignatureCount []int   // frame attestation failed
	noReceiverCount   []int   // no app registered at the receiver address
	otherCount        []int   // anything else
	appliedLatencyMs  []int64 // sum of transit latency of applied attempts

	appliedRate []float64 // applied / attempts, percent
}

func NewTestModule_SyncOutcomes() *TestModule_SyncOutcomes {
	epochLen := time.Duration(params.ForwardInterval) * time.Millisecond
	if epochLen <= 0 {
		epochLen = time.Second
	}
	return &TestModule_SyncOutcomes{
		epochID:  -1,
		epochLen: epochLen,

		attemptCount:      make([]int, 0),
		appliedCount:      make([]int, 0),
		staleCount:        make([]int, 0),
		outOfRangeCount:   make([]int, 0),
		duplicateCount:    make([]int, 0),
		unauthorizedCount: make([]int, 0),
		malformedCount:    make([]int, 0),
		badSignatureCount: make([]int, 0),
		noReceiverCount:   make([]int, 0),
		otherCount:        make([]int, 0),
		appliedLatencyMs:  make([]int64, 0),

		appliedRate: make([]float64, 0),
	}
}

func (tmso *TestModule_SyncOutcomes) OutputMetricName() string {
	return "Sync_Outcomes"
}

// classifyOutcome names the fate of one delivery attempt. The duplicate flag
// wins because the nonce window short-circuits before the app runs.
func classifyOutcome(rec bridge.DeliveryRecord) string {
	switch {
	case rec.Duplicate:
		return "duplicate"
	case rec.Err == nil:
		return "applied"
	case errors.Is(rec.Err, pot.ErrStaleUpdate):
		return "stale"
	case errors.Is(rec.Err, pot.ErrValueOutOfRange):
		return "out_of_range"
	case errors.Is(rec.Err, bridge.ErrUnauthorizedOrigin):
		return "unauthorized"
	case errors.Is(rec.Err, pot.ErrBadPayload):
		return "malformed"
	case errors.Is(rec.Err, bridge.ErrBadSignature):
		return "bad_signature"
	case errors.Is(rec.Err, bridge.ErrNoReceiver):
		return "no_receiver"
	default:
		return "other"
	}
}

func (tmso *TestModule_SyncOutcomes) UpdateDeliveryRecord(rec bridge.DeliveryRecord) {
	if tmso.start.IsZero() {
		tmso.start = rec.At
	}
	epochid := int(rec.At.Sub(tmso.start) / tmso.epochLen)
	if epochid < 0 { // records from different endpoints can arrive slightly out of order
		epochid = 0
	}

	// Extend slices if needed
	for tmso.epochID < epochid {
		tmso.attemptCount = append(tmso.attemptCount, 0)
		tmso.appliedCount = append(tmso.appliedCount, 0)
		tmso.staleCount = append(tmso.staleCount, 0)
		tmso.outOfRangeCount = append(tmso.outOfRangeCount, 0)
		tmso.duplicateCount = append(tmso.duplicateCount, 0)
		tmso.unauthorizedCount = append(tmso.unauthorizedCount, 0)
		tmso.malformedCount = append(tmso.malformedCount, 0)
		tmso.badSignatureCount = append(tmso.badSignatureCount, 0)
		tmso.noReceiverCount = append(tmso.noReceiverCount, 0)
		tmso.otherCount = append(tmso.otherCount, 0)
		tmso.appliedLatencyMs = append(tmso.appliedLatencyMs, 0)
		tmso.appliedRate = append(tmso.appliedRate, 0)

		tmso.epochID++
	}

	tmso.attemptCount[epochid]++
	switch classifyOutcome(rec) {
	case "applied":
		tmso.appliedCount[epochid]++
		tmso.appliedLatencyMs[epochid] += rec.Latency.Milliseconds()
	case "stale":
		tmso.staleCount[epochid]++
	case "out_of_range":
		tmso.outOfRangeCount[epochid]++
	case "duplicate":
		tmso.duplicateCount[epochid]++
	case "unauthorized":
		tmso.unauthorizedCount[epochid]++
	case "malformed":
		tmso.malformedCount[epochid]++
	case "bad_signature":
		tmso.badSignatureCount[epochid]++
	case "no_receiver":
		tmso.noReceiverCount[epochid]++
	default:
		tmso.otherCount[epochid]++
	}

	tmso.appliedRate[epochid] = float64(tmso.appliedCount[epochid]) / float64(tmso.attemptCount[epochid]) * 100.0
}

func (tmso *TestModule_SyncOutcomes) UpdateFreshnessSample(FreshnessSample) {}

func (tmso *TestModule_SyncOutcomes) OutputRecord() (perEpochAppliedRate []float64, totAppliedRate float64) {
	tmso.writeToCSV()

	perEpochAppliedRate = make([]float64, 0)
	totalApplied := 0
	totalAttempts := 0
	for eid := range tmso.attemptCount {
		perEpochAppliedRate = append(perEpochAppliedRate, tmso.appliedRate[eid])
		totalApplied += tmso.appliedCount[eid]
		totalAttempts += tmso.attemptCount[eid]
	}
	if totalAttempts > 0 {
		totAppliedRate = float64(totalApplied) / float64(totalAttempts) * 100.0
	}
	return
}

func (tmso *TestModule_SyncOutcomes) writeToCSV() {
	fileName := tmso.OutputMetricName()
	measureName := []string{
		"EpochID",
		"Attempt Count",
		"Applied Count",
		"Stale Count",
		"Out-of-Range Count",
		"Duplicate Count",
		"Unauthorized Count",
		"Malformed Count",
		"Bad Signature Count",
		"No Receiver Count",
		"Other Failure Count",
		"Applied Avg Latency (ms)",
		"Applied Rate (%)",
	}

	measureVals := make([][]string, 0)
	for eid := range tmso.attemptCount {
		avgLatency := 0.0
		if tmso.appliedCount[eid] > 0 {
			avgLatency = float64(tmso.appliedLatencyMs[eid]) / float64(tmso.appliedCount[eid])
		}

		csvLine := []string{
			strconv.Itoa(eid),
			strconv.Itoa(tmso.attemptCount[eid]),
			strconv.Itoa(tmso.appliedCount[eid]),
			strconv.Itoa(tmso.staleCount[eid]),
			strconv.Itoa(tmso.outOfRangeCount[eid]),
			strconv.Itoa(tmso.duplicateCount[eid]),
			strconv.Itoa(tmso.unauthorizedCount[eid]),
			strconv.Itoa(tmso.malformedCount[eid]),
			strconv.Itoa(tmso.badSignatureCount[eid]),
			strconv.Itoa(tmso.noReceiverCount[eid]),
			strconv.Itoa(tmso.otherCount[eid]),
			strconv.FormatFloat(avgLatency, 'f', 2, 64),
			strconv.FormatFloat(tmso.appliedRate[eid], 'f', 2, 64),
		}
		measureVals = append(measureVals, csvLine)
	}

	WriteMetricsToCSV(fileName, measureName, measureVals)
}
