package measure

import (
	"strconv"
	"time"

	"github.com/gnkz/lz-ssr-oracle/bridge"
)

// FreshnessMetric stores one poll of one chain's pot view
type FreshnessMetric struct {
	At             time.Time
	ChainID        uint64
	SSR            string
	Chi            string
	Rho            uint64
	StalenessSec   int64
	ConversionRate string
}

// TestModule_Freshness measures how far each follower's pot view lags the
// provider. Every poll becomes a row; the source chain's rows carry the
// provider's own state, so follower staleness reads directly against them.
type TestModule_Freshness struct {
	metrics []*FreshnessMetric

	totalStalenessSec int64
	followerSamples   int
	sourceChainID     uint64
	haveSource        bool
}

func NewTestModule_Freshness(sourceChainID uint64) *TestModule_Freshness {
	return &TestModule_Freshness{
		metrics:       make([]*FreshnessMetric, 0),
		sourceChainID: sourceChainID,
		haveSource:    true,
	}
}

func (tmf *TestModule_Freshness) OutputMetricName() string {
	return "Pot_Freshness"
}

func (tmf *TestModule_Freshness) UpdateDeliveryRecord(bridge.DeliveryRecord) {}

func (tmf *TestModule_Freshness) UpdateFreshnessSample(s FreshnessSample) {
	// A chain that has not synced yet has nothing to report.
	if !s.Data.Initialized() {
		return
	}

	staleness := s.At.Unix() - int64(s.Data.Rho.Uint64())
	rate := ""
	if s.ConversionRate != nil {
		rate = s.ConversionRate.String()
	}

	metric := &FreshnessMetric{
		At:             s.At,
		ChainID:        s.ChainID,
		SSR:            s.Data.SSR.String(),
		Chi:            s.Data.Chi.String(),
		Rho:            s.Data.Rho.Uint64(),
		StalenessSec:   staleness,
		ConversionRate: rate,
	}
	tmf.metrics = append(tmf.metrics, metric)

	if !tmf.haveSource || s.ChainID != tmf.sourceChainID {
		tmf.totalStalenessSec += staleness
		tmf.followerSamples++
	}
}

func (tmf *TestModule_Freshness) OutputRecord() ([]float64, float64) {
	tmf.writeToCSV()

	avgStaleness := 0.0
	if tmf.followerSamples > 0 {
		avgStaleness = float64(tmf.totalStalenessSec) / float64(tmf.followerSamples)
	}
	return []float64{}, avgStaleness
}

func (tmf *TestModule_Freshness) writeToCSV() {
	fileName := tmf.OutputMetricName()
	measureName := []string{
		"SampleTime (ms)",
		"ChainID",
		"SSR (ray)",
		"Chi (ray)",
		"Rho (unix sec)",
		"Staleness (sec)",
		"ConversionRate (ray)",
	}

	measureVals := make([][]string, 0)
	for _, metric := range tmf.metrics {
		csvLine := []string{
			timestampToStringMs(metric.At),
			strconv.FormatUint(metric.ChainID, 10),
			metric.SSR,
			metric.Chi,
			strconv.FormatUint(metric.Rho, 10),
			strconv.FormatInt(metric.StalenessSec, 10),
			metric.ConversionRate,
		}
		measureVals = append(measureVals, csvLine)
	}

	WriteMetricsToCSV(fileName, measureName, measureVals)
}
