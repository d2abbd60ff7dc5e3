package measure

import (
	"encoding/csv"
	"log"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/params"
	"github.com/gnkz/lz-ssr-oracle/pot"
)

// Module is one metric collector driven by the supervisor. The supervisor
// feeds every module a record per bridge delivery attempt and a sample per
// freshness poll; when the run ends it calls OutputRecord, which dumps the
// module's CSV table and returns its headline numbers.
type Module interface {
	OutputMetricName() string
	UpdateDeliveryRecord(rec bridge.DeliveryRecord)
	UpdateFreshnessSample(s FreshnessSample)
	OutputRecord() ([]float64, float64)
}

// FreshnessSample is one supervisor poll of a chain's pot view: the stored
// triple plus the exact conversion rate at the polling instant. The source
// chain is sampled from the provider itself, so follower staleness can be
// read against it.
type FreshnessSample struct {
	At             time.Time
	ChainID        uint64
	Data           pot.Data
	ConversionRate *big.Int // nil when the chain holds no data yet
}

// WriteMetricsToCSV writes one metric table to params.DataWrite_path,
// replacing any earlier output of the same metric.
func WriteMetricsToCSV(fileName string, colName []string, colVals [][]string) {
	dirpath := params.DataWrite_path
	err := os.MkdirAll(dirpath, os.ModePerm)
	if err != nil {
		log.Panic(err)
	}
	targetPath := dirpath + fileName + ".csv"
	f, err := os.Create(targetPath)
	if err != nil {
		log.Panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(colName); err != nil {
		log.Panic(err)
	}
	if err := w.WriteAll(colVals); err != nil {
		log.Panic(err)
	}
	w.Flush()
}

// timestampToStringMs converts time to string (milliseconds since epoch)
func timestampToStringMs(thisTime time.Time) string {
	if thisTime.IsZero() {
		return ""
	}
	return strconv.FormatInt(thisTime.UnixMilli(), 10)
}
