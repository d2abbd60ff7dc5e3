package params

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

var (
	// The following parameters can be set in main.go.
	// default values:
	SourceChainID    = uint64(1) // Chain ID of the source chain hosting the rate provider.
	FollowerChainNum = 2         // \# of follower chains mirroring the pot data.
)

// rate provider & output file path
var (
	SimSSR = "1000000001547125957863212448" // The per-second savings rate (RAY) of the simulated provider. This default compounds to roughly 5% per year.

	RatesCSVPath = "" // The path of a rate history CSV to replay. The simulated provider is used when empty.

	ForwardInterval = 1000  // The time interval (ms) between two pot data pushes
	SampleInterval  = 500   // The time interval (ms) between two freshness samples
	RunDuration     = 10000 // The total running time (ms) of the emulation

	ExpDataRootDir     = "expTest"                     // The root dir where the experimental data should locate.
	DataWrite_path     = ExpDataRootDir + "/result/"   // Measurement data result output path
	LogWrite_path      = ExpDataRootDir + "/log"       // Log output path
	DatabaseWrite_path = ExpDataRootDir + "/database/" // database write path

	LogLevel = 3 // Log verbosity. Value range: [0, 5], representing [crit, error, warn, info, debug, trace]
)

// fee & budget layer
var (
	BaseFee    = int64(100) // The flat fee charged for sending a message
	PerByteFee = int64(1)   // The fee charged per payload byte

	SendRate  = float64(0) // The pacing limit of sends per second. +inf if SendRate <= 0
	SendBurst = 1          // The burst size of the send pacer

	FeeCapPerSend = int64(0) // The fee cap for a single send. No cap if 0
	EpochFeeCap   = int64(0) // The total fee budget per epoch. No budget enforcement if 0
	BudgetEpoch   = 60000    // The length (ms) of one fee budget epoch
)

// network layer
var (
	Delay         int        // The delay of network (ms) when sending. 0 if delay < 0
	JitterRange   int        // The jitter range of delay (ms). Jitter follows a uniform distribution. 0 if JitterRange < 0.
	DuplicateRate float64    // The probability that a delivered frame is replayed once more. 0 if DuplicateRate < 0
	NetworkSeed   = int64(1) // Seed of the deterministic network randomness
)

// read from file
type globalConfig struct {
	SimSSR string `json:"SimSSR"`

	ForwardInterval int `json:"ForwardInterval"`
	SampleInterval  int `json:"SampleInterval"`
	RunDuration     int `json:"RunDuration"`

	ExpDataRootDir string `json:"ExpDataRootDir"`

	BaseFee    int64   `json:"BaseFee"`
	PerByteFee int64   `json:"PerByteFee"`
	SendRate   float64 `json:"SendRate"`
	SendBurst  int     `json:"SendBurst"`

	FeeCapPerSend int64 `json:"FeeCapPerSend"`
	EpochFeeCap   int64 `json:"EpochFeeCap"`
	BudgetEpoch   int   `json:"BudgetEpoch"`

	Delay         int     `json:"Delay"`
	JitterRange   int     `json:"JitterRange"`
	DuplicateRate float64 `json:"DuplicateRate"`
}

func ReadConfigFile(path string) {
	// read configurations from the json file given on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading file: %v", err)
	}
	var config globalConfig
	err = json.Unmarshal(data, &config)
	if err != nil {
		log.Fatalf("Error unmarshalling JSON: %v", err)
	}

	// output configurations
	fmt.Printf("Config: %+v\n", config)

	// set configurations to params
	// rate provider params
	SimSSR = config.SimSSR

	ForwardInterval = config.ForwardInterval
	SampleInterval = config.SampleInterval
	RunDuration = config.RunDuration

	// data file params
	ExpDataRootDir = config.ExpDataRootDir
	DataWrite_path = ExpDataRootDir + "/result/"
	LogWrite_path = ExpDataRootDir + "/log"
	DatabaseWrite_path = ExpDataRootDir + "/database/"

	// fee params
	BaseFee = config.BaseFee
	PerByteFee = config.PerByteFee
	SendRate = config.SendRate
	SendBurst = config.SendBurst

	FeeCapPerSend = config.FeeCapPerSend
	EpochFeeCap = config.EpochFeeCap
	BudgetEpoch = config.BudgetEpoch

	// network params
	Delay = config.Delay
	JitterRange = config.JitterRange
	DuplicateRate = config.DuplicateRate
}
