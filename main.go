// Command lz-ssr-oracle emulates a cross-chain savings-rate sync: one
// source chain reads a rate provider and pushes its pot data over
// authenticated bridge links to follower-chain oracles, while a supervisor
// measures delivery outcomes, transit latency and data freshness.
package main

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/pflag"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/forwarder"
	"github.com/gnkz/lz-ssr-oracle/ingest/ratecsv"
	"github.com/gnkz/lz-ssr-oracle/oracle"
	"github.com/gnkz/lz-ssr-oracle/params"
	"github.com/gnkz/lz-ssr-oracle/pot"
	"github.com/gnkz/lz-ssr-oracle/supervisor"
	"github.com/gnkz/lz-ssr-oracle/supervisor/measure"
)

// Emulator identities. Follower receivers accept pot data only from the
// forwarder address, and the admin address owns every allowlist.
var (
	adminAddr = common.HexToAddress("0x00ad")
	fwdAddr   = common.HexToAddress("0x0fe0")
	orcAddr   = common.HexToAddress("0x0ace")
)

var (
	configPath string
	followers  int
	duration   int
	ratesPath  string
	seed       int64
	verbosity  int
)

func main() {
	pflag.StringVarP(&configPath, "config", "c", "", "path of the params json; built-in defaults apply when omitted")
	pflag.IntVarP(&followers, "followers", "f", params.FollowerChainNum, "number of follower chains")
	pflag.IntVarP(&duration, "duration", "d", params.RunDuration, "run length in milliseconds")
	pflag.StringVarP(&ratesPath, "rates", "r", params.RatesCSVPath, "rate history csv to replay instead of the simulator")
	pflag.Int64VarP(&seed, "seed", "s", params.NetworkSeed, "seed for link timing and duplication draws")
	pflag.IntVarP(&verbosity, "verbosity", "v", params.LogLevel, "log verbosity, 0=crit up to 5=trace")
	pflag.Parse()

	if configPath != "" {
		params.ReadConfigFile(configPath)
	}
	params.FollowerChainNum = followers
	params.RatesCSVPath = ratesPath
	params.NetworkSeed = seed
	params.LogLevel = verbosity
	if pflag.CommandLine.Changed("duration") {
		params.RunDuration = duration
	}

	handler := log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	if params.LogWrite_path != "" {
		if err := os.MkdirAll(params.LogWrite_path, os.ModePerm); err != nil {
			log.Crit("log dir", "err", err)
		}
		fh, err := log.FileHandler(params.LogWrite_path+"/emulator.log", log.LogfmtFormat())
		if err != nil {
			log.Crit("log file", "err", err)
		}
		handler = log.MultiHandler(handler, fh)
	}
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(params.LogLevel), handler))

	if err := run(); err != nil {
		log.Crit("emulation failed", "err", err)
	}
}

func run() error {
	provider, advance, err := buildProvider()
	if err != nil {
		return err
	}

	net := bridge.NewNetwork(params.NetworkSeed)
	defer net.Close()

	src, err := net.AddEndpoint(params.SourceChainID, params.GetEndpointConfig())
	if err != nil {
		return fmt.Errorf("source endpoint: %w", err)
	}

	budget, err := params.GetFeeBudget()
	if err != nil {
		return fmt.Errorf("fee budget: %w", err)
	}
	fwd := forwarder.New(fwdAddr, adminAddr, provider, src, budget)

	if err := os.MkdirAll(params.DatabaseWrite_path, os.ModePerm); err != nil {
		return fmt.Errorf("database dir: %w", err)
	}
	store, err := oracle.OpenStore(params.DatabaseWrite_path + "potdata.db")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	linkCfg := params.GetLinkConfig()
	oracles := make([]*oracle.Oracle, 0, params.FollowerChainNum)
	for i := 0; i < params.FollowerChainNum; i++ {
		chainID := params.SourceChainID + 1 + uint64(i)
		ep, err := net.AddEndpoint(chainID, params.GetEndpointConfig())
		if err != nil {
			return fmt.Errorf("endpoint %d: %w", chainID, err)
		}
		if err := net.Connect(params.SourceChainID, chainID, linkCfg); err != nil {
			return fmt.Errorf("link to %d: %w", chainID, err)
		}
		orc, err := oracle.New(chainID, adminAddr, store)
		if err != nil {
			return fmt.Errorf("oracle %d: %w", chainID, err)
		}
		recv := oracle.NewReceiver(orc)
		if err := recv.SetPeer(adminAddr, params.SourceChainID, fwdAddr); err != nil {
			return fmt.Errorf("peer on %d: %w", chainID, err)
		}
		ep.Register(orcAddr, recv)
		if err := fwd.SetReceiver(adminAddr, chainID, orcAddr); err != nil {
			return fmt.Errorf("receiver for %d: %w", chainID, err)
		}
		oracles = append(oracles, orc)
	}

	sup := supervisor.New(supervisor.Config{
		Forwarder:       fwd,
		Caller:          adminAddr,
		Oracles:         oracles,
		Network:         net,
		ForwardInterval: time.Duration(params.ForwardInterval) * time.Millisecond,
		SampleInterval:  time.Duration(params.SampleInterval) * time.Millisecond,
		RunDuration:     time.Duration(params.RunDuration) * time.Millisecond,
		Advance:         advance,
		Modules: []measure.Module{
			measure.NewTestModule_SyncOutcomes(),
			measure.NewTestModule_DeliveryLatency(),
			measure.NewTestModule_Freshness(params.SourceChainID),
		},
	})
	return sup.Run()
}

// buildProvider picks the rate source: a CSV replayer when a history file
// is configured, the compounding simulator otherwise. The advance hook maps
// wall time onto the provider's own clock.
func buildProvider() (pot.Reader, func(uint64), error) {
	if params.RatesCSVPath != "" {
		f, err := os.Open(params.RatesCSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open rate history: %w", err)
		}
		defer f.Close()
		rows, err := ratecsv.ReadAll(f)
		if err != nil {
			return nil, nil, fmt.Errorf("read rate history: %w", err)
		}
		rep, err := ratecsv.NewReplayer(rows)
		if err != nil {
			return nil, nil, err
		}
		// Replay in real time: each wall second advances the history by
		// one second from its first row.
		base := rows[0].Rho
		start := uint64(time.Now().Unix())
		advance := func(now uint64) {
			rep.Advance(base + (now - start))
		}
		log.Info("replaying rate history", "path", params.RatesCSVPath, "rows", len(rows))
		return rep, advance, nil
	}

	ssr, ok := new(big.Int).SetString(params.SimSSR, 10)
	if !ok {
		return nil, nil, fmt.Errorf("bad SimSSR %q", params.SimSSR)
	}
	sim := pot.NewSim(ssr, uint64(time.Now().Unix()))
	log.Info("simulating rate provider", "ssr", ssr)
	return sim, sim.Drip, nil
}
