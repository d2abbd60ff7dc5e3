package supervisor

import (
	"encoding/csv"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/forwarder"
	"github.com/gnkz/lz-ssr-oracle/oracle"
	"github.com/gnkz/lz-ssr-oracle/params"
	"github.com/gnkz/lz-ssr-oracle/pot"
	"github.com/gnkz/lz-ssr-oracle/supervisor/measure"
)

const fivePercentSSR = "1000000001547125957863212448"

var (
	adminAddr = common.HexToAddress("0x00ad")
	fwdAddr   = common.HexToAddress("0x0fe0")
	orcAddr   = common.HexToAddress("0x0ace")
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big.Int literal %q", s)
	}
	return v
}

// newRun wires a source chain with a simulated provider and two follower
// chains, pointing the metric output at a per-test directory.
func newRun(t *testing.T, modules []measure.Module) (Config, []*oracle.Oracle, string) {
	t.Helper()

	old := params.DataWrite_path
	dir := t.TempDir()
	params.DataWrite_path = dir + "/"
	t.Cleanup(func() { params.DataWrite_path = old })

	net := bridge.NewNetwork(11)
	src, err := net.AddEndpoint(1, bridge.Config{BaseFee: big.NewInt(100), PerByteFee: big.NewInt(1)})
	if err != nil {
		t.Fatalf("AddEndpoint(1) err = %v", err)
	}
	t.Cleanup(net.Close)

	sim := pot.NewSim(mustBig(t, fivePercentSSR), uint64(time.Now().Unix()))
	fwd := forwarder.New(fwdAddr, adminAddr, sim, src, nil)

	oracles := make([]*oracle.Oracle, 0, 2)
	for chainID := uint64(2); chainID <= 3; chainID++ {
		ep, err := net.AddEndpoint(chainID, bridge.Config{})
		if err != nil {
			t.Fatalf("AddEndpoint(%d) err = %v", chainID, err)
		}
		if err := net.Connect(1, chainID, bridge.LinkConfig{}); err != nil {
			t.Fatalf("Connect(1, %d) err = %v", chainID, err)
		}
		orc, err := oracle.New(chainID, adminAddr, nil)
		if err != nil {
			t.Fatalf("oracle.New(%d) err = %v", chainID, err)
		}
		recv := oracle.NewReceiver(orc)
		if err := recv.SetPeer(adminAddr, 1, fwdAddr); err != nil {
			t.Fatalf("SetPeer err = %v", err)
		}
		ep.Register(orcAddr, recv)
		if err := fwd.SetReceiver(adminAddr, chainID, orcAddr); err != nil {
			t.Fatalf("SetReceiver err = %v", err)
		}
		oracles = append(oracles, orc)
	}

	cfg := Config{
		Forwarder:       fwd,
		Caller:          adminAddr,
		Oracles:         oracles,
		Network:         net,
		ForwardInterval: 50 * time.Millisecond,
		SampleInterval:  30 * time.Millisecond,
		RunDuration:     300 * time.Millisecond,
		Advance:         func(now uint64) { sim.Drip(now) },
		Modules:         modules,
	}
	return cfg, oracles, dir
}

func countRows(t *testing.T, dir, metricName string) int {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, metricName+".csv"))
	if err != nil {
		t.Fatalf("open %s output: %v", metricName, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s output: %v", metricName, err)
	}
	return len(rows)
}

func TestRunSyncsFollowersAndWritesMetrics(t *testing.T) {
	outcomes := measure.NewTestModule_SyncOutcomes()
	latency := measure.NewTestModule_DeliveryLatency()
	freshness := measure.NewTestModule_Freshness(1)
	cfg, oracles, dir := newRun(t, []measure.Module{outcomes, latency, freshness})

	if err := New(cfg).Run(); err != nil {
		t.Fatalf("Run err = %v", err)
	}

	for _, orc := range oracles {
		got := orc.GetPotData()
		if !got.Initialized() {
			t.Fatalf("follower %d never synced", orc.ChainID())
		}
		if got.SSR.Cmp(mustBig(t, fivePercentSSR)) != 0 {
			t.Errorf("follower %d ssr = %v, want %v", orc.ChainID(), got.SSR, fivePercentSSR)
		}
	}

	// Every push lands in order on an undisturbed network, so the applied
	// rate is total.
	if _, total := outcomes.OutputRecord(); total != 100.0 {
		t.Errorf("total applied rate = %v, want 100", total)
	}

	for _, mod := range []measure.Module{outcomes, latency, freshness} {
		if rows := countRows(t, dir, mod.OutputMetricName()); rows < 2 {
			t.Errorf("%s output has %d rows, want header plus data", mod.OutputMetricName(), rows)
		}
	}
}

func TestRunValidatesConfig(t *testing.T) {
	if err := New(Config{}).Run(); err == nil {
		t.Error("Run with empty config should fail")
	}

	cfg, _, _ := newRun(t, nil)
	cfg.ForwardInterval = 0
	if err := New(cfg).Run(); err == nil {
		t.Error("Run with zero forward interval should fail")
	}
}
