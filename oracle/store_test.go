package oracle

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/gnkz/lz-ssr-oracle/pot"
	"github.com/gnkz/lz-ssr-oracle/ray"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "pot.db"))
	if err != nil {
		t.Fatalf("OpenStore err = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := tempStore(t)
	d := pot.NewData(mustBig(t, fivePercentSSR), ray.Unit, big.NewInt(1723000000))

	if err := s.Save(7, d); err != nil {
		t.Fatalf("Save err = %v", err)
	}
	got, ok, err := s.Load(7)
	if err != nil || !ok {
		t.Fatalf("Load = ok %v, err %v", ok, err)
	}
	if got.SSR.Cmp(d.SSR) != 0 || got.Chi.Cmp(d.Chi) != 0 || got.Rho.Cmp(d.Rho) != 0 {
		t.Errorf("round trip = %v, want %v", got, d)
	}

	if _, ok, err := s.Load(8); err != nil || ok {
		t.Errorf("Load of unused chain = ok %v, err %v, want absent", ok, err)
	}
}

func TestOracleRestoresFromStore(t *testing.T) {
	s := tempStore(t)

	first, err := New(3, adminAddr, s)
	if err != nil {
		t.Fatalf("New err = %v", err)
	}
	d := pot.NewData(mustBig(t, fivePercentSSR), ray.Unit, big.NewInt(500))
	if err := first.SetPotData(adminAddr, d); err != nil {
		t.Fatalf("SetPotData err = %v", err)
	}

	second, err := New(3, adminAddr, s)
	if err != nil {
		t.Fatalf("restart New err = %v", err)
	}
	got := second.GetPotData()
	if !got.Initialized() {
		t.Fatal("restarted oracle lost its record")
	}
	if got.SSR.Cmp(d.SSR) != 0 || got.Rho.Cmp(d.Rho) != 0 {
		t.Errorf("restored record = %v, want %v", got, d)
	}

	// A stale update must still bounce off the restored rho.
	older := pot.NewData(ray.Unit, ray.Unit, big.NewInt(499))
	if err := second.SetPotData(adminAddr, older); err == nil {
		t.Error("restored oracle accepted a stale update")
	}
}
