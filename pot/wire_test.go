package pot

import (
	"errors"
	"math/big"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	// The wire keeps full 256-bit words even though storage is narrower, so
	// oversized values must survive the codec untouched.
	wide := new(big.Int).Lsh(big.NewInt(1), 255)
	cases := []struct {
		name string
		d    Data
	}{
		{name: "zero triple", d: NewData(nil, nil, nil)},
		{name: "live triple", d: NewData(mustBig(t, fivePercentSSR), mustBig(t, "1030000000000000000000000000"), big.NewInt(1723000000))},
		{name: "full width words", d: NewData(wide, wide, wide)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := EncodeWire(tc.d)
			if err != nil {
				t.Fatalf("EncodeWire err = %v", err)
			}
			if len(payload) != WireSize {
				t.Fatalf("payload length = %d, want %d", len(payload), WireSize)
			}
			got, err := DecodeWire(payload)
			if err != nil {
				t.Fatalf("DecodeWire err = %v", err)
			}
			if got.SSR.Cmp(tc.d.SSR) != 0 || got.Chi.Cmp(tc.d.Chi) != 0 || got.Rho.Cmp(tc.d.Rho) != 0 {
				t.Errorf("round trip = %v, want %v", got, tc.d)
			}
		})
	}
}

func TestWireWordOrder(t *testing.T) {
	payload, err := EncodeWire(NewData(big.NewInt(1), big.NewInt(2), big.NewInt(3)))
	if err != nil {
		t.Fatalf("EncodeWire err = %v", err)
	}
	if payload[31] != 1 || payload[63] != 2 || payload[95] != 3 {
		t.Errorf("word order = %d, %d, %d, want ssr, chi, rho", payload[31], payload[63], payload[95])
	}
}

func TestDecodeWireBadLength(t *testing.T) {
	for _, n := range []int{0, WireSize - 1, WireSize + 32} {
		if _, err := DecodeWire(make([]byte, n)); !errors.Is(err, ErrBadPayload) {
			t.Errorf("DecodeWire(%d bytes) err = %v, want %v", n, err, ErrBadPayload)
		}
	}
}
