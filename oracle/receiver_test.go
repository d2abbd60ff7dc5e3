package oracle

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gnkz/lz-ssr-oracle/auth"
	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/message"
	"github.com/gnkz/lz-ssr-oracle/pot"
	"github.com/gnkz/lz-ssr-oracle/ray"
)

var (
	forwarderAddr = common.HexToAddress("0x0fe0")
	testGUID      = common.HexToHash("0x11")
)

func newTestReceiver(t *testing.T) (*Oracle, *Receiver) {
	t.Helper()
	o := newTestOracle(t)
	r := NewReceiver(o)
	if err := r.SetPeer(adminAddr, 1, forwarderAddr); err != nil {
		t.Fatalf("SetPeer err = %v", err)
	}
	return o, r
}

func encodedTriple(t *testing.T, rho int64) []byte {
	t.Helper()
	payload, err := pot.EncodeWire(pot.NewData(mustBig(t, fivePercentSSR), ray.Unit, big.NewInt(rho)))
	if err != nil {
		t.Fatalf("EncodeWire err = %v", err)
	}
	return payload
}

func TestOnDeliveryApplies(t *testing.T) {
	o, r := newTestReceiver(t)
	ch := make(chan Update, 1)
	defer o.SubscribeUpdates(ch).Unsubscribe()

	origin := message.Origin{ChainID: 1, Sender: forwarderAddr, Nonce: 1}
	if err := r.OnDelivery(origin, testGUID, encodedTriple(t, 100)); err != nil {
		t.Fatalf("OnDelivery err = %v", err)
	}

	got := o.GetPotData()
	if got.Rho.Int64() != 100 {
		t.Errorf("stored rho = %v, want 100", got.Rho)
	}
	u := <-ch
	if u.GUID != testGUID {
		t.Errorf("update guid = %s, want %s", u.GUID.Hex(), testGUID.Hex())
	}
}

func TestOnDeliveryUnauthorizedOrigin(t *testing.T) {
	o, r := newTestReceiver(t)

	cases := []struct {
		name   string
		origin message.Origin
	}{
		{name: "unknown chain", origin: message.Origin{ChainID: 9, Sender: forwarderAddr}},
		{name: "wrong sender", origin: message.Origin{ChainID: 1, Sender: common.HexToAddress("0xbad")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.OnDelivery(tc.origin, testGUID, encodedTriple(t, 100))
			if !errors.Is(err, bridge.ErrUnauthorizedOrigin) {
				t.Fatalf("OnDelivery err = %v, want %v", err, bridge.ErrUnauthorizedOrigin)
			}
			if o.GetPotData().Initialized() {
				t.Error("unauthorized delivery initialized the record")
			}
		})
	}
}

func TestOnDeliveryMalformedPayload(t *testing.T) {
	o, r := newTestReceiver(t)
	origin := message.Origin{ChainID: 1, Sender: forwarderAddr}

	err := r.OnDelivery(origin, testGUID, make([]byte, pot.WireSize-1))
	if !errors.Is(err, pot.ErrBadPayload) {
		t.Fatalf("OnDelivery err = %v, want %v", err, pot.ErrBadPayload)
	}
	if o.GetPotData().Initialized() {
		t.Error("malformed delivery initialized the record")
	}
}

func TestOnDeliveryStale(t *testing.T) {
	o, r := newTestReceiver(t)
	origin := message.Origin{ChainID: 1, Sender: forwarderAddr}

	if err := r.OnDelivery(origin, testGUID, encodedTriple(t, 100)); err != nil {
		t.Fatalf("fresh delivery err = %v", err)
	}
	if err := r.OnDelivery(origin, testGUID, encodedTriple(t, 99)); !errors.Is(err, pot.ErrStaleUpdate) {
		t.Fatalf("stale delivery err = %v, want %v", err, pot.ErrStaleUpdate)
	}
	if got := o.GetPotData().Rho.Int64(); got != 100 {
		t.Errorf("rho after stale delivery = %d, want 100", got)
	}
}

func TestRequestSendUnsupported(t *testing.T) {
	_, r := newTestReceiver(t)
	if _, err := r.RequestSend(adminAddr, 1); !errors.Is(err, bridge.ErrUnsupportedOp) {
		t.Errorf("RequestSend err = %v, want %v", err, bridge.ErrUnsupportedOp)
	}
}

func TestSetPeerRequiresAdmin(t *testing.T) {
	_, r := newTestReceiver(t)
	err := r.SetPeer(common.HexToAddress("0xbad"), 5, forwarderAddr)
	if !errors.Is(err, auth.ErrNotAuthorized) {
		t.Errorf("SetPeer by stranger err = %v, want %v", err, auth.ErrNotAuthorized)
	}
}

func TestSetPeerZeroClears(t *testing.T) {
	_, r := newTestReceiver(t)
	if err := r.SetPeer(adminAddr, 1, common.Address{}); err != nil {
		t.Fatalf("clearing SetPeer err = %v", err)
	}
	if _, ok := r.Peer(1); ok {
		t.Error("peer survived clearing")
	}
	origin := message.Origin{ChainID: 1, Sender: forwarderAddr}
	if err := r.OnDelivery(origin, testGUID, encodedTriple(t, 100)); !errors.Is(err, bridge.ErrUnauthorizedOrigin) {
		t.Errorf("delivery after clear err = %v, want %v", err, bridge.ErrUnauthorizedOrigin)
	}
}
