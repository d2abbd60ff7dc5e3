package message

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func testEnvelope() *Envelope {
	e := NewPotDataSync(1, 2,
		common.HexToAddress("0xaaa1"), common.HexToAddress("0xbbb2"),
		[]byte{0x01, 0x02, 0x03})
	e.Nonce = 7
	return e
}

func TestGUIDDependsOnChannelCoordinates(t *testing.T) {
	base := testEnvelope()
	guid := base.GUID()
	if guid == (common.Hash{}) {
		t.Fatal("guid is zero")
	}
	if base.GUID() != guid {
		t.Error("guid is not deterministic")
	}

	bumped := testEnvelope()
	bumped.Nonce = 8
	if bumped.GUID() == guid {
		t.Error("guid unchanged across nonces")
	}

	rerouted := testEnvelope()
	rerouted.DstChainID = 3
	if rerouted.GUID() == guid {
		t.Error("guid unchanged across destination chains")
	}

	// A resend of different bytes on the same nonce keeps the same id.
	resent := testEnvelope()
	resent.Payload = []byte{0xff}
	if resent.GUID() != guid {
		t.Error("guid depends on payload")
	}
}

func TestEnvelopeCodecRoundTrip(t *testing.T) {
	e := testEnvelope()
	raw, err := EncodeEnvelope(e)
	if err != nil {
		t.Fatalf("EncodeEnvelope err = %v", err)
	}
	got, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeEnvelope err = %v", err)
	}
	if got.SrcChainID != e.SrcChainID || got.DstChainID != e.DstChainID ||
		got.Sender != e.Sender || got.Receiver != e.Receiver ||
		got.Nonce != e.Nonce || got.Kind != e.Kind {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
	if string(got.Payload) != string(e.Payload) {
		t.Errorf("payload round trip = %x, want %x", got.Payload, e.Payload)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("{not json")); err == nil {
		t.Error("garbage decoded without error")
	}
}

func TestNewPotDataSyncCopiesPayload(t *testing.T) {
	payload := []byte{1, 2, 3}
	e := NewPotDataSync(1, 2, common.Address{}, common.Address{}, payload)
	payload[0] = 9
	if e.Payload[0] != 1 {
		t.Error("envelope payload shares caller slice")
	}
}

func TestOriginView(t *testing.T) {
	e := testEnvelope()
	o := e.Origin()
	if o.ChainID != e.SrcChainID || o.Sender != e.Sender || o.Nonce != e.Nonce {
		t.Errorf("origin = %+v", o)
	}
}
