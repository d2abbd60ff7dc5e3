// Package message defines the typed messages exchanged over the bridge
// between the source-chain forwarder and follower-chain oracles.
package message

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Type tags the kind of payload an envelope carries.
type Type string

// Message type for savings-rate state synchronization across chains
const (
	CPotDataSync Type = "PotDataSync"
)

// Origin identifies where a delivered message came from: the source chain,
// the sending application on it, and the channel nonce of the delivery.
type Origin struct {
	ChainID uint64
	Sender  common.Address
	Nonce   uint64
}

func (o Origin) String() string {
	return fmt.Sprintf("chain %d sender %s nonce %d", o.ChainID, o.Sender.Hex(), o.Nonce)
}

// Envelope is one cross-chain message as it travels a link. The payload is
// opaque to the transport; Kind tells the receiving application how to
// decode it.
type Envelope struct {
	SrcChainID uint64         // chain the sender lives on
	DstChainID uint64         // chain the receiver lives on
	Sender     common.Address // sending application
	Receiver   common.Address // receiving application
	Nonce      uint64         // per-channel sequence number, assigned at send
	Kind       Type           // payload type tag
	Payload    []byte         // application bytes, e.g. the ABI-encoded triple
	SentAt     time.Time      // when the sender handed the message to the bridge
}

// NewPotDataSync builds an envelope carrying one encoded savings-rate
// triple. The nonce is filled in by the endpoint at send time.
func NewPotDataSync(src, dst uint64, sender, receiver common.Address, payload []byte) *Envelope {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Envelope{
		SrcChainID: src,
		DstChainID: dst,
		Sender:     sender,
		Receiver:   receiver,
		Kind:       CPotDataSync,
		Payload:    p,
		SentAt:     time.Now(),
	}
}

// GUID derives the envelope's globally unique message id from the channel
// coordinates: keccak256 over nonce, source chain, sender, destination
// chain and receiver. The payload is deliberately excluded so a resend of
// different bytes on the same nonce keeps the same id.
func (e *Envelope) GUID() common.Hash {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], e.Nonce)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], e.SrcChainID)
	h.Write(buf[:])
	h.Write(e.Sender.Bytes())
	binary.BigEndian.PutUint64(buf[:], e.DstChainID)
	h.Write(buf[:])
	h.Write(e.Receiver.Bytes())
	return common.BytesToHash(h.Sum(nil))
}

// Origin is the receiver-side view of the envelope's provenance.
func (e *Envelope) Origin() Origin {
	return Origin{ChainID: e.SrcChainID, Sender: e.Sender, Nonce: e.Nonce}
}

// EncodeEnvelope serializes an envelope for a link. The encoded bytes are
// what link signatures cover, so they must travel unmodified.
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses bytes produced by EncodeEnvelope.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	e := new(Envelope)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}
