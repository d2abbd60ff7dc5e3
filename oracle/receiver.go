package oracle

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/message"
	"github.com/gnkz/lz-ssr-oracle/pot"
)

var _ bridge.App = (*Receiver)(nil)

// Receiver is the oracle's bridge-facing side. It accepts deliveries only
// from the configured peer of each source chain, decodes the wire triple
// and feeds it to the oracle's single mutator path. It is the receive-only
// half of the endpoint capability surface: send requests are unsupported.
type Receiver struct {
	oracle *Oracle
	log    log.Logger

	mu    sync.RWMutex
	peers map[uint64]common.Address
}

// NewReceiver wires a receiver to its oracle. Peers start empty, so every
// delivery is unauthorized until the admin sets one.
func NewReceiver(o *Oracle) *Receiver {
	return &Receiver{
		oracle: o,
		log:    log.New("receiver", o.chainID),
		peers:  make(map[uint64]common.Address),
	}
}

// SetPeer authorizes sender as the one accepted origin for messages from
// src. The zero address clears the peer. Only oracle admins may call.
func (r *Receiver) SetPeer(caller common.Address, src uint64, sender common.Address) error {
	if err := r.oracle.admin.Require(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sender == (common.Address{}) {
		delete(r.peers, src)
		r.log.Info("peer cleared", "src", src)
		return nil
	}
	r.peers[src] = sender
	r.log.Info("peer set", "src", src, "sender", sender)
	return nil
}

// Peer returns the configured sender for a source chain.
func (r *Receiver) Peer(src uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sender, ok := r.peers[src]
	return sender, ok
}

// OnDelivery validates the origin against the peer table, decodes the
// payload and applies it. The stored record is untouched on any rejection.
func (r *Receiver) OnDelivery(origin message.Origin, guid common.Hash, payload []byte) error {
	peer, ok := r.Peer(origin.ChainID)
	if !ok || peer != origin.Sender {
		r.log.Warn("delivery from unauthorized origin", "origin", origin)
		return fmt.Errorf("%w: %s", bridge.ErrUnauthorizedOrigin, origin)
	}
	d, err := pot.DecodeWire(payload)
	if err != nil {
		r.log.Warn("undecodable delivery", "origin", origin, "guid", guid, "err", err)
		return err
	}
	return r.oracle.apply(d, guid)
}

// RequestSend is the unsupported half: followers never originate messages.
func (r *Receiver) RequestSend(common.Address, uint64) (bridge.Receipt, error) {
	return bridge.Receipt{}, bridge.ErrUnsupportedOp
}
