// Package forwarder implements the source-chain side of the savings-rate
// sync: it snapshots the rate provider, packs the triple into a bridge
// message and ships it to the follower chains, under an allowlist and a
// transport-fee budget.
package forwarder

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/gnkz/lz-ssr-oracle/auth"
	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/economics/feebudget"
	"github.com/gnkz/lz-ssr-oracle/message"
	"github.com/gnkz/lz-ssr-oracle/pot"
)

// ErrReceiverNotSet reports a send toward a chain whose oracle receiver
// address has not been configured.
var ErrReceiverNotSet = errors.New("no receiver configured for destination chain")

var _ bridge.App = (*Forwarder)(nil)

// SendRecord describes one accepted send, including the allowlisted caller
// that triggered it.
type SendRecord struct {
	DstChainID uint64
	GUID       common.Hash
	Nonce      uint64
	Caller     common.Address
	Data       pot.Data
	Fee        *big.Int
	At         time.Time
}

// Forwarder reads the rate provider and pushes its state over the bridge.
// It is the send-only half of the endpoint capability surface: deliveries
// are unsupported.
type Forwarder struct {
	addr     common.Address
	log      log.Logger
	provider pot.Reader
	endpoint *bridge.Endpoint
	budget   *feebudget.Budget // optional
	acl      *auth.ACL

	mu        sync.RWMutex
	receivers map[uint64]common.Address

	feed event.Feed
}

// New wires a forwarder to its rate provider and endpoint. The admin may
// trigger sends and manage receivers; addr is the forwarder's identity on
// the wire, which follower receivers list as their peer. A nil budget
// disables spend controls.
func New(addr, admin common.Address, provider pot.Reader, ep *bridge.Endpoint, budget *feebudget.Budget) *Forwarder {
	return &Forwarder{
		addr:      addr,
		log:       log.New("forwarder", ep.ChainID()),
		provider:  provider,
		endpoint:  ep,
		budget:    budget,
		acl:       auth.NewACL(admin),
		receivers: make(map[uint64]common.Address),
	}
}

// Address returns the forwarder's wire identity.
func (f *Forwarder) Address() common.Address {
	return f.addr
}

// ChainID returns the chain the forwarder sends from.
func (f *Forwarder) ChainID() uint64 {
	return f.endpoint.ChainID()
}

// ACL exposes the allowlist gating sends and receiver management.
func (f *Forwarder) ACL() *auth.ACL {
	return f.acl
}

// SetReceiver configures the oracle receiver address on a follower chain.
// The zero address clears it.
func (f *Forwarder) SetReceiver(caller common.Address, dst uint64, receiver common.Address) error {
	if err := f.acl.Require(caller); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if receiver == (common.Address{}) {
		delete(f.receivers, dst)
		f.log.Info("receiver cleared", "dst", dst)
		return nil
	}
	f.receivers[dst] = receiver
	f.log.Info("receiver set", "dst", dst, "receiver", receiver)
	return nil
}

// Receiver returns the configured oracle address for a follower chain.
func (f *Forwarder) Receiver(dst uint64) (common.Address, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	receiver, ok := f.receivers[dst]
	return receiver, ok
}

// CurrentSnapshot reads the provider's live triple.
func (f *Forwarder) CurrentSnapshot() (pot.Data, error) {
	return pot.Snapshot(f.provider)
}

// BuildMessage snapshots the provider and wraps the encoded triple in an
// envelope for the destination chain.
func (f *Forwarder) BuildMessage(dst uint64) (*message.Envelope, pot.Data, error) {
	receiver, ok := f.Receiver(dst)
	if !ok {
		return nil, pot.Data{}, fmt.Errorf("%w: %d", ErrReceiverNotSet, dst)
	}
	snap, err := f.CurrentSnapshot()
	if err != nil {
		return nil, pot.Data{}, fmt.Errorf("snapshot rate provider: %w", err)
	}
	payload, err := pot.EncodeWire(snap)
	if err != nil {
		return nil, pot.Data{}, err
	}
	return message.NewPotDataSync(f.endpoint.ChainID(), dst, f.addr, receiver, payload), snap, nil
}

// Quote prices one sync message; the payload size is fixed, so the quote
// only depends on the endpoint's fee schedule.
func (f *Forwarder) Quote() *big.Int {
	return f.endpoint.Quote(pot.WireSize)
}

// RequestSend snapshots the provider and ships the triple to dst. The
// caller must be on the allowlist and the fee must clear the budget.
func (f *Forwarder) RequestSend(caller common.Address, dst uint64) (bridge.Receipt, error) {
	if err := f.acl.Require(caller); err != nil {
		return bridge.Receipt{}, err
	}
	env, snap, err := f.BuildMessage(dst)
	if err != nil {
		return bridge.Receipt{}, err
	}
	fee := f.Quote()
	if f.budget != nil {
		if err := f.budget.Reserve(fee); err != nil {
			f.log.Warn("send blocked by fee budget", "dst", dst, "fee", fee, "err", err)
			return bridge.Receipt{}, err
		}
	}
	receipt, err := f.endpoint.Send(env, fee)
	if err != nil {
		if f.budget != nil {
			f.budget.Release(fee)
		}
		f.log.Warn("send failed", "dst", dst, "err", err)
		return bridge.Receipt{}, err
	}
	f.log.Info("pot data forwarded", "dst", dst, "caller", caller, "guid", receipt.GUID, "nonce", receipt.Nonce, "rho", snap.Rho)

	f.feed.Send(SendRecord{
		DstChainID: dst,
		GUID:       receipt.GUID,
		Nonce:      receipt.Nonce,
		Caller:     caller,
		Data:       snap,
		Fee:        fee,
		At:         time.Now(),
	})
	return receipt, nil
}

// Broadcast sends the current snapshot to every configured follower chain,
// returning the first error after attempting all of them.
func (f *Forwarder) Broadcast(caller common.Address) error {
	f.mu.RLock()
	dsts := make([]uint64, 0, len(f.receivers))
	for dst := range f.receivers {
		dsts = append(dsts, dst)
	}
	f.mu.RUnlock()

	var firstErr error
	for _, dst := range dsts {
		if _, err := f.RequestSend(caller, dst); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SubscribeSends streams one SendRecord per accepted send.
func (f *Forwarder) SubscribeSends(ch chan<- SendRecord) event.Subscription {
	return f.feed.Subscribe(ch)
}

// OnDelivery is the unsupported half: the source never takes deliveries.
func (f *Forwarder) OnDelivery(message.Origin, common.Hash, []byte) error {
	return bridge.ErrUnsupportedOp
}
