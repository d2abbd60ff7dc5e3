// Package oracle implements the follower-chain side of the savings-rate
// sync: it stores the latest accepted pot data, applies the rho ordering
// rule to incoming updates and answers time-extrapolated conversion-rate
// queries against the stored record.
package oracle

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/gnkz/lz-ssr-oracle/auth"
	"github.com/gnkz/lz-ssr-oracle/pot"
	"github.com/gnkz/lz-ssr-oracle/ray"
)

// Update describes one accepted state change: the record before and after.
// GUID is the message id for updates that arrived over the bridge and zero
// for local admin writes.
type Update struct {
	Prev pot.Data
	Next pot.Data
	GUID common.Hash
	At   time.Time
}

// Oracle owns one follower chain's savings-rate record. A single writer
// path mutates it; queries take a read lock and the triple is replaced
// atomically, so a query never observes a half-applied update.
type Oracle struct {
	chainID uint64
	log     log.Logger
	admin   *auth.ACL
	store   *Store // optional

	mu   sync.RWMutex
	data pot.Data
	feed event.Feed
}

// New creates the oracle for a chain. The admin address may write state
// directly and manage receiver peers. A non-nil store is read for a
// previously persisted record and written on every accept.
func New(chainID uint64, admin common.Address, store *Store) (*Oracle, error) {
	o := &Oracle{
		chainID: chainID,
		log:     log.New("oracle", chainID),
		admin:   auth.NewACL(admin),
		store:   store,
	}
	if store != nil {
		d, ok, err := store.Load(chainID)
		if err != nil {
			return nil, err
		}
		if ok {
			o.data = d
			o.log.Info("restored pot data", "ssr", d.SSR, "chi", d.Chi, "rho", d.Rho)
		}
	}
	return o, nil
}

// Admin exposes the allowlist gating SetPotData and peer management.
func (o *Oracle) Admin() *auth.ACL {
	return o.admin
}

// ChainID returns the follower chain this oracle serves.
func (o *Oracle) ChainID() uint64 {
	return o.chainID
}

// SetPotData lets an admin write the record directly, subject to the same
// ordering and width rules as bridged updates.
func (o *Oracle) SetPotData(caller common.Address, d pot.Data) error {
	if err := o.admin.Require(caller); err != nil {
		return err
	}
	return o.apply(d, common.Hash{})
}

// apply is the single mutator: ordering rule, width check, persistence,
// swap, notification. Rejected updates leave the stored record untouched.
func (o *Oracle) apply(d pot.Data, guid common.Hash) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := o.data.TryAccept(d)
	if err != nil {
		o.log.Warn("pot data rejected", "reason", err, "incoming", d.String())
		return err
	}
	if o.store != nil {
		if err := o.store.Save(o.chainID, next); err != nil {
			o.log.Error("pot data not persisted", "err", err)
			return err
		}
	}
	prev := o.data
	o.data = next
	o.log.Info("pot data updated", "ssr", next.SSR, "chi", next.Chi, "rho", next.Rho, "guid", guid)

	o.feed.Send(Update{Prev: prev.Copy(), Next: next.Copy(), GUID: guid, At: time.Now()})
	return nil
}

// SubscribeUpdates streams one Update per accepted state change. Subscriber
// channels should be buffered; a full channel stalls the writer.
func (o *Oracle) SubscribeUpdates(ch chan<- Update) event.Subscription {
	return o.feed.Subscribe(ch)
}

// GetPotData returns a copy of the stored record.
func (o *Oracle) GetPotData() pot.Data {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.data.Copy()
}

// GetSSR returns the stored per-second rate.
func (o *Oracle) GetSSR() *big.Int {
	return o.GetPotData().SSR
}

// GetChi returns the stored accumulator.
func (o *Oracle) GetChi() *big.Int {
	return o.GetPotData().Chi
}

// GetRho returns the timestamp the accumulator was last authoritative at.
func (o *Oracle) GetRho() *big.Int {
	return o.GetPotData().Rho
}

// GetAPR annualizes the stored rate as a simple RAY-scaled spread.
func (o *Oracle) GetAPR() *big.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.data.APR()
}

// GetConversionRate compounds the stored record up to now, RAY scaled.
// Uninitialized oracles answer zero; a now before rho answers chi.
func (o *Oracle) GetConversionRate(now uint64) *big.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.data.ConversionRate(now)
}

// GetConversionRateBinomialApprox is the second-order lower bound of
// GetConversionRate.
func (o *Oracle) GetConversionRateBinomialApprox(now uint64) *big.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.data.ConversionRateBinomial(now)
}

// GetConversionRateLinearApprox is the first-order lower bound of
// GetConversionRate.
func (o *Oracle) GetConversionRateLinearApprox(now uint64) *big.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.data.ConversionRateLinear(now)
}

// GetConversionRate18 is GetConversionRate rescaled to WAD for consumers
// that price in 18 decimals.
func (o *Oracle) GetConversionRate18(now uint64) *big.Int {
	return ray.ToWad(o.GetConversionRate(now))
}
