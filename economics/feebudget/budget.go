// Package feebudget implements transport-fee spend controls for the
// source-chain forwarder: a hard cap per send and a rolling epoch budget.
package feebudget

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

var (
	// ErrFeeCapExceeded reports a single send priced above the per-send cap.
	ErrFeeCapExceeded = errors.New("fee exceeds per-send cap")

	// ErrBudgetExhausted reports an epoch whose remaining budget cannot
	// cover the send.
	ErrBudgetExhausted = errors.New("fee budget exhausted for this epoch")
)

// Budget tracks transport spend. A zero cap disables that control, so
// NewBudget(nil, nil, 0) is a no-op budget.
type Budget struct {
	capPerSend *big.Int      // max fee for one send; 0 disables
	epochCap   *big.Int      // max total fee per epoch; 0 disables
	epoch      time.Duration // rolling window length

	mu          sync.Mutex
	windowStart time.Time
	spent       *big.Int
	now         func() time.Time
}

// NewBudget creates the spend controls. An epoch cap needs a positive
// window, and the per-send cap cannot exceed the epoch cap.
func NewBudget(capPerSend, epochCap *big.Int, epoch time.Duration) (*Budget, error) {
	b := &Budget{
		capPerSend: copyOrZero(capPerSend),
		epochCap:   copyOrZero(epochCap),
		epoch:      epoch,
		spent:      new(big.Int),
		now:        time.Now,
	}
	if b.capPerSend.Sign() < 0 || b.epochCap.Sign() < 0 {
		return nil, fmt.Errorf("caps cannot be negative: %v, %v", capPerSend, epochCap)
	}
	if b.epochCap.Sign() > 0 && epoch <= 0 {
		return nil, fmt.Errorf("epoch cap %v needs a positive window, got %v", epochCap, epoch)
	}
	if b.capPerSend.Sign() > 0 && b.epochCap.Sign() > 0 && b.capPerSend.Cmp(b.epochCap) > 0 {
		return nil, fmt.Errorf("per-send cap (%v) cannot exceed epoch cap (%v)", capPerSend, epochCap)
	}
	b.windowStart = b.now()
	return b, nil
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Reserve charges a send's fee against the budget, rolling the epoch window
// first. On error nothing is charged.
func (b *Budget) Reserve(fee *big.Int) error {
	if fee == nil || fee.Sign() < 0 {
		return fmt.Errorf("invalid fee %v", fee)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()
	if b.capPerSend.Sign() > 0 && fee.Cmp(b.capPerSend) > 0 {
		return fmt.Errorf("%w: fee %v, cap %v", ErrFeeCapExceeded, fee, b.capPerSend)
	}
	if b.epochCap.Sign() > 0 {
		total := new(big.Int).Add(b.spent, fee)
		if total.Cmp(b.epochCap) > 0 {
			return fmt.Errorf("%w: spent %v of %v, fee %v", ErrBudgetExhausted, b.spent, b.epochCap, fee)
		}
	}
	b.spent.Add(b.spent, fee)
	return nil
}

// Release returns a reserved fee, for sends that failed after reservation.
func (b *Budget) Release(fee *big.Int) {
	if fee == nil || fee.Sign() <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent.Sub(b.spent, fee)
	if b.spent.Sign() < 0 {
		b.spent.SetInt64(0)
	}
}

// SpentInWindow reports the fees charged in the current epoch.
func (b *Budget) SpentInWindow() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return new(big.Int).Set(b.spent)
}

func (b *Budget) roll() {
	if b.epoch <= 0 {
		return
	}
	if b.now().Sub(b.windowStart) >= b.epoch {
		b.windowStart = b.now()
		b.spent.SetInt64(0)
	}
}

// SendsPerEpoch estimates how many sends at the quoted fee one epoch
// affords. Zero means unlimited (no epoch cap); useful when sizing the
// forward interval against the budget.
func SendsPerEpoch(epochCap, quote *big.Int) uint64 {
	if epochCap == nil || epochCap.Sign() <= 0 || quote == nil || quote.Sign() <= 0 {
		return 0
	}
	return new(big.Int).Quo(epochCap, quote).Uint64()
}
