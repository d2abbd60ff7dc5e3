package pot

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/gnkz/lz-ssr-oracle/ray"
)

// Sim is an in-memory rate provider for emulation runs. It mimics the
// accrual discipline of a savings pot: the accumulator only moves when Drip
// is called, and the rate may only change at a freshly dripped timestamp so
// past accrual is never rewritten.
type Sim struct {
	mu  sync.Mutex
	ssr *big.Int
	chi *big.Int
	rho uint64
}

// NewSim starts a provider at the given per-second rate with the
// accumulator at Unit and rho at now.
func NewSim(ssr *big.Int, now uint64) *Sim {
	return &Sim{
		ssr: copyOrZero(ssr),
		chi: new(big.Int).Set(ray.Unit),
		rho: now,
	}
}

// Drip compounds the accumulator up to now and stamps rho. Calling it with
// a now at or before rho is a no-op.
func (s *Sim) Drip(now uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drip(now)
}

func (s *Sim) drip(now uint64) {
	if now <= s.rho {
		return
	}
	s.chi = ray.Mul(s.chi, ray.Pow(s.ssr, now-s.rho))
	s.rho = now
}

// SetRate drips up to now and then switches to the new per-second rate, so
// the seconds before the change still accrue at the old rate.
func (s *Sim) SetRate(ssr *big.Int, now uint64) error {
	if ssr == nil || ssr.Sign() <= 0 {
		return fmt.Errorf("sim rate must be positive, got %v", ssr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drip(now)
	s.ssr = new(big.Int).Set(ssr)
	return nil
}

// SSR returns the current per-second rate.
func (s *Sim) SSR() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.ssr), nil
}

// Chi returns the accumulator as of the last drip.
func (s *Sim) Chi() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.chi), nil
}

// Rho returns the timestamp of the last drip.
func (s *Sim) Rho() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).SetUint64(s.rho), nil
}
