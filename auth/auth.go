// Package auth manages the admin allowlists that gate configuration and
// message acceptance: an address is either relied on or it is not.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotAuthorized reports a caller outside the allowlist.
var ErrNotAuthorized = errors.New("not authorized")

// ACL is a concurrency-safe allowlist of addresses.
type ACL struct {
	mu    sync.RWMutex
	wards map[common.Address]bool
}

// NewACL creates an allowlist already relying on the given addresses.
func NewACL(initial ...common.Address) *ACL {
	a := &ACL{wards: make(map[common.Address]bool)}
	for _, addr := range initial {
		a.wards[addr] = true
	}
	return a
}

// Rely grants the address access.
func (a *ACL) Rely(addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.wards[addr] = true
}

// Deny revokes the address's access.
func (a *ACL) Deny(addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.wards, addr)
}

// Authorized reports whether the address is on the allowlist.
func (a *ACL) Authorized(addr common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wards[addr]
}

// Require returns ErrNotAuthorized unless the address is on the allowlist.
func (a *ACL) Require(addr common.Address) error {
	if !a.Authorized(addr) {
		return fmt.Errorf("%w: %s", ErrNotAuthorized, addr.Hex())
	}
	return nil
}

// Wards returns a snapshot of the allowlist.
func (a *ACL) Wards() []common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]common.Address, 0, len(a.wards))
	for addr := range a.wards {
		out = append(out, addr)
	}
	return out
}
