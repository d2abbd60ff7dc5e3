package ratecsv

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/gnkz/lz-ssr-oracle/pot"
)

var _ pot.Reader = (*Replayer)(nil)

// Replayer walks a recorded history and serves the row in force at the
// emulation's current time. It satisfies the forwarder's rate-provider
// interface, so recorded and synthetic providers are interchangeable.
type Replayer struct {
	mu   sync.Mutex
	rows []Row
	idx  int
}

// NewReplayer validates the history: at least one row, rho strictly
// increasing. The first row is the state in force before the replay starts.
func NewReplayer(rows []Row) (*Replayer, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("history is empty")
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Rho <= rows[i-1].Rho {
			return nil, fmt.Errorf("history not increasing: row %d rho %d after %d", i, rows[i].Rho, rows[i-1].Rho)
		}
	}
	return &Replayer{rows: rows}, nil
}

// Advance moves the cursor to the last row at or before now. The cursor
// never moves backwards, matching a provider whose past does not change.
func (r *Replayer) Advance(now uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.idx+1 < len(r.rows) && r.rows[r.idx+1].Rho <= now {
		r.idx++
	}
}

// Done reports whether the cursor is on the final row.
func (r *Replayer) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx == len(r.rows)-1
}

// SSR returns the rate of the row in force.
func (r *Replayer) SSR() (*big.Int, error) {
	return r.field(func(row Row) *big.Int { return row.SSR }), nil
}

// Chi returns the accumulator of the row in force.
func (r *Replayer) Chi() (*big.Int, error) {
	return r.field(func(row Row) *big.Int { return row.Chi }), nil
}

// Rho returns the timestamp of the row in force.
func (r *Replayer) Rho() (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).SetUint64(r.rows[r.idx].Rho), nil
}

func (r *Replayer) field(pick func(Row) *big.Int) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).Set(pick(r.rows[r.idx]))
}
