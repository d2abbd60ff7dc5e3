// Package pot defines the savings-rate state record that is synchronized
// across chains: the per-second rate (ssr), the rate accumulator (chi) and
// the accumulator's last update time (rho), all RAY fixed point except rho,
// which is a Unix timestamp in seconds.
package pot

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gnkz/lz-ssr-oracle/ray"
)

// Storage widths of the packed record. The three fields share one 32-byte
// slot: rho in the top 40 bits, chi in the middle 120, ssr in the low 96.
const (
	SSRBits = 96
	ChiBits = 120
	RhoBits = 40

	// RecordSize is the byte length of the packed record.
	RecordSize = 32
)

var (
	// ErrStaleUpdate reports an incoming rho strictly behind the stored one.
	ErrStaleUpdate = errors.New("stale update: rho behind stored value")

	// ErrValueOutOfRange reports a field that does not fit its storage width.
	// The record deliberately fails such updates instead of silently wrapping
	// them into the narrower field.
	ErrValueOutOfRange = errors.New("value exceeds storage width")

	// ErrBadPayload reports wire bytes that do not decode into the triple.
	ErrBadPayload = errors.New("malformed pot data payload")

	maxSSR = widthMax(SSRBits)
	maxChi = widthMax(ChiBits)
	maxRho = widthMax(RhoBits)
)

func widthMax(bits uint) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), bits)
	return m.Sub(m, big.NewInt(1))
}

// Data is one savings-rate state triple. The zero value (nil fields) acts
// as the uninitialized record: chi of zero makes every conversion-rate
// query return zero until the first update is accepted.
type Data struct {
	SSR *big.Int // per-second growth factor, RAY scaled; Unit means 0% growth
	Chi *big.Int // compounded accumulator since the rate epoch, RAY scaled
	Rho *big.Int // Unix seconds at which Chi was last authoritative
}

// NewData builds a record from the three fields, copying each value.
// Nil inputs behave as zero.
func NewData(ssr, chi, rho *big.Int) Data {
	return Data{
		SSR: copyOrZero(ssr),
		Chi: copyOrZero(chi),
		Rho: copyOrZero(rho),
	}
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Copy returns a deep copy so callers can hold the triple without sharing
// the underlying big.Int words with the stored record.
func (d Data) Copy() Data {
	return NewData(d.SSR, d.Chi, d.Rho)
}

// Initialized reports whether any update has ever been accepted. A zero
// accumulator is the uninitialized marker, never a valid synchronized state.
func (d Data) Initialized() bool {
	return d.Chi != nil && d.Chi.Sign() != 0
}

// Validate checks that every field fits its storage width.
func (d Data) Validate() error {
	if bad(d.SSR, maxSSR) {
		return fmt.Errorf("%w: ssr %v needs more than %d bits", ErrValueOutOfRange, d.SSR, SSRBits)
	}
	if bad(d.Chi, maxChi) {
		return fmt.Errorf("%w: chi %v needs more than %d bits", ErrValueOutOfRange, d.Chi, ChiBits)
	}
	if bad(d.Rho, maxRho) {
		return fmt.Errorf("%w: rho %v needs more than %d bits", ErrValueOutOfRange, d.Rho, RhoBits)
	}
	return nil
}

func bad(v, max *big.Int) bool {
	return v != nil && (v.Sign() < 0 || v.Cmp(max) > 0)
}

// TryAccept applies the ordering rule to an incoming triple: the update is
// taken iff its rho is not behind the stored rho (equal is accepted, so a
// re-sent snapshot overwrites in place). On success the returned record is
// an independent copy of the incoming triple; on failure the error reports
// why and the current record is to remain untouched.
func (d Data) TryAccept(next Data) (Data, error) {
	if cmpOrZero(next.Rho, d.Rho) < 0 {
		return Data{}, fmt.Errorf("%w: incoming %v, stored %v", ErrStaleUpdate, next.Rho, d.Rho)
	}
	if err := next.Validate(); err != nil {
		return Data{}, err
	}
	return next.Copy(), nil
}

func cmpOrZero(a, b *big.Int) int {
	return copyOrZero(a).Cmp(copyOrZero(b))
}

// ConversionRate projects the accumulator forward to now by compounding the
// stored per-second rate over the elapsed seconds:
//
//	chi * Pow(ssr, now-rho) / Unit
//
// with the floor division the fixed-point convention prescribes. A now
// before rho clamps the elapsed time to zero, so the query never fails; an
// uninitialized record yields zero.
func (d Data) ConversionRate(now uint64) *big.Int {
	return ray.Mul(d.Chi, ray.Pow(d.SSR, d.elapsed(now)))
}

// ConversionRateBinomial is the second-order binomial estimate of
// ConversionRate: chi * (Unit + n*x + n*(n-1)/2 * x^2/Unit) / Unit where
// x = ssr - Unit. It never exceeds the exact compounded value and is cheap
// for large durations. A rate below Unit degrades to the accumulator.
func (d Data) ConversionRateBinomial(now uint64) *big.Int {
	n := new(big.Int).SetUint64(d.elapsed(now))
	x := d.spread()

	approx := new(big.Int).Mul(n, x)
	approx.Add(approx, ray.Unit)

	pairs := new(big.Int).Sub(n, big.NewInt(1))
	pairs.Mul(pairs, n)
	pairs.Quo(pairs, big.NewInt(2))
	approx.Add(approx, pairs.Mul(pairs, ray.Mul(x, x)))

	return ray.Mul(d.Chi, approx)
}

// ConversionRateLinear is the first-order estimate of ConversionRate:
// chi * (Unit + n*x) / Unit. It never exceeds the binomial estimate.
func (d Data) ConversionRateLinear(now uint64) *big.Int {
	n := new(big.Int).SetUint64(d.elapsed(now))
	approx := n.Mul(n, d.spread())
	approx.Add(approx, ray.Unit)
	return ray.Mul(d.Chi, approx)
}

// APR annualizes the stored per-second rate as a simple RAY-scaled spread.
func (d Data) APR() *big.Int {
	return ray.APR(copyOrZero(d.SSR))
}

// spread is ssr - Unit floored at zero; the approximations are only defined
// for growth factors at or above one.
func (d Data) spread() *big.Int {
	x := new(big.Int).Sub(copyOrZero(d.SSR), ray.Unit)
	if x.Sign() < 0 {
		x.SetInt64(0)
	}
	return x
}

func (d Data) elapsed(now uint64) uint64 {
	rho := copyOrZero(d.Rho)
	nowBig := new(big.Int).SetUint64(now)
	if nowBig.Cmp(rho) <= 0 {
		return 0
	}
	return nowBig.Sub(nowBig, rho).Uint64()
}

// Pack serializes the record into its 32-byte storage form: 5 bytes of rho,
// 15 of chi, 12 of ssr, each big endian. Records that fail Validate cannot
// be packed.
func (d Data) Pack() ([RecordSize]byte, error) {
	var out [RecordSize]byte
	if err := d.Validate(); err != nil {
		return out, err
	}
	copyOrZero(d.Rho).FillBytes(out[0:5])
	copyOrZero(d.Chi).FillBytes(out[5:20])
	copyOrZero(d.SSR).FillBytes(out[20:32])
	return out, nil
}

// Unpack restores a record from its 32-byte storage form.
func Unpack(raw []byte) (Data, error) {
	if len(raw) != RecordSize {
		return Data{}, fmt.Errorf("%w: record is %d bytes, want %d", ErrBadPayload, len(raw), RecordSize)
	}
	return Data{
		Rho: new(big.Int).SetBytes(raw[0:5]),
		Chi: new(big.Int).SetBytes(raw[5:20]),
		SSR: new(big.Int).SetBytes(raw[20:32]),
	}, nil
}

func (d Data) String() string {
	return fmt.Sprintf("ssr=%v chi=%v rho=%v", copyOrZero(d.SSR), copyOrZero(d.Chi), copyOrZero(d.Rho))
}
