// Package ray implements fixed-point arithmetic in the RAY convention used by
// savings-rate accounting: an integer U represents the real value U / 10^27.
package ray

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// SecondsPerYear is the duration used to annualize per-second rates (365 days).
const SecondsPerYear = 31536000

var (
	// Unit is the RAY fixed-point representation of 1.0 (10^27).
	// Treated as a constant; callers must not mutate it.
	Unit = math.BigPow(10, 27)

	// Wad is the 10^18 fixed-point unit used by token-facing consumers.
	// Treated as a constant; callers must not mutate it.
	Wad = math.BigPow(10, 18)

	// rayPerWad is the scale gap between the two conventions (10^9).
	rayPerWad = math.BigPow(10, 9)
)

// Pow computes x^n in RAY fixed point using exponentiation by squaring.
// Every intermediate multiply divides by Unit with floor division; the
// one-sided rounding loss this introduces is part of the numeric contract
// and is reproduced exactly by every conforming node.
//
// Pow(x, 0) is Unit for any x, including zero. Pow(x, 1) is x exactly,
// with no division performed. A nil x behaves as zero.
func Pow(x *big.Int, n uint64) *big.Int {
	if n == 0 {
		return new(big.Int).Set(Unit)
	}
	if x == nil {
		x = new(big.Int)
	}

	z := new(big.Int)
	if n%2 != 0 {
		z.Set(x)
	} else {
		z.Set(Unit)
	}

	// Running square. Halve first so the n == 1 case returns x untouched.
	sq := new(big.Int).Set(x)
	for n /= 2; n != 0; n /= 2 {
		sq.Mul(sq, sq)
		sq.Quo(sq, Unit)
		if n%2 != 0 {
			z.Mul(z, sq)
			z.Quo(z, Unit)
		}
	}
	return z
}

// Mul computes x*y/Unit with floor division, the RAY fixed-point product.
// Nil operands behave as zero. The inputs are never mutated.
func Mul(x, y *big.Int) *big.Int {
	if x == nil || y == nil {
		return new(big.Int)
	}
	z := new(big.Int).Mul(x, y)
	return z.Quo(z, Unit)
}

// APR annualizes a per-second rate as the simple (non-compounded) spread
// over one unit: (ssr - Unit) * SecondsPerYear, still RAY scaled.
// The result is negative when ssr is below Unit.
func APR(ssr *big.Int) *big.Int {
	if ssr == nil {
		ssr = new(big.Int)
	}
	spread := new(big.Int).Sub(ssr, Unit)
	return spread.Mul(spread, big.NewInt(SecondsPerYear))
}

// ToWad rescales a RAY value to WAD (10^18) with floor division.
func ToWad(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Quo(x, rayPerWad)
}
