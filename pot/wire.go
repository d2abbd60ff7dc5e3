package pot

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// WireSize is the byte length of the encoded triple: three full 256-bit
// words regardless of the narrower storage widths. Range checks happen only
// when a record is accepted into storage, never on the wire.
const WireSize = 96

var (
	typeUint256, _ = abi.NewType("uint256", "", nil)

	wireArgs = abi.Arguments{
		{Name: "ssr", Type: typeUint256},
		{Name: "chi", Type: typeUint256},
		{Name: "rho", Type: typeUint256},
	}
)

// EncodeWire serializes the triple as ABI words in (ssr, chi, rho) order.
func EncodeWire(d Data) ([]byte, error) {
	return wireArgs.Pack(copyOrZero(d.SSR), copyOrZero(d.Chi), copyOrZero(d.Rho))
}

// DecodeWire parses ABI words back into a triple. Payloads of the wrong
// length or shape fail with ErrBadPayload.
func DecodeWire(payload []byte) (Data, error) {
	if len(payload) != WireSize {
		return Data{}, fmt.Errorf("%w: payload is %d bytes, want %d", ErrBadPayload, len(payload), WireSize)
	}
	vals, err := wireArgs.Unpack(payload)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(vals) != 3 {
		return Data{}, fmt.Errorf("%w: decoded %d words, want 3", ErrBadPayload, len(vals))
	}
	out := Data{}
	for i, dst := range []**big.Int{&out.SSR, &out.Chi, &out.Rho} {
		v, ok := vals[i].(*big.Int)
		if !ok {
			return Data{}, fmt.Errorf("%w: word %d is %T, want *big.Int", ErrBadPayload, i, vals[i])
		}
		*dst = v
	}
	return out, nil
}
