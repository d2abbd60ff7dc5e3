// Package bridge emulates the authenticated cross-chain message channel the
// savings-rate sync rides on: per-chain endpoints, one-directional links
// with configurable delay, jitter and duplication, link-level signature
// attestation and exactly-once delivery per channel nonce.
package bridge

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gnkz/lz-ssr-oracle/message"
)

var (
	// ErrUnsupportedOp reports a message delivered to an application that
	// only ever sends, such as the source-chain forwarder.
	ErrUnsupportedOp = errors.New("operation not supported on this side of the bridge")

	// ErrUnauthorizedOrigin reports a delivery whose origin is not on the
	// receiving application's peer list.
	ErrUnauthorizedOrigin = errors.New("unauthorized origin")

	// ErrInsufficientFee reports a send paid below the quoted fee.
	ErrInsufficientFee = errors.New("insufficient fee")

	// ErrUnknownRoute reports a send toward a chain with no connected link.
	ErrUnknownRoute = errors.New("no link to destination chain")

	// ErrBadSignature reports a frame whose link attestation does not
	// recover to the verifier registered for the source chain.
	ErrBadSignature = errors.New("bad link signature")

	// ErrNoReceiver reports a delivery to an unregistered application.
	ErrNoReceiver = errors.New("no receiver registered")

	// ErrClosed reports use of a network that has been shut down.
	ErrClosed = errors.New("network closed")
)

// Receiver consumes deliveries on the destination chain. Implementations on
// the sending side return ErrUnsupportedOp.
type Receiver interface {
	OnDelivery(origin message.Origin, guid common.Hash, payload []byte) error
}

// Receipt acknowledges an accepted send.
type Receipt struct {
	GUID  common.Hash
	Nonce uint64
}

// App is the full endpoint capability surface. Every application implements
// both sides and answers ErrUnsupportedOp for the side it does not serve:
// the source forwarder never takes deliveries, follower receivers never
// originate sends.
type App interface {
	Receiver
	RequestSend(caller common.Address, dstChainID uint64) (Receipt, error)
}

// DeliveryRecord describes one delivery attempt on the destination side,
// successful or not. The network publishes a record per attempt so metric
// collectors can watch the whole emulation from one subscription.
type DeliveryRecord struct {
	SrcChainID uint64
	DstChainID uint64
	GUID       common.Hash
	Nonce      uint64
	Kind       message.Type
	At         time.Time // when the destination endpoint handled the frame
	Latency    time.Duration
	Duplicate  bool  // dropped by the nonce window before reaching the app
	Err        error // nil when the receiving application accepted
}
