package bridge

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/time/rate"

	"github.com/gnkz/lz-ssr-oracle/message"
)

// Config sets an endpoint's fee schedule and outbound pacing.
type Config struct {
	BaseFee     *big.Int // flat fee per message
	PerByteFee  *big.Int // fee per payload byte
	SendsPerSec float64  // outbound pacing; 0 means unlimited
	SendBurst   int      // pacing burst; minimum 1
}

// channel identifies one application-to-application lane: the remote chain
// plus the sender and receiver addresses. Nonces count per channel.
type channel struct {
	chainID  uint64
	sender   common.Address
	receiver common.Address
}

// Endpoint is one chain's attachment point to the network. Applications
// register under their address to receive; senders pay the quoted fee.
type Endpoint struct {
	chainID uint64
	net     *Network
	pace    *rate.Limiter

	baseFee    *big.Int
	perByteFee *big.Int

	mu        sync.Mutex
	receivers map[common.Address]Receiver
	verifiers map[uint64]common.Address // source chain -> link attestor
	nonces    map[channel]uint64        // outbound, last assigned

	inMu sync.Mutex // serializes deliveries across inbound links
	seen map[channel]*bitset.BitSet
}

func newEndpoint(chainID uint64, net *Network, cfg Config) *Endpoint {
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendsPerSec > 0 {
		burst := cfg.SendBurst
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.SendsPerSec), burst)
	}
	return &Endpoint{
		chainID:    chainID,
		net:        net,
		pace:       lim,
		baseFee:    copyOrZero(cfg.BaseFee),
		perByteFee: copyOrZero(cfg.PerByteFee),
		receivers:  make(map[common.Address]Receiver),
		verifiers:  make(map[uint64]common.Address),
		nonces:     make(map[channel]uint64),
		seen:       make(map[channel]*bitset.BitSet),
	}
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// ChainID returns the chain this endpoint is attached to.
func (ep *Endpoint) ChainID() uint64 {
	return ep.chainID
}

// Quote prices a message with the given payload size. The quote is
// deterministic so senders can budget fees ahead of time.
func (ep *Endpoint) Quote(payloadLen int) *big.Int {
	fee := new(big.Int).Mul(ep.perByteFee, big.NewInt(int64(payloadLen)))
	return fee.Add(fee, ep.baseFee)
}

// Register attaches a receiving application under its address.
func (ep *Endpoint) Register(addr common.Address, r Receiver) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.receivers[addr] = r
}

// setVerifier records the attestor address for frames arriving from src.
func (ep *Endpoint) setVerifier(src uint64, attestor common.Address) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.verifiers[src] = attestor
}

// Send pushes an envelope onto the link toward its destination chain. The
// fee must cover the quote for the payload size. The endpoint assigns the
// channel nonce; the caller's envelope is not modified.
func (ep *Endpoint) Send(env *message.Envelope, fee *big.Int) (Receipt, error) {
	if env.SrcChainID != ep.chainID {
		return Receipt{}, fmt.Errorf("envelope src chain %d sent via endpoint %d", env.SrcChainID, ep.chainID)
	}
	if quote := ep.Quote(len(env.Payload)); fee == nil || fee.Cmp(quote) < 0 {
		return Receipt{}, fmt.Errorf("%w: paid %v, quoted %v", ErrInsufficientFee, fee, quote)
	}
	l, err := ep.net.link(ep.chainID, env.DstChainID)
	if err != nil {
		return Receipt{}, err
	}
	if err := ep.pace.Wait(context.Background()); err != nil {
		return Receipt{}, err
	}

	ep.mu.Lock()
	key := channel{chainID: env.DstChainID, sender: env.Sender, receiver: env.Receiver}
	ep.nonces[key]++
	nonce := ep.nonces[key]
	ep.mu.Unlock()

	stamped := *env
	stamped.Nonce = nonce
	raw, err := message.EncodeEnvelope(&stamped)
	if err != nil {
		return Receipt{}, err
	}
	sig := ecdsa.SignCompact(l.key, crypto.Keccak256(raw), false)

	if err := l.dispatch(linkFrame{raw: raw, sig: sig}); err != nil {
		return Receipt{}, err
	}
	return Receipt{GUID: stamped.GUID(), Nonce: nonce}, nil
}

// deliver runs on a link goroutine. It verifies the frame attestation,
// suppresses replayed nonces and hands the payload to the registered
// receiver, publishing one record per attempt.
func (ep *Endpoint) deliver(src uint64, f linkFrame) {
	ep.inMu.Lock()
	defer ep.inMu.Unlock()

	rec := DeliveryRecord{SrcChainID: src, DstChainID: ep.chainID, At: time.Now()}

	pub, _, err := ecdsa.RecoverCompact(f.sig, crypto.Keccak256(f.raw))
	if err != nil {
		rec.Err = fmt.Errorf("%w: %v", ErrBadSignature, err)
		ep.net.recordDelivery(rec)
		return
	}
	attestor := crypto.PubkeyToAddress(*pub.ToECDSA())
	if want := ep.verifierFor(src); attestor != want {
		rec.Err = fmt.Errorf("%w: recovered %s, want %s", ErrBadSignature, attestor.Hex(), want.Hex())
		ep.net.recordDelivery(rec)
		return
	}

	env, err := message.DecodeEnvelope(f.raw)
	if err != nil {
		rec.Err = err
		ep.net.recordDelivery(rec)
		return
	}
	rec.GUID = env.GUID()
	rec.Nonce = env.Nonce
	rec.Kind = env.Kind
	rec.Latency = time.Since(env.SentAt)

	key := channel{chainID: env.SrcChainID, sender: env.Sender, receiver: env.Receiver}
	window, ok := ep.seen[key]
	if !ok {
		window = bitset.New(256)
		ep.seen[key] = window
	}
	if window.Test(uint(env.Nonce)) {
		rec.Duplicate = true
		ep.net.recordDelivery(rec)
		return
	}
	window.Set(uint(env.Nonce))

	ep.mu.Lock()
	r, ok := ep.receivers[env.Receiver]
	ep.mu.Unlock()
	if !ok {
		rec.Err = fmt.Errorf("%w: %s on chain %d", ErrNoReceiver, env.Receiver.Hex(), ep.chainID)
		ep.net.recordDelivery(rec)
		return
	}

	rec.Err = r.OnDelivery(env.Origin(), env.GUID(), env.Payload)
	ep.net.recordDelivery(rec)
}

func (ep *Endpoint) verifierFor(src uint64) common.Address {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.verifiers[src]
}
