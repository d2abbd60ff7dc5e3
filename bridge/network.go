package bridge

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
)

// LinkConfig shapes one directional link.
type LinkConfig struct {
	Delay         time.Duration // base transit time
	Jitter        time.Duration // uniform noise on the transit time
	DuplicateRate float64       // probability a frame is delivered twice
}

type linkFrame struct {
	raw []byte
	sig []byte
}

// link carries frames from one chain to another. Each link owns a signing
// key; the destination endpoint only accepts frames attested by it. A
// single goroutine drains the queue so deliveries stay serialized per link.
type link struct {
	src, dst uint64
	cfg      LinkConfig
	key      *secp256k1.PrivateKey
	rng      *rand.Rand
	ch       chan linkFrame
	net      *Network
	dstEp    *Endpoint

	sendMu sync.Mutex // excludes dispatch against close
	closed bool
}

func (l *link) dispatch(f linkFrame) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.ch <- f
	return nil
}

func (l *link) close() {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.ch)
}

func (l *link) run() {
	defer l.net.wg.Done()
	for f := range l.ch {
		l.pause()
		l.dstEp.deliver(l.src, f)
		if l.cfg.DuplicateRate > 0 && l.rng.Float64() < l.cfg.DuplicateRate {
			l.pause()
			l.dstEp.deliver(l.src, f)
		}
	}
}

func (l *link) pause() {
	d := l.cfg.Delay
	if j := int64(l.cfg.Jitter); j > 0 {
		d += time.Duration(l.rng.Int63n(2*j+1) - j)
	}
	if d > 0 {
		time.Sleep(d)
	}
}

// Network owns the endpoints and links of one emulation run and publishes a
// DeliveryRecord per delivery attempt.
type Network struct {
	mu        sync.Mutex
	seed      int64
	nextLink  int64
	endpoints map[uint64]*Endpoint
	links     map[[2]uint64]*link
	closed    bool
	wg        sync.WaitGroup
	feed      event.Feed
}

// NewNetwork creates an empty network. The seed drives every link's timing
// and duplication draws, so runs with equal seeds behave identically.
func NewNetwork(seed int64) *Network {
	return &Network{
		seed:      seed,
		endpoints: make(map[uint64]*Endpoint),
		links:     make(map[[2]uint64]*link),
	}
}

// AddEndpoint attaches a chain to the network.
func (n *Network) AddEndpoint(chainID uint64, cfg Config) (*Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrClosed
	}
	if _, exists := n.endpoints[chainID]; exists {
		return nil, fmt.Errorf("chain %d already has an endpoint", chainID)
	}
	ep := newEndpoint(chainID, n, cfg)
	n.endpoints[chainID] = ep
	return ep, nil
}

// Connect opens a directional link from src to dst and registers the link's
// attestor address with the destination endpoint. Both endpoints must
// already exist.
func (n *Network) Connect(src, dst uint64, cfg LinkConfig) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	dstEp, ok := n.endpoints[dst]
	if !ok {
		return fmt.Errorf("chain %d has no endpoint", dst)
	}
	if _, ok := n.endpoints[src]; !ok {
		return fmt.Errorf("chain %d has no endpoint", src)
	}
	route := [2]uint64{src, dst}
	if _, exists := n.links[route]; exists {
		return fmt.Errorf("link %d->%d already connected", src, dst)
	}

	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate link key: %w", err)
	}
	n.nextLink++
	l := &link{
		src:   src,
		dst:   dst,
		cfg:   cfg,
		key:   key,
		rng:   rand.New(rand.NewSource(n.seed + n.nextLink)),
		ch:    make(chan linkFrame, 128),
		net:   n,
		dstEp: dstEp,
	}
	n.links[route] = l
	dstEp.setVerifier(src, crypto.PubkeyToAddress(*key.PubKey().ToECDSA()))

	n.wg.Add(1)
	go l.run()
	return nil
}

func (n *Network) link(src, dst uint64) (*link, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrClosed
	}
	l, ok := n.links[[2]uint64{src, dst}]
	if !ok {
		return nil, fmt.Errorf("%w: %d->%d", ErrUnknownRoute, src, dst)
	}
	return l, nil
}

// SubscribeDeliveries streams a record per delivery attempt until the
// subscription is unsubscribed. The channel should be buffered; a full
// channel stalls the links.
func (n *Network) SubscribeDeliveries(ch chan<- DeliveryRecord) event.Subscription {
	return n.feed.Subscribe(ch)
}

func (n *Network) recordDelivery(rec DeliveryRecord) {
	n.feed.Send(rec)
}

// Close drains and stops every link. Sends after Close fail with ErrClosed.
func (n *Network) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	for _, l := range n.links {
		l.close()
	}
	n.mu.Unlock()
	n.wg.Wait()
}
