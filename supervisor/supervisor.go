// Package supervisor drives one emulation run end to end: it advances the
// rate provider, triggers pot data pushes on a fixed cadence, polls every
// chain's view between pushes and fans the resulting events out to the
// measure modules.
package supervisor

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/forwarder"
	"github.com/gnkz/lz-ssr-oracle/oracle"
	"github.com/gnkz/lz-ssr-oracle/supervisor/measure"
)

// drainGrace is how long the loop keeps consuming delivery records after
// the run timer fires, so frames still in transit reach the metrics.
const drainGrace = 250 * time.Millisecond

// Config wires one emulation run.
type Config struct {
	Forwarder *forwarder.Forwarder
	Caller    common.Address // allowlisted address the supervisor pushes as
	Oracles   []*oracle.Oracle
	Network   *bridge.Network

	ForwardInterval time.Duration // cadence of pot data pushes
	SampleInterval  time.Duration // cadence of freshness polls
	RunDuration     time.Duration // total run length

	// Advance moves the rate provider to the given unix time before each
	// push: the simulator drips, the replayer steps through its history.
	// Nil leaves the provider untouched.
	Advance func(now uint64)

	Modules []measure.Module
}

// Supervisor owns the run loop. Every module update happens on that single
// loop, so modules need no locking of their own.
type Supervisor struct {
	cfg Config
	log log.Logger
}

// New creates a supervisor for one run. Run does the validation.
func New(cfg Config) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Run pushes, polls and collects until the run duration elapses, then
// drains in-flight deliveries and writes every module's output. It blocks
// for the whole run.
func (s *Supervisor) Run() error {
	if s.cfg.Forwarder == nil || s.cfg.Network == nil {
		return errors.New("supervisor needs a forwarder and a network")
	}
	if s.cfg.ForwardInterval <= 0 || s.cfg.SampleInterval <= 0 || s.cfg.RunDuration <= 0 {
		return fmt.Errorf("durations must be positive: forward %v, sample %v, run %v",
			s.cfg.ForwardInterval, s.cfg.SampleInterval, s.cfg.RunDuration)
	}
	s.log = log.New("supervisor", s.cfg.Forwarder.ChainID())

	records := make(chan bridge.DeliveryRecord, 256)
	sub := s.cfg.Network.SubscribeDeliveries(records)
	defer sub.Unsubscribe()

	forward := time.NewTicker(s.cfg.ForwardInterval)
	defer forward.Stop()
	sample := time.NewTicker(s.cfg.SampleInterval)
	defer sample.Stop()
	done := time.After(s.cfg.RunDuration)

	s.log.Info("run starting",
		"followers", len(s.cfg.Oracles),
		"forwardInterval", s.cfg.ForwardInterval,
		"sampleInterval", s.cfg.SampleInterval,
		"runFor", s.cfg.RunDuration)

	// Push once up front so followers initialize without waiting a full
	// interval.
	s.push()

	for {
		select {
		case rec := <-records:
			s.handleDelivery(rec)
		case <-forward.C:
			s.push()
		case <-sample.C:
			s.poll()
		case <-done:
			s.log.Info("run complete, draining in-flight deliveries")
			drain := time.After(drainGrace)
			for {
				select {
				case rec := <-records:
					s.handleDelivery(rec)
				case <-drain:
					s.finish()
					return nil
				}
			}
		}
	}
}

func (s *Supervisor) push() {
	if s.cfg.Advance != nil {
		s.cfg.Advance(uint64(time.Now().Unix()))
	}
	if err := s.cfg.Forwarder.Broadcast(s.cfg.Caller); err != nil {
		s.log.Warn("pot data push failed", "err", err)
	}
}

// poll samples the provider and every follower oracle at one instant.
func (s *Supervisor) poll() {
	now := time.Now()
	unix := uint64(now.Unix())

	snap, err := s.cfg.Forwarder.CurrentSnapshot()
	if err != nil {
		s.log.Warn("provider snapshot failed", "err", err)
	} else {
		var rate *big.Int
		if snap.Initialized() {
			rate = snap.ConversionRate(unix)
		}
		s.handleSample(measure.FreshnessSample{
			At:             now,
			ChainID:        s.cfg.Forwarder.ChainID(),
			Data:           snap,
			ConversionRate: rate,
		})
	}

	for _, o := range s.cfg.Oracles {
		d := o.GetPotData()
		var rate *big.Int
		if d.Initialized() {
			rate = o.GetConversionRate(unix)
		}
		s.handleSample(measure.FreshnessSample{
			At:             now,
			ChainID:        o.ChainID(),
			Data:           d,
			ConversionRate: rate,
		})
	}
}

func (s *Supervisor) handleDelivery(rec bridge.DeliveryRecord) {
	for _, mod := range s.cfg.Modules {
		mod.UpdateDeliveryRecord(rec)
	}
}

func (s *Supervisor) handleSample(sample measure.FreshnessSample) {
	for _, mod := range s.cfg.Modules {
		mod.UpdateFreshnessSample(sample)
	}
}

// finish takes a last sample and dumps every module's table.
func (s *Supervisor) finish() {
	s.poll()
	for _, mod := range s.cfg.Modules {
		series, headline := mod.OutputRecord()
		s.log.Info("metric written", "metric", mod.OutputMetricName(), "series", len(series), "headline", headline)
	}
}
