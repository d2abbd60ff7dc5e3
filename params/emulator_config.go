package params

import (
	"math/big"
	"time"

	"github.com/gnkz/lz-ssr-oracle/bridge"
	"github.com/gnkz/lz-ssr-oracle/economics/feebudget"
)

// GetEndpointConfig creates a bridge endpoint configuration from global parameters
func GetEndpointConfig() bridge.Config {
	return bridge.Config{
		BaseFee:     big.NewInt(BaseFee),
		PerByteFee:  big.NewInt(PerByteFee),
		SendsPerSec: SendRate,
		SendBurst:   SendBurst,
	}
}

// GetLinkConfig creates a link configuration from global parameters
func GetLinkConfig() bridge.LinkConfig {
	delay := Delay
	if delay < 0 {
		delay = 0
	}
	jitter := JitterRange
	if jitter < 0 {
		jitter = 0
	}
	dup := DuplicateRate
	if dup < 0 {
		dup = 0
	}
	return bridge.LinkConfig{
		Delay:         time.Duration(delay) * time.Millisecond,
		Jitter:        time.Duration(jitter) * time.Millisecond,
		DuplicateRate: dup,
	}
}

// GetFeeBudget creates the forwarder fee budget from global parameters.
// It returns nil when both caps are zero, which disables budget enforcement.
func GetFeeBudget() (*feebudget.Budget, error) {
	if FeeCapPerSend <= 0 && EpochFeeCap <= 0 {
		return nil, nil
	}
	return feebudget.NewBudget(
		big.NewInt(FeeCapPerSend),
		big.NewInt(EpochFeeCap),
		time.Duration(BudgetEpoch)*time.Millisecond,
	)
}
