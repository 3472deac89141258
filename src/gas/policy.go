package gas

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ChainClass selects which fee reserve applies to a balance.
type ChainClass string

const (
	ChainBTC ChainClass = "btc"
	ChainEVM ChainClass = "evm"
)

const SatsPerBTC = 100_000_000

var satsPerBTC = decimal.NewFromInt(SatsPerBTC)

// Policy computes fee reserves and dust classification. All methods are pure.
type Policy struct {
	btcFeeReserve    decimal.Decimal // in BTC
	evmGasReserve    decimal.Decimal // in native units
	dustThresholdUSD decimal.Decimal
}

// NewPolicy validates the reserve configuration. Reserves must be strictly
// positive: a zero reserve would let the planner schedule unspendable
// balances.
func NewPolicy(cfg Config) (Policy, error) {
	if cfg.BTCFeeReserveSats <= 0 {
		return Policy{}, errors.New("btc fee reserve must be greater than zero")
	}
	if cfg.EVMGasReserve.LessThanOrEqual(decimal.Zero) {
		return Policy{}, errors.New("evm gas reserve must be greater than zero")
	}
	if cfg.DustThresholdUSD.LessThanOrEqual(decimal.Zero) {
		return Policy{}, errors.New("dust threshold must be greater than zero")
	}

	return Policy{
		btcFeeReserve:    decimal.NewFromInt(cfg.BTCFeeReserveSats).Div(satsPerBTC),
		evmGasReserve:    cfg.EVMGasReserve,
		dustThresholdUSD: cfg.DustThresholdUSD,
	}, nil
}

// MustPolicy is NewPolicy for configurations known to be valid, such as the
// package defaults.
func MustPolicy(cfg Config) Policy {
	policy, err := NewPolicy(cfg)
	if err != nil {
		panic(err)
	}
	return policy
}

// DefaultPolicy builds the policy from environment configuration.
func DefaultPolicy() Policy {
	return MustPolicy(GetConfig())
}

// Reserve returns the fee reserve for a chain class.
func (p Policy) Reserve(class ChainClass) decimal.Decimal {
	if class == ChainBTC {
		return p.btcFeeReserve
	}
	return p.evmGasReserve
}

// DustThreshold returns the configured dust threshold in USD.
func (p Policy) DustThreshold() decimal.Decimal {
	return p.dustThresholdUSD
}

// MaxSendable returns the balance minus the chain's fee reserve, floored at
// zero. MaxSendable(b) <= b for all b, and is monotonically non-decreasing
// in b.
func (p Policy) MaxSendable(balance decimal.Decimal, class ChainClass) decimal.Decimal {
	sendable := balance.Sub(p.Reserve(class))
	if sendable.IsNegative() {
		return decimal.Zero
	}
	return sendable
}

// IsDust reports whether a USD value is strictly below the dust threshold.
func (p Policy) IsDust(usdValue decimal.Decimal) bool {
	return usdValue.LessThan(p.dustThresholdUSD)
}

// IsResidual reports whether a balance is at or below the fee reserve, i.e.
// nothing would be left to send after fees. A balance exactly equal to the
// reserve is residual.
func (p Policy) IsResidual(balance decimal.Decimal, class ChainClass) bool {
	return balance.LessThanOrEqual(p.Reserve(class))
}
