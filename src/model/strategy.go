package model

import "github.com/shopspring/decimal"

type StrategyMode string

const (
	ModeEscape StrategyMode = "escape"
	ModeHaven  StrategyMode = "haven"
)

type TriggerLogic string

const (
	TriggerLogicAnd TriggerLogic = "AND"
	TriggerLogicOr  TriggerLogic = "OR"
)

type TriggerOperator string

const (
	OperatorLessThan    TriggerOperator = "lt"
	OperatorGreaterThan TriggerOperator = "gt"
	OperatorEquals      TriggerOperator = "eq"
)

// TriggerCondition is one price condition gating a haven strategy,
// e.g. "ETH lt 2000".
type TriggerCondition struct {
	Asset    string          `json:"asset"`
	Operator TriggerOperator `json:"operator"`
	Value    decimal.Decimal `json:"value"`
}

// EscapeConfig describes the direct-transfer-everywhere strategy: every
// balance goes to the safe address on its own chain.
type EscapeConfig struct {
	BTCAddress string `json:"btc_address"`
	EVMAddress string `json:"evm_address,omitempty"`
}

// HavenConfig describes the consolidate-to-BTC strategy: non-dust EVM
// balances are swapped to BTC via ZetaChain.
type HavenConfig struct {
	BTCAddress   string             `json:"btc_address"`
	EVMAddress   string             `json:"evm_address,omitempty"`
	Triggers     []TriggerCondition `json:"triggers,omitempty"`
	TriggerLogic TriggerLogic       `json:"trigger_logic,omitempty"`
	Prompt       string             `json:"prompt,omitempty"`
}

// PanicStrategy holds the user's pre-registered evacuation plans. Both
// variants may be configured independently; a mode without its config
// cannot be executed.
type PanicStrategy struct {
	Escape *EscapeConfig `json:"escape,omitempty"`
	Haven  *HavenConfig  `json:"haven,omitempty"`
}

// Addresses returns the safe addresses for the requested mode. ok is false
// when the mode's config variant is absent.
func (s *PanicStrategy) Addresses(mode StrategyMode) (btcAddress, evmAddress string, ok bool) {
	if s == nil {
		return "", "", false
	}

	switch mode {
	case ModeEscape:
		if s.Escape == nil {
			return "", "", false
		}
		return s.Escape.BTCAddress, s.Escape.EVMAddress, true
	case ModeHaven:
		if s.Haven == nil {
			return "", "", false
		}
		return s.Haven.BTCAddress, s.Haven.EVMAddress, true
	}

	return "", "", false
}
